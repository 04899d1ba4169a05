package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

const linkColumns = `l.id, l.user_id, l.domain_id, l.slug, l.destination_url, l.tags, l.redirect_type, l.status,
	l.note, l.epc, l.expire_at, l.is_broken, l.last_checked_broken, l.utm_params, l.created_at, l.updated_at, d.domain`

const linkFrom = ` FROM links l JOIN domains d ON d.id = l.domain_id`

func scanLink(row scanner) (*domain.Link, error) {
	var l domain.Link
	var tagsJSON, utmJSON string
	var redirect, status string
	var expireAt, lastChecked sql.NullTime

	err := row.Scan(&l.ID, &l.UserID, &l.DomainID, &l.Slug, &l.DestinationURL, &tagsJSON, &redirect, &status,
		&l.Note, &l.EPC, &expireAt, &l.IsBroken, &lastChecked, &utmJSON, &l.CreatedAt, &l.UpdatedAt, &l.Domain)
	if err != nil {
		return nil, err
	}

	l.RedirectType = domain.RedirectType(redirect)
	l.Status = domain.LinkStatus(status)
	if expireAt.Valid {
		l.ExpireAt = &expireAt.Time
	}
	if lastChecked.Valid {
		l.LastCheckedBroken = &lastChecked.Time
	}
	_ = json.Unmarshal([]byte(tagsJSON), &l.Tags)
	_ = json.Unmarshal([]byte(utmJSON), &l.UTMParams)
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return &l, nil
}

func encodeJSON(v interface{}, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func (r *SQLRepository) Create(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (id, user_id, domain_id, slug, destination_url, tags, redirect_type, status, note, epc,
			  expire_at, is_broken, last_checked_broken, utm_params, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	tagsJSON, err := encodeJSON(link.Tags, "[]")
	if err != nil {
		return err
	}
	utmJSON, err := encodeJSON(link.UTMParams, "{}")
	if err != nil {
		return err
	}

	_, err = r.exec(ctx, query, link.ID, link.UserID, link.DomainID, link.Slug, link.DestinationURL, tagsJSON,
		string(link.RedirectType), string(link.Status), link.Note, link.EPC, nullTime(link.ExpireAt), link.IsBroken,
		nullTime(link.LastCheckedBroken), utmJSON, link.CreatedAt.UTC(), link.UpdatedAt.UTC())
	return err
}

func (r *SQLRepository) getLink(ctx context.Context, where string, args ...interface{}) (*domain.Link, error) {
	row := r.queryRow(ctx, `SELECT `+linkColumns+linkFrom+` WHERE l.deleted_at IS NULL AND `+where, args...)
	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func (r *SQLRepository) GetByID(ctx context.Context, userID, id string) (*domain.Link, error) {
	return r.getLink(ctx, `l.id = ? AND l.user_id = ?`, id, userID)
}

func (r *SQLRepository) GetBySlug(ctx context.Context, domainID, slug string) (*domain.Link, error) {
	return r.getLink(ctx, `l.domain_id = ? AND l.slug = ?`, domainID, slug)
}

func (r *SQLRepository) Update(ctx context.Context, link *domain.Link) error {
	query := `UPDATE links SET domain_id = ?, slug = ?, destination_url = ?, tags = ?, redirect_type = ?, status = ?,
			  note = ?, epc = ?, expire_at = ?, utm_params = ?, updated_at = ?
			  WHERE id = ? AND user_id = ? AND deleted_at IS NULL`

	tagsJSON, err := encodeJSON(link.Tags, "[]")
	if err != nil {
		return err
	}
	utmJSON, err := encodeJSON(link.UTMParams, "{}")
	if err != nil {
		return err
	}

	res, err := r.exec(ctx, query, link.DomainID, link.Slug, link.DestinationURL, tagsJSON, string(link.RedirectType),
		string(link.Status), link.Note, link.EPC, nullTime(link.ExpireAt), utmJSON, link.UpdatedAt.UTC(), link.ID, link.UserID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *SQLRepository) SetBroken(ctx context.Context, id string, broken bool, checkedAt time.Time) error {
	query := `UPDATE links SET is_broken = ?, last_checked_broken = ? WHERE id = ?`
	res, err := r.exec(ctx, query, broken, checkedAt.UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *SQLRepository) Delete(ctx context.Context, userID, id string) error {
	query := `UPDATE links SET deleted_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL`
	res, err := r.exec(ctx, query, time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// where builds the shared WHERE clause of List and Count.
func (r *SQLRepository) where(userID string, filter domain.LinkFilter) (string, []interface{}) {
	clauses := []string{"l.deleted_at IS NULL", "l.user_id = ?"}
	args := []interface{}{userID}

	if filter.Search != "" {
		clauses = append(clauses, "(LOWER(l.slug) LIKE ? OR LOWER(l.destination_url) LIKE ? OR LOWER(l.note) LIKE ?)")
		like := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, like, like, like)
	}

	if filter.Tag != "" {
		clauses = append(clauses, r.tagFilter())
		args = append(args, filter.Tag)
	}

	if filter.DomainID != "" {
		clauses = append(clauses, "l.domain_id = ?")
		args = append(args, filter.DomainID)
	}

	// Status filters follow the effective status, so "expired" is computed here too.
	now := time.Now().UTC()
	switch filter.Status {
	case "":
	case domain.StatusExpired:
		clauses = append(clauses, "l.expire_at IS NOT NULL AND l.expire_at <= ?")
		args = append(args, now)
	default:
		clauses = append(clauses, "l.status = ? AND (l.expire_at IS NULL OR l.expire_at > ?)")
		args = append(args, string(filter.Status), now)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *SQLRepository) List(ctx context.Context, userID string, limit, offset int, filter domain.LinkFilter) ([]domain.Link, error) {
	where, args := r.where(userID, filter)
	query := `SELECT ` + linkColumns + linkFrom + where + ` ORDER BY l.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	return r.listLinks(ctx, query, args...)
}

func (r *SQLRepository) Count(ctx context.Context, userID string, filter domain.LinkFilter) (int64, error) {
	where, args := r.where(userID, filter)
	var count int64
	err := r.queryRow(ctx, `SELECT COUNT(*)`+linkFrom+where, args...).Scan(&count)
	return count, err
}

// ListAll returns every live link of the user, used by analytics.
func (r *SQLRepository) ListAll(ctx context.Context, userID string) ([]domain.Link, error) {
	query := `SELECT ` + linkColumns + linkFrom + ` WHERE l.deleted_at IS NULL AND l.user_id = ? ORDER BY l.created_at DESC`
	return r.listLinks(ctx, query, userID)
}

func (r *SQLRepository) listLinks(ctx context.Context, query string, args ...interface{}) ([]domain.Link, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// ListTags returns the distinct tags used on the user's links, sorted.
func (r *SQLRepository) ListTags(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.query(ctx, `SELECT tags FROM links WHERE user_id = ? AND deleted_at IS NULL`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var tags []string
		_ = json.Unmarshal([]byte(raw), &tags)
		for _, t := range tags {
			seen[t] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
