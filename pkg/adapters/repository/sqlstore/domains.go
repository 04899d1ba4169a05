package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

const domainColumns = `id, user_id, domain, is_primary, primary_domain_id, verified, verified_at,
	verification_method, txt_record_value, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDomain(row scanner) (*domain.Domain, error) {
	var d domain.Domain
	var primaryID sql.NullString
	var verifiedAt sql.NullTime
	var method string

	err := row.Scan(&d.ID, &d.UserID, &d.Domain, &d.IsPrimary, &primaryID, &d.Verified, &verifiedAt,
		&method, &d.TXTRecordValue, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if primaryID.Valid {
		d.PrimaryDomainID = &primaryID.String
	}
	if verifiedAt.Valid {
		d.VerifiedAt = &verifiedAt.Time
	}
	d.VerificationMethod = domain.VerificationMethod(method)
	return &d, nil
}

func (r *SQLRepository) CreateDomain(ctx context.Context, d *domain.Domain) error {
	query := `INSERT INTO domains (id, user_id, domain, is_primary, primary_domain_id, verified, verified_at,
			  verification_method, txt_record_value, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.exec(ctx, query, d.ID, d.UserID, d.Domain, d.IsPrimary, nullString(d.PrimaryDomainID), d.Verified,
		nullTime(d.VerifiedAt), string(d.VerificationMethod), d.TXTRecordValue, d.CreatedAt.UTC(), d.UpdatedAt.UTC())
	return err
}

func (r *SQLRepository) getDomain(ctx context.Context, where string, args ...interface{}) (*domain.Domain, error) {
	row := r.queryRow(ctx, `SELECT `+domainColumns+` FROM domains WHERE `+where, args...)
	d, err := scanDomain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *SQLRepository) GetDomain(ctx context.Context, userID, id string) (*domain.Domain, error) {
	return r.getDomain(ctx, `id = ? AND user_id = ?`, id, userID)
}

// GetDomainByName resolves a public host or group. Only names whose root is
// verified resolve: a group counts as verified when its own primary is. When
// several accounts qualify, the oldest registration wins.
func (r *SQLRepository) GetDomainByName(ctx context.Context, name string) (*domain.Domain, error) {
	query := `SELECT d.id, d.user_id, d.domain, d.is_primary, d.primary_domain_id, d.verified, d.verified_at,
			  d.verification_method, d.txt_record_value, d.created_at, d.updated_at
			  FROM domains d
			  LEFT JOIN domains p ON p.id = d.primary_domain_id
			  WHERE LOWER(d.domain) = LOWER(?) AND COALESCE(p.verified, d.verified) = ?
			  ORDER BY d.created_at ASC LIMIT 1`
	d, err := scanDomain(r.queryRow(ctx, query, name, true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *SQLRepository) FindUserDomain(ctx context.Context, userID, name string) (*domain.Domain, error) {
	return r.getDomain(ctx, `user_id = ? AND LOWER(domain) = LOWER(?) LIMIT 1`, userID, name)
}

func (r *SQLRepository) ListDomains(ctx context.Context, userID string) ([]domain.Domain, error) {
	rows, err := r.query(ctx, `SELECT `+domainColumns+` FROM domains WHERE user_id = ? ORDER BY created_at ASC, domain ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var domains []domain.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		domains = append(domains, *d)
	}
	return domains, rows.Err()
}

func (r *SQLRepository) MarkVerified(ctx context.Context, id string, method domain.VerificationMethod, at time.Time) error {
	query := `UPDATE domains SET verified = ?, verified_at = ?, verification_method = ?, updated_at = ? WHERE id = ?`
	_, err := r.exec(ctx, query, true, at.UTC(), string(method), at.UTC(), id)
	return err
}

// DeleteDomain removes the domain together with links that were already soft
// deleted on it (and their clicks), so no row keeps pointing at it.
func (r *SQLRepository) DeleteDomain(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM clicks WHERE link_id IN (SELECT id FROM links WHERE domain_id = ? AND deleted_at IS NOT NULL)`,
		`DELETE FROM links WHERE domain_id = ? AND deleted_at IS NOT NULL`,
		`DELETE FROM domains WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, r.rebind(stmt), id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLRepository) CountDomainLinks(ctx context.Context, domainID string) (int64, error) {
	var count int64
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM links WHERE domain_id = ? AND deleted_at IS NULL`, domainID).Scan(&count)
	return count, err
}

func (r *SQLRepository) CountGroups(ctx context.Context, primaryID string) (int64, error) {
	var count int64
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM domains WHERE primary_domain_id = ?`, primaryID).Scan(&count)
	return count, err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
