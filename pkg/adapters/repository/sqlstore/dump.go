package sqlstore

import (
	"context"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

// Snapshot is the export format used by the CLI.
type Snapshot struct {
	Domains []domain.Domain `json:"domains"`
	Links   []domain.Link   `json:"links"`
}

// Dump exports all domains and live links across accounts. Primaries come
// before groups so an import can insert in order.
func (r *SQLRepository) Dump(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Domains: []domain.Domain{}}

	rows, err := r.query(ctx, `SELECT `+domainColumns+` FROM domains ORDER BY is_primary DESC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		snap.Domains = append(snap.Domains, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	snap.Links, err = r.listLinks(ctx, `SELECT `+linkColumns+linkFrom+` WHERE l.deleted_at IS NULL ORDER BY l.created_at ASC`)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore inserts snapshot rows whose ids are not present yet and reports how many were added.
func (r *SQLRepository) Restore(ctx context.Context, snap *Snapshot) (domains, links int, err error) {
	for i := range snap.Domains {
		d := &snap.Domains[i]
		existing, err := r.GetDomain(ctx, d.UserID, d.ID)
		if err != nil {
			return domains, links, err
		}
		if existing != nil {
			continue
		}
		if err := r.CreateDomain(ctx, d); err != nil {
			return domains, links, err
		}
		domains++
	}

	for i := range snap.Links {
		l := &snap.Links[i]
		existing, err := r.GetByID(ctx, l.UserID, l.ID)
		if err != nil {
			return domains, links, err
		}
		if existing != nil {
			continue
		}
		if err := r.Create(ctx, l); err != nil {
			return domains, links, err
		}
		links++
	}
	return domains, links, nil
}
