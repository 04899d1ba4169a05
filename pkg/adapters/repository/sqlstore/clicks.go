package sqlstore

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

// SQLite caps bound parameters per statement; stay well under it.
const clickBatch = 500

func (r *SQLRepository) RecordClick(ctx context.Context, c *domain.Click) error {
	query := `INSERT INTO clicks (id, link_id, timestamp, user_agent, device, referrer, ip_address, country, city,
			  browser, os, is_broken)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.exec(ctx, query, c.ID, c.LinkID, c.Timestamp.UTC(), c.UserAgent, c.Device, c.Referrer, c.IPAddress,
		c.Country, c.City, c.Browser, c.OS, c.IsBroken)
	return err
}

// ListClicks returns the clicks of the given links within [from, to], oldest first.
func (r *SQLRepository) ListClicks(ctx context.Context, linkIDs []string, from, to time.Time) ([]domain.Click, error) {
	clicks := []domain.Click{}
	for start := 0; start < len(linkIDs); start += clickBatch {
		end := start + clickBatch
		if end > len(linkIDs) {
			end = len(linkIDs)
		}
		batch := linkIDs[start:end]

		query := `SELECT id, link_id, timestamp, user_agent, device, referrer, ip_address, country, city, browser, os, is_broken
				  FROM clicks WHERE link_id IN (` + placeholders(len(batch)) + `) AND timestamp >= ? AND timestamp <= ?
				  ORDER BY timestamp ASC`
		args := make([]interface{}, 0, len(batch)+2)
		for _, id := range batch {
			args = append(args, id)
		}
		args = append(args, from.UTC(), to.UTC())

		if err := r.scanClicks(ctx, &clicks, query, args...); err != nil {
			return nil, err
		}
	}
	return clicks, nil
}

func (r *SQLRepository) scanClicks(ctx context.Context, out *[]domain.Click, query string, args ...interface{}) error {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Click
		if err := rows.Scan(&c.ID, &c.LinkID, &c.Timestamp, &c.UserAgent, &c.Device, &c.Referrer, &c.IPAddress,
			&c.Country, &c.City, &c.Browser, &c.OS, &c.IsBroken); err != nil {
			return err
		}
		*out = append(*out, c)
	}
	return rows.Err()
}
