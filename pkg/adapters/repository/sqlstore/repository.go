package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	_ "github.com/lib/pq"                                // Postgres driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLRepository implements every storage port on top of database/sql.
// The same queries run on local SQLite, Turso (libsql) and Postgres.
type SQLRepository struct {
	db      *sql.DB
	dialect dialect
}

// DriverFor picks the database/sql driver from the connection URL.
func DriverFor(dbURL string) string {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return "postgres"
	case strings.Contains(dbURL, "libsql://"), strings.Contains(dbURL, "wss://"):
		return "libsql"
	}
	return "sqlite"
}

func NewSQLRepository(dbURL string) (*SQLRepository, error) {
	driverName := DriverFor(dbURL)

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	r := &SQLRepository{db: db, dialect: dialectSQLite}
	if driverName == "postgres" {
		r.dialect = dialectPostgres
	}

	if err := r.migrate(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) migrate() error {
	schema := sqliteSchema
	if r.dialect == dialectPostgres {
		schema = postgresSchema
	}
	_, err := r.db.Exec(schema)
	return err
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *SQLRepository) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.rebind(query), args...)
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.rebind(query), args...)
}

func (r *SQLRepository) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return r.db.QueryRowContext(ctx, r.rebind(query), args...)
}

// tagFilter matches links whose JSON tags array holds the bound value.
func (r *SQLRepository) tagFilter() string {
	if r.dialect == dialectPostgres {
		return "jsonb_exists(l.tags::jsonb, ?)"
	}
	return "EXISTS (SELECT 1 FROM json_each(l.tags) WHERE value = ?)"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	profile_image_url TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'user',
	link_limit INTEGER NOT NULL DEFAULT 0,
	click_limit INTEGER NOT NULL DEFAULT 0,
	retention_limit INTEGER NOT NULL DEFAULT 0,
	plan TEXT NOT NULL DEFAULT 'free',
	stripe_customer_id TEXT NOT NULL DEFAULT '',
	stripe_subscription_id TEXT NOT NULL DEFAULT '',
	trial_ends_at TIMESTAMP,
	billing_status TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS domains (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	domain TEXT NOT NULL,
	is_primary BOOLEAN NOT NULL DEFAULT 1,
	primary_domain_id TEXT REFERENCES domains(id),
	verified BOOLEAN NOT NULL DEFAULT 0,
	verified_at TIMESTAMP,
	verification_method TEXT NOT NULL DEFAULT '',
	txt_record_value TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_domains_user ON domains(user_id);
CREATE INDEX IF NOT EXISTS idx_domains_domain ON domains(domain);

CREATE TABLE IF NOT EXISTS links (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	domain_id TEXT NOT NULL REFERENCES domains(id),
	slug TEXT NOT NULL,
	destination_url TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	redirect_type TEXT NOT NULL DEFAULT '307',
	status TEXT NOT NULL DEFAULT 'active',
	note TEXT NOT NULL DEFAULT '',
	epc REAL NOT NULL DEFAULT 0,
	expire_at TIMESTAMP,
	is_broken BOOLEAN NOT NULL DEFAULT 0,
	last_checked_broken TIMESTAMP,
	utm_params TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	deleted_at TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_links_domain_slug ON links(domain_id, slug) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_links_user ON links(user_id);

CREATE TABLE IF NOT EXISTS clicks (
	id TEXT PRIMARY KEY,
	link_id TEXT NOT NULL REFERENCES links(id),
	timestamp TIMESTAMP NOT NULL,
	user_agent TEXT NOT NULL DEFAULT '',
	device TEXT NOT NULL DEFAULT '',
	referrer TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	browser TEXT NOT NULL DEFAULT '',
	os TEXT NOT NULL DEFAULT '',
	is_broken BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_clicks_link_time ON clicks(link_id, timestamp);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	profile_image_url TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'user',
	link_limit INTEGER NOT NULL DEFAULT 0,
	click_limit INTEGER NOT NULL DEFAULT 0,
	retention_limit INTEGER NOT NULL DEFAULT 0,
	plan TEXT NOT NULL DEFAULT 'free',
	stripe_customer_id TEXT NOT NULL DEFAULT '',
	stripe_subscription_id TEXT NOT NULL DEFAULT '',
	trial_ends_at TIMESTAMPTZ,
	billing_status TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS domains (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	domain TEXT NOT NULL,
	is_primary BOOLEAN NOT NULL DEFAULT TRUE,
	primary_domain_id TEXT REFERENCES domains(id),
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	verified_at TIMESTAMPTZ,
	verification_method TEXT NOT NULL DEFAULT '',
	txt_record_value TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_domains_user ON domains(user_id);
CREATE INDEX IF NOT EXISTS idx_domains_domain ON domains(domain);

CREATE TABLE IF NOT EXISTS links (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	domain_id TEXT NOT NULL REFERENCES domains(id),
	slug TEXT NOT NULL,
	destination_url TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	redirect_type TEXT NOT NULL DEFAULT '307',
	status TEXT NOT NULL DEFAULT 'active',
	note TEXT NOT NULL DEFAULT '',
	epc DOUBLE PRECISION NOT NULL DEFAULT 0,
	expire_at TIMESTAMPTZ,
	is_broken BOOLEAN NOT NULL DEFAULT FALSE,
	last_checked_broken TIMESTAMPTZ,
	utm_params TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_links_domain_slug ON links(domain_id, slug) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_links_user ON links(user_id);

CREATE TABLE IF NOT EXISTS clicks (
	id TEXT PRIMARY KEY,
	link_id TEXT NOT NULL REFERENCES links(id),
	timestamp TIMESTAMPTZ NOT NULL,
	user_agent TEXT NOT NULL DEFAULT '',
	device TEXT NOT NULL DEFAULT '',
	referrer TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	browser TEXT NOT NULL DEFAULT '',
	os TEXT NOT NULL DEFAULT '',
	is_broken BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_clicks_link_time ON clicks(link_id, timestamp);
`

// Ensure interface compliance
var _ ports.Repository = (*SQLRepository)(nil)
