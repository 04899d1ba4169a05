package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

func openRepo(t *testing.T, name string) *sqlstore.SQLRepository {
	t.Helper()
	repo, err := sqlstore.NewSQLRepository("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openRepo(t, "cli_src")
	now := time.Now().UTC()

	d := &domain.Domain{ID: "d1", UserID: "u1", Domain: "go.example.com", IsPrimary: true, Verified: true,
		TXTRecordValue: domain.VerificationPrefix + "00", CreatedAt: now, UpdatedAt: now}
	if err := src.CreateDomain(ctx, d); err != nil {
		t.Fatal(err)
	}
	l := &domain.Link{ID: "l1", UserID: "u1", DomainID: "d1", Slug: "promo", DestinationURL: "https://x.org",
		RedirectType: domain.RedirectTemporary, Status: domain.StatusActive, Tags: []string{"a"}, CreatedAt: now, UpdatedAt: now}
	if err := src.Create(ctx, l); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := doExport(ctx, src, &buf); err != nil {
		t.Fatal(err)
	}

	dst := openRepo(t, "cli_dst")
	if err := doImport(ctx, dst, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}
	// Importing twice must not duplicate anything.
	if err := doImport(ctx, dst, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}

	got, err := dst.GetBySlug(ctx, "d1", "promo")
	if err != nil || got == nil {
		t.Fatalf("imported link missing: %v", err)
	}
	if got.DestinationURL != "https://x.org" || got.Domain != "go.example.com" {
		t.Errorf("unexpected link %+v", got)
	}
	count, _ := dst.Count(ctx, "u1", domain.LinkFilter{})
	if count != 1 {
		t.Errorf("expected 1 link after two imports, got %d", count)
	}
}
