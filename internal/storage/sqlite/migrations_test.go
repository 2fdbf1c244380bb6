package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestUpToLatestIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := (Manager{}).UpToLatest(ctx, db); err != nil {
		t.Fatal(err)
	}
	if err := (Manager{}).UpToLatest(ctx, db); err != nil {
		t.Fatalf("second run must be a no-op: %v", err)
	}

	var v int
	if err := db.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&v); err != nil {
		t.Fatal(err)
	}
	if v != latestVersion {
		t.Fatalf("version=%d, want %d", v, latestVersion)
	}

	// v2 columns must exist
	if _, err := db.ExecContext(ctx,
		`INSERT INTO lost_items(id,title,text_description,campus_tag,location_name,status,created_at,lat,lng)
         VALUES('x','t','d','VESIT','Library','found','2025-06-01T12:00:00Z',19.07,72.83)`); err != nil {
		t.Fatalf("insert with geo columns: %v", err)
	}
}
