package vectorstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "vs.db"))
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteVSRoundtrip(t *testing.T) {
	vs := NewSQLite(openTestDB(t))
	ctx := context.Background()
	if err := vs.EnsureCollection(ctx, "lost_items", 3); err != nil {
		t.Fatal(err)
	}
	if err := vs.Insert(ctx, "lost_items", "a", []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := vs.Insert(ctx, "lost_items", "b", []float32{0, 1, 0}); err != nil {
		t.Fatal(err)
	}
	ok, err := vs.Exists(ctx, "lost_items", "a")
	if err != nil || !ok {
		t.Fatalf("exists=%v err=%v", ok, err)
	}
	ok, _ = vs.Exists(ctx, "lost_items", "missing")
	if ok {
		t.Fatal("missing id reported as existing")
	}

	hits, err := vs.Search(ctx, "lost_items", []float32{1, 0.1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits=%d, want 2", len(hits))
	}
	if hits[0].ID != "a" || hits[0].Score <= hits[1].Score {
		t.Fatalf("unexpected ranking: %v", hits)
	}
}

func TestSQLiteVSInsertReplaces(t *testing.T) {
	vs := NewSQLite(openTestDB(t))
	ctx := context.Background()
	if err := vs.EnsureCollection(ctx, "lost_items", 2); err != nil {
		t.Fatal(err)
	}
	if err := vs.Insert(ctx, "lost_items", "a", []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := vs.Insert(ctx, "lost_items", "a", []float32{0, 1}); err != nil {
		t.Fatal(err)
	}
	hits, err := vs.Search(ctx, "lost_items", []float32{0, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits=%d, want 1 (replace, not duplicate)", len(hits))
	}
	if hits[0].Score < 0.99 {
		t.Fatalf("score=%f, want ~1 after replace", hits[0].Score)
	}
}

func TestSQLiteVSTopK(t *testing.T) {
	vs := NewSQLite(openTestDB(t))
	ctx := context.Background()
	if err := vs.EnsureCollection(ctx, "lost_items", 2); err != nil {
		t.Fatal(err)
	}
	for i, v := range [][]float32{{1, 0}, {0.9, 0.1}, {0.5, 0.5}, {0, 1}} {
		if err := vs.Insert(ctx, "lost_items", string(rune('a'+i)), v); err != nil {
			t.Fatal(err)
		}
	}
	hits, err := vs.Search(ctx, "lost_items", []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits=%d, want topK=2", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("scores not non-increasing: %v", hits)
		}
	}
}
