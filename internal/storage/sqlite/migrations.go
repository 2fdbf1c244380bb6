package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Manager handles schema versioning for the item database. Caller
// provides an opened *sql.DB.
type Manager struct{}

const latestVersion = 2

func (m Manager) ensureTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL);`)
	if err != nil {
		return err
	}
	var cnt int
	_ = db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&cnt)
	if cnt == 0 {
		_, err = db.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES(0)`)
	}
	return err
}

func (m Manager) version(ctx context.Context, db *sql.DB) (int, error) {
	if err := m.ensureTable(ctx, db); err != nil {
		return 0, err
	}
	var v int
	if err := db.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func (m Manager) setVersion(ctx context.Context, db *sql.DB, v int) error {
	_, err := db.ExecContext(ctx, `UPDATE schema_migrations SET version=?`, v)
	return err
}

// UpToLatest applies migrations to reach latestVersion.
func (m Manager) UpToLatest(ctx context.Context, db *sql.DB) error {
	cur, err := m.version(ctx, db)
	if err != nil {
		return err
	}
	for v := cur + 1; v <= latestVersion; v++ {
		if err := m.up(ctx, db, v); err != nil {
			return fmt.Errorf("migrate up to v%d: %w", v, err)
		}
		if err := m.setVersion(ctx, db, v); err != nil {
			return err
		}
	}
	return nil
}

func (m Manager) up(ctx context.Context, db *sql.DB, v int) error {
	var stmts []string
	switch v {
	case 1:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS lost_items (
                id TEXT PRIMARY KEY,
                title TEXT NOT NULL,
                text_description TEXT NOT NULL,
                campus_tag TEXT NOT NULL,
                location_name TEXT NOT NULL,
                image_base64 TEXT,
                contact_name TEXT,
                contact_phone TEXT,
                contact_note TEXT,
                status TEXT NOT NULL DEFAULT 'found',
                created_at TEXT NOT NULL
            );`,
			`CREATE INDEX IF NOT EXISTS idx_lost_items_campus ON lost_items(campus_tag);`,
			`CREATE INDEX IF NOT EXISTS idx_lost_items_created ON lost_items(created_at);`,
		}
	case 2:
		// geo coordinates arrived after the first deploy
		stmts = []string{
			`ALTER TABLE lost_items ADD COLUMN lat REAL;`,
			`ALTER TABLE lost_items ADD COLUMN lng REAL;`,
		}
	default:
		return fmt.Errorf("unknown migration version %d", v)
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}
