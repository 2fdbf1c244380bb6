package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lostfound/internal/models"
	sqlm "lostfound/internal/storage/sqlite"
)

// SQLiteStore persists items in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := (sqlm.Manager{}).UpToLatest(context.Background(), db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func dirOf(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return "."
}

// DB exposes the underlying handle so the local vector-store fallback
// can share the same database file.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Close() error { return s.db.Close() }

const itemColumns = `id, title, text_description, campus_tag, location_name, lat, lng,
    image_base64, contact_name, contact_phone, contact_note, status, created_at`

func (s *SQLiteStore) InsertItem(ctx context.Context, item *models.Item) error {
	status := item.Status
	if status == "" {
		status = models.StatusFound
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lost_items(`+itemColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		item.ID, item.Title, item.TextDescription, item.CampusTag, item.LocationName,
		nullFloat(item.Lat), nullFloat(item.Lng),
		nullStr(item.ImageBase64), nullStr(item.ContactName), nullStr(item.ContactPhone), nullStr(item.ContactNote),
		string(status), item.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return &StorageError{Op: "insert", Err: err}
	}
	return nil
}

func (s *SQLiteStore) ListItems(ctx context.Context) ([]*models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM lost_items ORDER BY created_at DESC`)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	defer rows.Close()
	var out []*models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, &StorageError{Op: "list", Err: err}
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return out, nil
}

func (s *SQLiteStore) GetItemsByIDs(ctx context.Context, ids []string) (map[string]*models.Item, error) {
	result := make(map[string]*models.Item, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM lost_items WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, &StorageError{Op: "get_by_ids", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, &StorageError{Op: "get_by_ids", Err: err}
		}
		result[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "get_by_ids", Err: err}
	}
	return result, nil
}

func scanItem(rows *sql.Rows) (*models.Item, error) {
	var it models.Item
	var lat, lng sql.NullFloat64
	var image, cname, cphone, cnote sql.NullString
	var status, created string
	if err := rows.Scan(&it.ID, &it.Title, &it.TextDescription, &it.CampusTag, &it.LocationName,
		&lat, &lng, &image, &cname, &cphone, &cnote, &status, &created); err != nil {
		return nil, err
	}
	if lat.Valid {
		v := lat.Float64
		it.Lat = &v
	}
	if lng.Valid {
		v := lng.Float64
		it.Lng = &v
	}
	it.ImageBase64 = image.String
	it.ContactName = cname.String
	it.ContactPhone = cphone.String
	it.ContactNote = cnote.String
	it.Status = models.ItemStatus(status)
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		it.CreatedAt = t
	}
	return &it, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
