package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"sort"
	"time"
)

// SQLiteVS is a local VectorStore for deployments without a remote
// index service: vectors as JSON rows, brute-force cosine scoring.
// Fine for a campus-sized corpus, not for anything big.
type SQLiteVS struct {
	db *sql.DB
}

// NewSQLite returns a VectorStore backed by the given *sql.DB.
func NewSQLite(db *sql.DB) SQLiteVS { return SQLiteVS{db: db} }

func (s SQLiteVS) EnsureCollection(ctx context.Context, name string, dim int) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS vectors (
        collection TEXT NOT NULL,
        id TEXT NOT NULL,
        dim INTEGER NOT NULL,
        vector TEXT NOT NULL,
        created_at TEXT NOT NULL,
        PRIMARY KEY(collection, id)
    );`)
	if err != nil {
		return &CollectionCreateError{Collection: name, Err: err}
	}
	return nil
}

func (s SQLiteVS) Insert(ctx context.Context, collection, id string, vector []float32) error {
	if s.db == nil {
		return nil
	}
	vecJSON, err := json.Marshal(vector)
	if err != nil {
		return &InsertError{Collection: collection, ID: id, Err: err}
	}
	// single statement, so the write is atomic-or-absent
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO vectors(collection,id,dim,vector,created_at) VALUES(?,?,?,?,?)`,
		collection, id, len(vector), string(vecJSON), time.Now().Format(time.RFC3339))
	if err != nil {
		return &InsertError{Collection: collection, ID: id, Err: err}
	}
	return nil
}

func (s SQLiteVS) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	if s.db == nil || len(vector) == 0 || topK <= 0 {
		return nil, nil
	}
	// Filter by dimension to avoid scoring against mismatched models.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vector FROM vectors WHERE collection=? AND dim=?`, collection, len(vector))
	if err != nil {
		return nil, &SearchError{Collection: collection, Err: err}
	}
	defer rows.Close()
	var results []Result
	for rows.Next() {
		var id, vecStr string
		if err := rows.Scan(&id, &vecStr); err != nil {
			return nil, &SearchError{Collection: collection, Err: err}
		}
		var vec []float32
		if err := json.Unmarshal([]byte(vecStr), &vec); err != nil || len(vec) != len(vector) {
			continue
		}
		results = append(results, Result{ID: id, Score: cosine(vector, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, &SearchError{Collection: collection, Err: err}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s SQLiteVS) Exists(ctx context.Context, collection, id string) (bool, error) {
	if s.db == nil {
		return false, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM vectors WHERE collection=? AND id=?`, collection, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
