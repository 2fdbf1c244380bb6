package vectorstore

import "context"

// Result is a single nearest-neighbor hit.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"` // higher is better similarity
}

// VectorStore is the vector-index capability: one embedding per item
// id, living in a named collection.
type VectorStore interface {
	// EnsureCollection is idempotent: it creates the collection only
	// when it does not exist yet.
	EnsureCollection(ctx context.Context, name string, dim int) error
	// Insert stores one vector keyed by id, atomically from the
	// caller's point of view.
	Insert(ctx context.Context, collection, id string, vector []float32) error
	// Search returns up to topK neighbors ordered by decreasing
	// similarity, as ranked by the underlying index. Empty on no match.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)
	// Exists probes whether a vector for id is visible in the index.
	Exists(ctx context.Context, collection, id string) (bool, error)
}
