package vectorstore

import "context"

// Noop disables vector search gracefully when no provider is
// configured: inserts vanish, searches find nothing.
type Noop struct{}

func (Noop) EnsureCollection(ctx context.Context, name string, dim int) error { return nil }
func (Noop) Insert(ctx context.Context, collection, id string, vector []float32) error {
	return nil
}
func (Noop) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	return nil, nil
}
func (Noop) Exists(ctx context.Context, collection, id string) (bool, error) { return false, nil }
