// Package embedding turns text into fixed-dimension float vectors for
// similarity search. Callers depend on the Embedder capability, never
// on a concrete provider, so the placeholder can be swapped for a real
// text-embedding model without touching the handlers.
package embedding

import (
	"context"
	"fmt"
)

// Embedder maps text to a vector of exactly Dim() floats.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

// DimensionError reports a mismatch between a produced embedding and
// the collection's configured dimension. It indicates misconfiguration,
// not bad user input.
type DimensionError struct {
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: got %d, want %d", e.Got, e.Want)
}
