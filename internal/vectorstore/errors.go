package vectorstore

import "fmt"

// CollectionCreateError wraps a failure to list or create a collection,
// including malformed list responses from the remote service.
type CollectionCreateError struct {
	Collection string
	Err        error
}

func (e *CollectionCreateError) Error() string {
	return fmt.Sprintf("create collection %q: %v", e.Collection, e.Err)
}

func (e *CollectionCreateError) Unwrap() error { return e.Err }

// InsertError wraps a failed vector insert, after the transaction (if
// any) has been aborted.
type InsertError struct {
	Collection string
	ID         string
	Err        error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("insert vector %s into %q: %v", e.ID, e.Collection, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

// SearchError wraps a failed similarity search.
type SearchError struct {
	Collection string
	Err        error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search collection %q: %v", e.Collection, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }
