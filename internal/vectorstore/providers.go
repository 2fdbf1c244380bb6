package vectorstore

import "os"

// NewFromEnv creates a VectorStore based on env configuration.
// LOSTFOUND_VECTOR_PROVIDER: "cosdata" | "noop"(default)
// Cosdata env: LOSTFOUND_COSDATA_HOST / _USERNAME / _PASSWORD.
// The sqlite provider needs an opened DB handle, so the server wires it
// directly instead of going through here.
func NewFromEnv() VectorStore {
	switch os.Getenv("LOSTFOUND_VECTOR_PROVIDER") {
	case "cosdata":
		return NewCosdataFromEnv()
	default:
		if os.Getenv("LOSTFOUND_COSDATA_HOST") != "" {
			return NewCosdataFromEnv()
		}
		return Noop{}
	}
}
