package embedding

import "os"

// NewFromEnv creates an Embedder based on env configuration.
// LOSTFOUND_EMBED_PROVIDER: "mock"(default) | "openai"
// The mock is a placeholder hash, not a semantic model; see Mock.
func NewFromEnv(dim int) Embedder {
	var e Embedder
	switch os.Getenv("LOSTFOUND_EMBED_PROVIDER") {
	case "openai":
		e = NewOpenAIFromEnv(dim)
	default:
		e = NewMock(dim)
	}
	if os.Getenv("LOSTFOUND_EMBED_CACHE_DISABLE") != "1" {
		e = NewCache(e)
	}
	return e
}
