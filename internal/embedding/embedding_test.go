package embedding

import (
	"context"
	"testing"
)

func TestMockDimension(t *testing.T) {
	m := NewMock(1536)
	for _, text := range []string{"a", "black bag", "Lenovo laptop bag with a keychain", "längere Umlaute", "日本語のテキスト"} {
		v, err := m.Embed(context.Background(), text)
		if err != nil {
			t.Fatalf("embed %q: %v", text, err)
		}
		if len(v) != 1536 {
			t.Fatalf("embed %q: dim=%d", text, len(v))
		}
	}
}

func TestMockDeterministic(t *testing.T) {
	m := NewMock(64)
	a, _ := m.Embed(context.Background(), "blue umbrella near cafeteria")
	b, _ := m.Embed(context.Background(), "blue umbrella near cafeteria")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestMockDistinguishesText(t *testing.T) {
	m := NewMock(64)
	a, _ := m.Embed(context.Background(), "black bag")
	b, _ := m.Embed(context.Background(), "red scarf")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("distinct inputs produced identical vectors")
	}
}

type countingEmbedder struct {
	dim   int
	calls int
}

func (c *countingEmbedder) Dim() int { return c.dim }
func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	return make([]float32, c.dim), nil
}

func TestCacheHitsSkipUpstream(t *testing.T) {
	u := &countingEmbedder{dim: 8}
	c := NewCache(u)
	for i := 0; i < 3; i++ {
		if _, err := c.Embed(context.Background(), "same text"); err != nil {
			t.Fatal(err)
		}
	}
	if u.calls != 1 {
		t.Fatalf("upstream calls=%d, want 1", u.calls)
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Fatalf("hits=%d misses=%d", hits, misses)
	}
}

func TestNewFromEnvDefaultsToMock(t *testing.T) {
	t.Setenv("LOSTFOUND_EMBED_PROVIDER", "")
	t.Setenv("LOSTFOUND_EMBED_CACHE_DISABLE", "1")
	e := NewFromEnv(32)
	if _, ok := e.(Mock); !ok {
		t.Fatalf("expected Mock, got %T", e)
	}
	if e.Dim() != 32 {
		t.Fatalf("dim=%d", e.Dim())
	}
}
