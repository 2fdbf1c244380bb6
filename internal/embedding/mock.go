package embedding

import "context"

// Mock is the placeholder provider: a character-sum hash folded into a
// fixed-dimension vector. It is deterministic and pure, but NOT a
// semantic embedding; retrieval quality with it is nonsense beyond
// exact-ish text overlap. Production deployments should configure the
// openai provider (or another real model) instead.
type Mock struct {
	dim int
}

func NewMock(dim int) Mock { return Mock{dim: dim} }

func (m Mock) Dim() int { return m.dim }

func (m Mock) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, m.dim)
	i := 0
	for _, r := range text {
		vec[i%m.dim] += float32(r) / 255
		i++
	}
	return vec, nil
}
