package embedding

import "context"

// Embedder converts text into a vector. The same Embedder must be used for
// indexing and for queries: vectors from different models are not comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Func adapts a plain function to Embedder.
type Func func(ctx context.Context, text string) ([]float64, error)

func (f Func) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}
