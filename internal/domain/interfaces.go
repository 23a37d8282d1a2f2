package domain

import "context"

// Embedder converts free text into a numeric vector representation. The
// same embedder must be used at index-build time and at query time.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
