// Package embedder provides text embedding clients used to embed imported chunks
// and reference text that has no stored embedding.
package embedder

import "context"

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple text inputs.
	// Returns a slice of embeddings in the same order as the input texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// knownDimensions maps embedding models that handle Korean text to their output size.
var knownDimensions = map[string]int{
	"bge-m3":                 1024,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"snowflake-arctic-embed": 1024,
	"multilingual-e5-large":  1024,
}

// ModelDimension returns the output size of a known model, or 0 if unknown.
func ModelDimension(model string) int {
	return knownDimensions[model]
}
