// Package llm provides the language model client and the two model-backed collaborators of
// retrieval: the answer generator and the question category classifier.
package llm

import (
	"context"
)

// GenerateOptions configures the LLM generation request.
type GenerateOptions struct {
	// Model specifies the LLM model to use; empty uses the client default.
	Model string

	// SystemPrompt sets the system-level instructions for the model.
	SystemPrompt string

	// Temperature controls randomness in generation (0.0 = deterministic, 1.0 = creative).
	Temperature float32

	// MaxTokens limits the maximum number of tokens in the response.
	MaxTokens int

	// Stop ends generation at the first of these strings.
	Stop []string
}

// LabelOptions asks for a single short label: near-zero temperature, a few tokens, and
// generation stopped at the first line break.
func LabelOptions(model, systemPrompt string) GenerateOptions {
	return GenerateOptions{
		Model:        model,
		SystemPrompt: systemPrompt,
		Temperature:  0.01,
		MaxTokens:    8,
		Stop:         []string{"\n"},
	}
}

// LLM defines the interface for Large Language Model clients.
type LLM interface {
	// Generate sends a prompt to the LLM and returns the complete response.
	// It blocks until the full response is received or an error occurs.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
