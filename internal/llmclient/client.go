// Package llmclient talks to the text-generation service that answers
// per-field value questions.
package llmclient

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the service answers without any usable text.
var ErrEmptyResponse = errors.New("llm returned no text")

// Request is a single prompt and its generation knobs.
type Request struct {
	Prompt          string
	MaxOutputTokens int
	Temperature     float32
}

// Client generates text for a prompt. Implementations never retry.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f ClientFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
