// Package ai defines the text-generation interface behind narrative
// enrichment and the provider-backed implementations of it.
package ai

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Request is a single prompt sent to a language model.
type Request struct {
	// System sets the model's role and tone. Optional.
	System string
	// Prompt is the user turn.
	Prompt string
	// MaxTokens bounds the response length. Zero means the client default.
	MaxTokens int
}

// Generator is the interface the narrative adapter uses to produce prose.
// Concrete implementations live in gemini.go, anthropic.go and deepseek.go.
// Tests inject a stub that returns canned responses.
type Generator interface {
	// Generate sends one request and returns the model's text. It makes a
	// single attempt; retries, if any, are the caller's decision.
	//
	// Implementations must be safe to call concurrently.
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrEmptyResponse is returned when the provider answered successfully but
// produced no text.
var ErrEmptyResponse = errors.New("ai: empty response")

const (
	defaultMaxTokens = 2048
	defaultTimeout   = 90 * time.Second
	maxResponseBytes = 1 << 20 // 1 MB cap
)

// ─── OPTIONS ──────────────────────────────────────────────────────────────────

type options struct {
	baseURL string
	timeout time.Duration
}

// Option customises a provider client.
type Option func(*options)

// WithBaseURL points the client at a different API host. Used by tests and
// by deployments that route through a proxy.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func buildOptions(defaultBase string, opts []Option) (options, *http.Client) {
	o := options{baseURL: defaultBase, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o, &http.Client{Timeout: o.timeout}
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
