package ai

import (
	"context"
	"fmt"
	"log/slog"
)

// fallbackGenerator wraps two Generator implementations. It calls the primary
// first; if that returns an error it logs the failure and tries the secondary.
// Both attempts share the caller's context, so the pair stays inside one
// deadline.
type fallbackGenerator struct {
	primary   Generator
	secondary Generator
	logger    *slog.Logger
}

// NewFallbackGenerator returns a Generator that calls primary and, on failure,
// falls back to secondary. Either argument may be nil. If primary is nil it
// goes straight to secondary; if secondary is nil and primary fails, the
// primary error is returned directly.
func NewFallbackGenerator(primary, secondary Generator, logger *slog.Logger) Generator {
	return &fallbackGenerator{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Generate tries the primary Generator. If it fails and a secondary is
// configured, it logs the primary error and tries the secondary once.
func (f *fallbackGenerator) Generate(ctx context.Context, r Request) (string, error) {
	if f.primary != nil {
		text, err := f.primary.Generate(ctx, r)
		if err == nil {
			return text, nil
		}
		f.logger.Warn("ai: primary generator failed, trying secondary",
			"error", err,
			"prompt_bytes", len(r.Prompt),
		)
		if f.secondary == nil {
			return "", fmt.Errorf("ai: primary failed and no secondary configured: %w", err)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("ai: deadline spent on primary: %w", err)
		}
	}

	if f.secondary == nil {
		return "", fmt.Errorf("ai: no generator configured")
	}
	return f.secondary.Generate(ctx, r)
}
