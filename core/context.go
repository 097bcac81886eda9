package core

import "context"

// Context keys for run options
type contextKey string

const quietKey contextKey = "quiet"

// WithQuiet marks a run as non-interactive: no progress bars or status lines.
func WithQuiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey, true)
}

// isQuiet returns whether interactive output should be suppressed
func isQuiet(ctx context.Context) bool {
	val := ctx.Value(quietKey)
	if val == nil {
		return false // default: interactive output allowed
	}
	quiet, ok := val.(bool)
	return ok && quiet
}
