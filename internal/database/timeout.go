package database

import (
	"context"
	"time"
)

const defaultTimeout = 5 * time.Second

// WithTimeout applies the default store deadline unless the caller already
// brought one. Stores never run an unbounded query.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, defaultTimeout)
}
