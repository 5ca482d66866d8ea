package core

import (
	"context"
	"errors"
	"time"
)

// errDeadline is the cancellation cause once the run's wall clock runs out.
var errDeadline = errors.New("run deadline reached")

// withDeadline bounds ctx by d. A non-positive d leaves ctx unbounded.
func withDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeoutCause(ctx, d, errDeadline)
}
