package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithDeadline(t *testing.T) {
	t.Run("unbounded", func(t *testing.T) {
		ctx, cancel := withDeadline(context.Background(), 0)
		defer cancel()
		_, ok := ctx.Deadline()
		assert.False(t, ok)
	})

	t.Run("expires with cause", func(t *testing.T) {
		ctx, cancel := withDeadline(context.Background(), time.Millisecond)
		defer cancel()
		<-ctx.Done()
		assert.ErrorIs(t, context.Cause(ctx), errDeadline)
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	})

	t.Run("parent cancellation is not a deadline", func(t *testing.T) {
		parent, cancelParent := context.WithCancel(context.Background())
		ctx, cancel := withDeadline(parent, time.Hour)
		defer cancel()
		cancelParent()
		<-ctx.Done()
		assert.NotErrorIs(t, context.Cause(ctx), errDeadline)
	})
}
