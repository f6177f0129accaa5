// Package framework provides the runtime plumbing shared by rove
// components: named background runners, periodic loops and error
// aggregation.
package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Ticker is invoked periodically by a Loop.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) error
}

// TickFunc is the func form of Ticker.
type TickFunc func(ctx context.Context, now time.Time) error

// Tick implements Ticker.
func (f TickFunc) Tick(ctx context.Context, now time.Time) error {
	return f(ctx, now)
}
