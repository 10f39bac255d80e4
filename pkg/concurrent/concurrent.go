// Package concurrent holds small errgroup helpers for fanning work out over
// goroutines.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for every item in its own goroutine, at most limit at
// a time (limit <= 0 means no limit). The context passed to action is
// cancelled as soon as one call fails; the first error is returned after all
// calls finish.
func ForEach[T any](ctx context.Context, items []T, limit int, action func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		g.Go(func() error {
			return action(gctx, item)
		})
	}
	return g.Wait()
}

// Group runs long-lived workers that share one cancellation scope.
type Group struct {
	g   *errgroup.Group
	ctx context.Context
}

func NewGroup(ctx context.Context) *Group {
	g, gctx := errgroup.WithContext(ctx)
	return &Group{g: g, ctx: gctx}
}

// Context is cancelled when any worker fails or the parent is done.
func (g *Group) Context() context.Context { return g.ctx }

func (g *Group) Go(fn func(ctx context.Context) error) {
	g.g.Go(func() error { return fn(g.ctx) })
}

// Wait blocks until every worker returns and reports the first error.
func (g *Group) Wait() error { return g.g.Wait() }
