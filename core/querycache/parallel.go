package querycache

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Parallel runs fns concurrently and returns their errors by position.
// A failing call does not cancel its siblings.
func Parallel(ctx context.Context, fns ...func(ctx context.Context) error) []error {
	errs := make([]error, len(fns))
	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() error {
			errs[i] = fn(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Value extracts a typed value from cached data.
func Value[R any](data any) (R, bool) {
	v, ok := data.(R)
	return v, ok
}
