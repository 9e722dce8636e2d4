// internal/fetcher/fetcher.go

// Package fetcher bounds and pages calls to the remote data source.
package fetcher

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// PageFunc fetches a single page of results. It returns the items of the page
// and the number of the next page, or 0 once the listing is exhausted.
type PageFunc[T any] func(ctx context.Context, page int) ([]T, int, error)

// Paginate walks a paginated listing until it is exhausted or maxItems items
// have been collected. A maxItems of 0 or less means no cap. No further page is
// requested once the cap is reached.
func Paginate[T any](ctx context.Context, maxItems int, fetch PageFunc[T]) ([]T, error) {
	var all []T
	page := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, next, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if maxItems > 0 && len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if next == 0 || len(items) == 0 {
			return all, nil
		}
		page = next
	}
}

// Limiter caps the number of outbound per-item requests in flight. One Limiter
// is shared by every aggregation in the process so the cap holds globally.
type Limiter struct {
	sem    *semaphore.Weighted
	size   int
	logger *slog.Logger
}

// NewLimiter creates a Limiter allowing n concurrent requests.
func NewLimiter(n int, logger *slog.Logger) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{
		sem:    semaphore.NewWeighted(int64(n)),
		size:   n,
		logger: logger,
	}
}

// Size returns the concurrency bound.
func (l *Limiter) Size() int {
	return l.size
}

// Do runs a single call under l. A nil Limiter runs fn unbounded.
func Do[T any](ctx context.Context, l *Limiter, fn func(ctx context.Context) (T, error)) (T, error) {
	if l == nil {
		return fn(ctx)
	}
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer l.sem.Release(1)
	return fn(ctx)
}

// Each calls fn for every item with at most Size() calls in flight across all
// users of the Limiter. Results keep the order of items. An item whose call
// fails, or which is never started because ctx ended, gets the zero value; the
// batch is never aborted. The number of such items is returned alongside.
func Each[In, Out any](ctx context.Context, l *Limiter, items []In, fn func(ctx context.Context, item In) (Out, error)) ([]Out, int) {
	results := make([]Out, len(items))
	failed := make([]bool, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		if ctx.Err() != nil || l.sem.Acquire(ctx, 1) != nil {
			for j := i; j < len(items); j++ {
				failed[j] = true
			}
			break
		}

		wg.Add(1)
		go func(i int, item In) {
			defer wg.Done()
			defer l.sem.Release(1)

			out, err := fn(ctx, item)
			if err != nil {
				l.logger.Debug("Item fetch failed, counting it as empty", "index", i, "error", err)
				failed[i] = true
				return
			}
			results[i] = out
		}(i, item)
	}
	wg.Wait()

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	return results, n
}
