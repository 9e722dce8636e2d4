// internal/stats/fleet.go
package stats

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github-loc-stats/internal/model"
)

const (
	// Number of repositories aggregated in parallel
	defaultRepoConcurrency = 3
	defaultMaxRepos        = 50
)

// Fleet runs a Strategy over every repository of an identity and merges the results.
type Fleet struct {
	strategy    Strategy
	logger      *slog.Logger
	maxRepos    int
	concurrency int
	now         func() time.Time
}

// FleetOption customises a Fleet.
type FleetOption func(*Fleet)

// WithMaxRepos caps how many repositories a run looks at.
func WithMaxRepos(n int) FleetOption {
	return func(f *Fleet) {
		if n > 0 {
			f.maxRepos = n
		}
	}
}

// WithRepoConcurrency sets how many repositories are aggregated at once.
func WithRepoConcurrency(n int) FleetOption {
	return func(f *Fleet) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithFleetClock replaces time.Now when stamping results.
func WithFleetClock(now func() time.Time) FleetOption {
	return func(f *Fleet) {
		f.now = now
	}
}

// NewFleet creates a new Fleet instance.
func NewFleet(strategy Strategy, logger *slog.Logger, opts ...FleetOption) *Fleet {
	f := &Fleet{
		strategy:    strategy,
		logger:      logger,
		maxRepos:    defaultMaxRepos,
		concurrency: defaultRepoConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MaxRepos returns the per-run repository cap.
func (f *Fleet) MaxRepos() int {
	return f.maxRepos
}

// Run aggregates the first MaxRepos repositories of repos, in the given order,
// and blocks until every one of them has finished.
func (f *Fleet) Run(ctx context.Context, src Source, identity model.Identity, repos []model.Repository) model.AggregateResult {
	total := len(repos)
	if len(repos) > f.maxRepos {
		repos = repos[:f.maxRepos]
	}

	logger := f.logger.With("identity", identity.String())
	logger.Info("Starting aggregation run", "repos", len(repos), "total_repos", total, "strategy", f.strategy.Name(), "concurrency", f.concurrency)

	// One slot per repository; each goroutine writes only its own slot.
	results := make([]model.RepositoryResult, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, repo := range repos {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = skippedResult(repo)
				return nil
			}
			results[i] = aggregateRepository(gctx, f.strategy, src, identity, repo, logger)
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors.

	agg := merge(identity, total, results)
	agg.ComputedAt = f.now()

	logger.Info("Aggregation run finished",
		"additions", agg.TotalAdditions,
		"deletions", agg.TotalDeletions,
		"processed", agg.RepositoriesProcessed,
		"skipped", agg.RepositoriesSkipped,
	)
	return agg
}

// merge folds per-repository results into an AggregateResult. Skipped
// repositories are counted but never summed; zero-activity repositories count
// as processed.
func merge(identity model.Identity, total int, results []model.RepositoryResult) model.AggregateResult {
	agg := model.AggregateResult{
		Identity:             identity,
		TotalRepositoryCount: total,
		RepositoryResults:    make([]model.RepositoryResult, 0, len(results)),
	}

	for _, r := range results {
		if r.Skipped {
			agg.RepositoriesSkipped++
		} else {
			agg.RepositoriesProcessed++
			agg.TotalAdditions += r.Additions
			agg.TotalDeletions += r.Deletions
		}
		agg.RepositoryResults = append(agg.RepositoryResults, r)
	}
	agg.NetLines = agg.TotalAdditions - agg.TotalDeletions

	sort.SliceStable(agg.RepositoryResults, func(i, j int) bool {
		return agg.RepositoryResults[i].Additions > agg.RepositoryResults[j].Additions
	})
	return agg
}
