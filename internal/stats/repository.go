// internal/stats/repository.go
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	custom_errors "github-loc-stats/internal/errors"
	"github-loc-stats/internal/fetcher"
	"github-loc-stats/internal/model"
)

const (
	StrategyCommits      = "commits"
	StrategyContributors = "contributors"
)

// Strategy computes the line counts of one identity in one repository. An
// error means the repository could not be read and will be reported as skipped.
type Strategy interface {
	Name() string
	Aggregate(ctx context.Context, src Source, identity model.Identity, repo model.Repository) (model.RepositoryResult, error)
}

// NewStrategy builds the strategy registered under name. Every call the
// strategy makes to a Source waits on limiter.
func NewStrategy(name string, limiter *fetcher.Limiter, maxCommits int, serverSideFilter bool, logger *slog.Logger) (Strategy, error) {
	switch name {
	case StrategyCommits:
		return &CommitStrategy{
			limiter:          limiter,
			maxCommits:       maxCommits,
			serverSideFilter: serverSideFilter,
			logger:           logger,
		}, nil
	case StrategyContributors:
		return &ContributorStrategy{limiter: limiter, logger: logger}, nil
	default:
		return nil, &custom_errors.ErrInvalidStrategy{Strategy: name}
	}
}

// CommitStrategy sums the diff stats of every commit attributed to the identity.
type CommitStrategy struct {
	limiter          *fetcher.Limiter
	maxCommits       int
	serverSideFilter bool
	logger           *slog.Logger
}

func (s *CommitStrategy) Name() string { return StrategyCommits }

func (s *CommitStrategy) Aggregate(ctx context.Context, src Source, identity model.Identity, repo model.Repository) (model.RepositoryResult, error) {
	result := newResult(repo)

	author := ""
	if s.serverSideFilter {
		author = identity.String()
	}
	commits, err := fetcher.Do(ctx, s.limiter, func(ctx context.Context) ([]model.CommitRecord, error) {
		return src.ListCommits(ctx, repo, author, s.maxCommits)
	})
	if err != nil {
		return result, fmt.Errorf("list commits: %w", err)
	}

	matching := filterCommits(commits, identity)
	if len(matching) == 0 {
		result.Outcome = model.OutcomeNoActivity
		return result, nil
	}

	diffs, failed := fetcher.Each(ctx, s.limiter, matching, func(ctx context.Context, c model.CommitRecord) (model.CommitDiffStat, error) {
		return src.GetCommitDiffStat(ctx, repo, c.SHA)
	})
	// Running out of time mid-repository is reported like any other fetch failure.
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if failed > 0 {
		s.logger.Debug("Skipped commits without diff stats", "owner", repo.Owner, "repo", repo.Name, "count", failed)
	}

	for _, d := range diffs {
		result.Additions += max(d.Additions, 0)
		result.Deletions += max(d.Deletions, 0)
	}
	result.CommitCount = len(matching)
	result.NetLines = result.Additions - result.Deletions
	result.Outcome = model.OutcomeProcessed
	return result, nil
}

// ContributorStrategy reads GitHub's weekly contributor statistics. It needs a
// single request per repository but only covers the default branch.
type ContributorStrategy struct {
	limiter *fetcher.Limiter
	logger  *slog.Logger
}

func (s *ContributorStrategy) Name() string { return StrategyContributors }

func (s *ContributorStrategy) Aggregate(ctx context.Context, src Source, identity model.Identity, repo model.Repository) (model.RepositoryResult, error) {
	result := newResult(repo)

	stats, err := fetcher.Do(ctx, s.limiter, func(ctx context.Context) (model.ContributorStats, error) {
		return src.GetContributorStats(ctx, repo)
	})
	if err != nil {
		return result, fmt.Errorf("contributor stats: %w", err)
	}
	if stats.Status == model.StatsNotReady {
		return result, custom_errors.ErrStatsNotReady
	}

	for _, c := range stats.Contributors {
		if !strings.EqualFold(c.AuthorLogin, identity.String()) {
			continue
		}
		for _, w := range c.Weeks {
			result.Additions += max(w.Additions, 0)
			result.Deletions += max(w.Deletions, 0)
			result.CommitCount += max(w.Commits, 0)
		}
		break
	}

	result.NetLines = result.Additions - result.Deletions
	if result.CommitCount == 0 && result.Additions == 0 && result.Deletions == 0 {
		result.Outcome = model.OutcomeNoActivity
	} else {
		result.Outcome = model.OutcomeProcessed
	}
	return result, nil
}

// aggregateRepository runs strategy for one repository and never fails: errors
// and panics turn into a skipped result with zero counts.
func aggregateRepository(ctx context.Context, strategy Strategy, src Source, identity model.Identity, repo model.Repository, logger *slog.Logger) (result model.RepositoryResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Repository aggregation panicked", "owner", repo.Owner, "repo", repo.Name, "panic", r)
			result = skippedResult(repo)
		}
	}()

	result, err := strategy.Aggregate(ctx, src, identity, repo)
	if err != nil {
		logger.Warn("Skipping repository", "owner", repo.Owner, "repo", repo.Name, "strategy", strategy.Name(), "error", err)
		return skippedResult(repo)
	}
	return result
}

func newResult(repo model.Repository) model.RepositoryResult {
	return model.RepositoryResult{
		Name: repo.Name,
		URL:  repo.URL,
	}
}

func skippedResult(repo model.Repository) model.RepositoryResult {
	r := newResult(repo)
	r.Skipped = true
	r.Outcome = model.OutcomeSkipped
	return r
}
