// internal/stats/source.go

// Package stats computes how many lines an identity added and deleted across
// its repositories.
package stats

import (
	"context"

	"github-loc-stats/internal/model"
)

// Source is the remote data the aggregation engine reads. Every call may fail
// transiently and every call consumes rate-limit quota shared by the process.
type Source interface {
	// ListRepositories returns up to limit repositories, most recently updated first.
	ListRepositories(ctx context.Context, limit int) ([]model.Repository, error)
	// ListCommits returns up to limit commits of repo, optionally filtered by author login.
	ListCommits(ctx context.Context, repo model.Repository, author string, limit int) ([]model.CommitRecord, error)
	GetCommitDiffStat(ctx context.Context, repo model.Repository, sha string) (model.CommitDiffStat, error)
	GetContributorStats(ctx context.Context, repo model.Repository) (model.ContributorStats, error)
}
