// internal/model/models.go
package model

import (
	"strings"
	"time"
)

// Identity is the GitHub login whose contributions are being counted.
type Identity string

// Key returns the case-folded form used for matching and cache lookups.
func (i Identity) Key() string {
	return strings.ToLower(string(i))
}

func (i Identity) String() string {
	return string(i)
}

// Repository represents the metadata of a GitHub repository.
type Repository struct {
	Owner string
	Name  string
	URL   string
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// CommitRecord carries only the fields needed to attribute a commit.
type CommitRecord struct {
	SHA            string
	AuthorLogin    string
	CommitterLogin string
	AuthorEmail    string
	CommitterEmail string
}

// CommitDiffStat is the line delta of a single commit.
type CommitDiffStat struct {
	Additions int
	Deletions int
}

// WeekStat is one week of a contributor's activity.
type WeekStat struct {
	Additions int
	Deletions int
	Commits   int
}

// ContributorWeekStat is the pre-aggregated activity of one contributor.
type ContributorWeekStat struct {
	AuthorLogin string
	Weeks       []WeekStat
}

// StatsStatus tags the result of a contributor statistics request.
type StatsStatus int

const (
	StatsReady StatsStatus = iota
	// StatsNotReady means GitHub is still computing the statistics (HTTP 202).
	StatsNotReady
)

// ContributorStats is the tagged result of a contributor statistics request.
type ContributorStats struct {
	Status       StatsStatus
	Contributors []ContributorWeekStat
}

// Outcome classifies how a single repository aggregation ended.
type Outcome string

const (
	OutcomeProcessed  Outcome = "processed"
	OutcomeNoActivity Outcome = "no_activity"
	OutcomeSkipped    Outcome = "skipped"
)

// RepositoryResult is the per-repository line count of one aggregation run.
type RepositoryResult struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Additions   int     `json:"additions"`
	Deletions   int     `json:"deletions"`
	NetLines    int     `json:"netLines"`
	CommitCount int     `json:"commitCount"`
	Skipped     bool    `json:"skipped"`
	Outcome     Outcome `json:"status"`
}

// AggregateResult is the output of one aggregation run and the unit stored in the cache.
type AggregateResult struct {
	Identity              Identity           `json:"username"`
	TotalAdditions        int                `json:"totalLinesAdded"`
	TotalDeletions        int                `json:"totalLinesDeleted"`
	NetLines              int                `json:"netLines"`
	RepositoriesProcessed int                `json:"reposAnalyzed"`
	RepositoriesSkipped   int                `json:"reposSkipped"`
	TotalRepositoryCount  int                `json:"totalRepos"`
	RepositoryResults     []RepositoryResult `json:"repoStats"`
	ComputedAt            time.Time          `json:"computedAt"`
}

// StatsResponse is an AggregateResult annotated with cache metadata.
type StatsResponse struct {
	AggregateResult
	Cached bool `json:"cached"`
	// CacheAge is the age of a cached result in milliseconds.
	CacheAge *int64 `json:"cacheAge,omitempty"`
}
