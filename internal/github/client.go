// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github-loc-stats/internal/fetcher"
	"github-loc-stats/internal/model"
)

const perPage = 100 // Max per page

// Client is a wrapper around the go-github client.
type Client struct {
	gh               *github.Client
	logger           *slog.Logger
	maxRetries       int
	maxRateLimitWait time.Duration
}

// Option customises a Client.
type Option func(*Client) error

// WithEnterpriseURL points the client at a GitHub Enterprise installation.
func WithEnterpriseURL(baseURL string) Option {
	return func(c *Client) error {
		gh, err := c.gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return err
		}
		c.gh = gh
		return nil
	}
}

// WithBaseURL sends every request to baseURL verbatim.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return err
		}
		c.gh.BaseURL = u
		return nil
	}
}

// WithRetryPolicy overrides the number of attempts per call and the longest
// rate-limit reset the client is willing to wait for.
func WithRetryPolicy(attempts int, maxRateLimitWait time.Duration) Option {
	return func(c *Client) error {
		if attempts > 0 {
			c.maxRetries = attempts
		}
		if maxRateLimitWait > 0 {
			c.maxRateLimitWait = maxRateLimitWait
		}
		return nil
	}
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client; an empty
// token yields an anonymous client.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	var gh *github.Client
	if token == "" {
		gh = github.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		gh = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}

	c := &Client{
		gh:               gh,
		logger:           logger,
		maxRetries:       maxRetries,
		maxRateLimitWait: defaultMaxRateLimitWait,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// GetAuthenticatedUser returns the login of the token's owner.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (model.Identity, error) {
	user, _, err := withRetry(ctx, c, "get authenticated user", func() (*github.User, *github.Response, error) {
		return c.gh.Users.Get(ctx, "")
	})
	if err != nil {
		return "", err
	}
	return model.Identity(user.GetLogin()), nil
}

// ListRepositories lists the authenticated user's repositories, most recently
// updated first, stopping once max repositories have been collected.
func (c *Client) ListRepositories(ctx context.Context, limit int) ([]model.Repository, error) {
	return fetcher.Paginate(ctx, limit, func(ctx context.Context, page int) ([]model.Repository, int, error) {
		c.logger.Debug("Fetching repositories page", "page", page)

		opts := &github.RepositoryListByAuthenticatedUserOptions{
			Sort:      "updated",
			Direction: "desc",
			ListOptions: github.ListOptions{
				Page:    page,
				PerPage: pageSize(limit),
			},
		}
		repos, resp, err := withRetry(ctx, c, "list repositories", func() ([]*github.Repository, *github.Response, error) {
			return c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		})
		if err != nil {
			return nil, 0, err
		}

		out := make([]model.Repository, 0, len(repos))
		for _, r := range repos {
			out = append(out, toInternalRepository(r))
		}
		return out, resp.NextPage, nil
	})
}

// ListCommits fetches the commit history of a repository, newest first, up to
// max commits. When author is set GitHub filters the history server-side.
func (c *Client) ListCommits(ctx context.Context, repo model.Repository, author string, limit int) ([]model.CommitRecord, error) {
	return fetcher.Paginate(ctx, limit, func(ctx context.Context, page int) ([]model.CommitRecord, int, error) {
		c.logger.Debug("Fetching commits page", "owner", repo.Owner, "repo", repo.Name, "page", page)

		opts := &github.CommitsListOptions{
			Author: author,
			ListOptions: github.ListOptions{
				Page:    page,
				PerPage: pageSize(limit),
			},
		}
		commits, resp, err := withRetry(ctx, c, "list commits", func() ([]*github.RepositoryCommit, *github.Response, error) {
			return c.gh.Repositories.ListCommits(ctx, repo.Owner, repo.Name, opts)
		})
		if err != nil {
			return nil, 0, err
		}

		out := make([]model.CommitRecord, 0, len(commits))
		for _, commit := range commits {
			out = append(out, toInternalCommit(commit))
		}
		return out, resp.NextPage, nil
	})
}

// GetCommitDiffStat returns the additions and deletions of a single commit.
// Commits GitHub reports without stats count as zero.
func (c *Client) GetCommitDiffStat(ctx context.Context, repo model.Repository, sha string) (model.CommitDiffStat, error) {
	commit, _, err := withRetry(ctx, c, "get commit", func() (*github.RepositoryCommit, *github.Response, error) {
		return c.gh.Repositories.GetCommit(ctx, repo.Owner, repo.Name, sha, nil)
	})
	if err != nil {
		return model.CommitDiffStat{}, err
	}
	if commit.Stats == nil {
		c.logger.Debug("Commit has no stats", "owner", repo.Owner, "repo", repo.Name, "sha", sha)
		return model.CommitDiffStat{}, nil
	}
	return model.CommitDiffStat{
		Additions: commit.GetStats().GetAdditions(),
		Deletions: commit.GetStats().GetDeletions(),
	}, nil
}

// GetContributorStats returns weekly per-contributor statistics. While GitHub
// is still computing them the result is tagged StatsNotReady.
func (c *Client) GetContributorStats(ctx context.Context, repo model.Repository) (model.ContributorStats, error) {
	stats, _, err := withRetry(ctx, c, "list contributor stats", func() ([]*github.ContributorStats, *github.Response, error) {
		return c.gh.Repositories.ListContributorsStats(ctx, repo.Owner, repo.Name)
	})
	if err != nil {
		var accepted *github.AcceptedError
		if errors.As(err, &accepted) {
			return model.ContributorStats{Status: model.StatsNotReady}, nil
		}
		return model.ContributorStats{}, err
	}

	out := model.ContributorStats{
		Status:       model.StatsReady,
		Contributors: make([]model.ContributorWeekStat, 0, len(stats)),
	}
	for _, s := range stats {
		out.Contributors = append(out.Contributors, toInternalContributor(s))
	}
	return out, nil
}

func pageSize(limit int) int {
	if limit > 0 && limit < perPage {
		return limit
	}
	return perPage
}

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) model.Repository {
	return model.Repository{
		Owner: r.GetOwner().GetLogin(),
		Name:  r.GetName(),
		URL:   r.GetHTMLURL(),
	}
}

// toInternalCommit translates a github.RepositoryCommit object to our internal model.CommitRecord.
func toInternalCommit(c *github.RepositoryCommit) model.CommitRecord {
	return model.CommitRecord{
		SHA:            c.GetSHA(),
		AuthorLogin:    c.GetAuthor().GetLogin(),
		CommitterLogin: c.GetCommitter().GetLogin(),
		AuthorEmail:    c.GetCommit().GetAuthor().GetEmail(),
		CommitterEmail: c.GetCommit().GetCommitter().GetEmail(),
	}
}

func toInternalContributor(s *github.ContributorStats) model.ContributorWeekStat {
	weeks := make([]model.WeekStat, 0, len(s.Weeks))
	for _, w := range s.Weeks {
		weeks = append(weeks, model.WeekStat{
			Additions: w.GetAdditions(),
			Deletions: w.GetDeletions(),
			Commits:   w.GetCommits(),
		})
	}
	return model.ContributorWeekStat{
		AuthorLogin: s.GetAuthor().GetLogin(),
		Weeks:       weeks,
	}
}
