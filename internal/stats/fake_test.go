// internal/stats/fake_test.go
package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github-loc-stats/internal/fetcher"
	"github-loc-stats/internal/model"
)

var errTransient = errors.New("transient failure")

// fakeRepo describes what the fake source serves for one repository.
type fakeRepo struct {
	commits    []model.CommitRecord
	diffs      map[string]model.CommitDiffStat
	diffErrs   map[string]bool
	commitsErr error
	contrib    model.ContributorStats
	contribErr error
	panic      bool
	delay      time.Duration
}

// fakeSource is an in-memory Source safe for concurrent use.
type fakeSource struct {
	repos   []model.Repository
	data    map[string]*fakeRepo
	listErr error
	release chan struct{}
	// callDelay slows down every call, to observe how many run at once.
	callDelay time.Duration

	listCalls   int32
	commitCalls int32
	diffCalls   int32
	inFlight    int32
	peak        int32

	mu      sync.Mutex
	authors []string
	limits  []int
}

func newFakeSource() *fakeSource {
	return &fakeSource{data: make(map[string]*fakeRepo)}
}

func (f *fakeSource) add(name string, r *fakeRepo) model.Repository {
	repo := model.Repository{Owner: "alice", Name: name, URL: "https://github.com/alice/" + name}
	f.repos = append(f.repos, repo)
	f.data[name] = r
	return repo
}

func (f *fakeSource) ListRepositories(ctx context.Context, limit int) ([]model.Repository, error) {
	atomic.AddInt32(&f.listCalls, 1)
	defer f.enter()()
	f.pause()
	if f.release != nil {
		<-f.release
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && len(f.repos) > limit {
		return f.repos[:limit], nil
	}
	return f.repos, nil
}

func (f *fakeSource) enter() func() {
	cur := atomic.AddInt32(&f.inFlight, 1)
	for {
		old := atomic.LoadInt32(&f.peak)
		if cur <= old || atomic.CompareAndSwapInt32(&f.peak, old, cur) {
			break
		}
	}
	return func() { atomic.AddInt32(&f.inFlight, -1) }
}

func (f *fakeSource) pause() {
	if f.callDelay > 0 {
		time.Sleep(f.callDelay)
	}
}

func (f *fakeSource) ListCommits(ctx context.Context, repo model.Repository, author string, limit int) ([]model.CommitRecord, error) {
	atomic.AddInt32(&f.commitCalls, 1)
	defer f.enter()()

	f.pause()

	f.mu.Lock()
	f.authors = append(f.authors, author)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()

	r := f.data[repo.Name]
	if r.panic {
		panic("corrupt repository")
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.commitsErr != nil {
		return nil, r.commitsErr
	}
	if limit > 0 && len(r.commits) > limit {
		return r.commits[:limit], nil
	}
	return r.commits, nil
}

func (f *fakeSource) GetCommitDiffStat(ctx context.Context, repo model.Repository, sha string) (model.CommitDiffStat, error) {
	atomic.AddInt32(&f.diffCalls, 1)
	defer f.enter()()
	f.pause()
	r := f.data[repo.Name]
	if r.diffErrs[sha] {
		return model.CommitDiffStat{}, errTransient
	}
	return r.diffs[sha], nil
}

func (f *fakeSource) GetContributorStats(ctx context.Context, repo model.Repository) (model.ContributorStats, error) {
	defer f.enter()()
	f.pause()
	r := f.data[repo.Name]
	if r.contribErr != nil {
		return model.ContributorStats{}, r.contribErr
	}
	return r.contrib, nil
}

// commitsBy builds n commits authored by login, each adding adds[i] and deleting dels[i].
func commitsBy(login string, adds, dels []int) ([]model.CommitRecord, map[string]model.CommitDiffStat) {
	commits := make([]model.CommitRecord, len(adds))
	diffs := make(map[string]model.CommitDiffStat, len(adds))
	for i := range adds {
		sha := login + "-" + string(rune('a'+i))
		commits[i] = model.CommitRecord{SHA: sha, AuthorLogin: login}
		diffs[sha] = model.CommitDiffStat{Additions: adds[i], Deletions: dels[i]}
	}
	return commits, diffs
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCommitStrategy(maxCommits int, serverSideFilter bool) *CommitStrategy {
	s, _ := NewStrategy(StrategyCommits, fetcher.NewLimiter(4, discardLogger()), maxCommits, serverSideFilter, discardLogger())
	return s.(*CommitStrategy)
}
