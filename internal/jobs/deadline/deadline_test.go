package deadline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/jobs/deadline"
)

type fakeExpirer struct {
	expired int64
	err     error
	calls   int
}

func (f *fakeExpirer) ExpireDue(ctx context.Context) (int64, error) {
	f.calls++
	return f.expired, f.err
}

type fakeSweeper struct {
	missed int64
	calls  int
}

func (f *fakeSweeper) SweepMissed(ctx context.Context) (int64, error) {
	f.calls++
	return f.missed, nil
}

type fakeCleaner struct {
	calls int
}

func (f *fakeCleaner) CleanupLinkCodes(ctx context.Context) (int64, error) {
	f.calls++
	return 3, nil
}

type fakePruner struct {
	retention time.Duration
	calls     int
}

func (f *fakePruner) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	f.calls++
	f.retention = retention
	return 10, nil
}

func TestRunExecutesAllSteps(t *testing.T) {
	expirer := &fakeExpirer{expired: 2}
	sweeper := &fakeSweeper{missed: 1}
	cleaner := &fakeCleaner{}
	pruner := &fakePruner{}

	job := deadline.New(expirer, sweeper, cleaner, pruner, 90*24*time.Hour, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if expirer.calls != 1 || sweeper.calls != 1 || cleaner.calls != 1 || pruner.calls != 1 {
		t.Fatalf("not all steps ran: %d %d %d %d", expirer.calls, sweeper.calls, cleaner.calls, pruner.calls)
	}
	if pruner.retention != 90*24*time.Hour {
		t.Fatalf("unexpected retention: %v", pruner.retention)
	}
}

func TestRunContinuesPastFailedStep(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	sweeper := &fakeSweeper{}
	cleaner := &fakeCleaner{}
	pruner := &fakePruner{}

	job := deadline.New(expirer, sweeper, cleaner, pruner, 0, nil)
	err := job.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error from failed step")
	}
	if sweeper.calls != 1 || cleaner.calls != 1 || pruner.calls != 1 {
		t.Fatalf("later steps must still run: %d %d %d", sweeper.calls, cleaner.calls, pruner.calls)
	}
}

func TestRunSkipsNilDependencies(t *testing.T) {
	job := deadline.New(nil, nil, nil, nil, 0, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run with nil deps: %v", err)
	}
}
