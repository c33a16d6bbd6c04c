package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/matchodds/internal/domain/match"
)

type capturingObserver struct {
	mu        sync.Mutex
	summaries []SweepSummary
}

func (o *capturingObserver) SweepFinished(_ context.Context, summary SweepSummary) {
	o.mu.Lock()
	o.summaries = append(o.summaries, summary)
	o.mu.Unlock()
}

func (o *capturingObserver) last(t *testing.T) SweepSummary {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.summaries) == 0 {
		t.Fatalf("no sweep summary recorded")
	}
	return o.summaries[len(o.summaries)-1]
}

func newTestScheduler(repo match.Repository, executors StageExecutors, sink *recordingSink, guard *ClaimGuard, delay time.Duration) (*PreloadScheduler, *capturingObserver) {
	observer := &capturingObserver{}
	scheduler := NewPreloadScheduler(
		repo,
		newTestPipeline(repo, executors, sink),
		guard,
		PreloadConfig{ItemDelay: delay},
		observer,
		nil,
	)
	return scheduler, observer
}

func waitSweep(t *testing.T, scheduler *PreloadScheduler) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		scheduler.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("sweep did not finish in time")
	}
}

func TestPreloadScheduler_SweepCompletesAllAndIgnoresSecondStart(t *testing.T) {
	t.Parallel()

	repo := newFakeMatchRepo(match.Record{ID: "A"}, match.Record{ID: "B"}, match.Record{ID: "C"})
	executors := newFakeExecutors()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	executors.europeInitial = func(_ context.Context, matchID string) ([]match.EuropeOddsQuote, error) {
		if matchID == "A" {
			once.Do(func() { close(started) })
			<-release
		}
		return []match.EuropeOddsQuote{}, nil
	}
	sink := &recordingSink{}
	scheduler, observer := newTestScheduler(repo, executors, sink, nil, 0)

	if !scheduler.Start(context.Background()) {
		t.Fatalf("first start must launch a sweep")
	}
	<-started
	if !scheduler.IsRunning() {
		t.Fatalf("scheduler must report running during a sweep")
	}
	if scheduler.Start(context.Background()) {
		t.Fatalf("second start while running must be a no-op")
	}
	close(release)
	waitSweep(t, scheduler)

	if scheduler.IsRunning() {
		t.Fatalf("scheduler must not be running after the sweep returns")
	}
	for _, id := range []string{"A", "B", "C"} {
		if !repo.record(id).IsDetailComplete() {
			t.Fatalf("match %s not completed", id)
		}
		if got := executors.callCount(id); got != 1 {
			t.Fatalf("match %s processed %d times, want 1", id, got)
		}
		if got := len(sink.eventsFor(id)); got != 6 {
			t.Fatalf("match %s got %d events, want 6", id, got)
		}
	}

	summary := observer.last(t)
	if summary.Total != 3 || summary.Succeeded != 3 || summary.Stopped {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.SweepID == "" {
		t.Fatalf("sweep id must be set")
	}
}

func TestPreloadScheduler_SkipsCompletedMatches(t *testing.T) {
	t.Parallel()

	completed := match.Record{ID: "B", Details: match.NewDetails(testTime())}
	completed.Details.Status = match.StatusCompleted
	completed.Details.Progress = 100

	repo := newFakeMatchRepo(match.Record{ID: "A"}, completed)
	executors := newFakeExecutors()
	scheduler, observer := newTestScheduler(repo, executors, &recordingSink{}, nil, 0)

	scheduler.Start(context.Background())
	waitSweep(t, scheduler)

	if got := executors.callCount("B"); got != 0 {
		t.Fatalf("completed match must be skipped, processed %d times", got)
	}
	if got := executors.callCount("A"); got != 1 {
		t.Fatalf("incomplete match must be processed once, got %d", got)
	}
	if summary := observer.last(t); summary.Skipped != 1 || summary.Processed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestPreloadScheduler_RequestStopFinishesInFlightMatchOnly(t *testing.T) {
	t.Parallel()

	repo := newFakeMatchRepo(match.Record{ID: "A"}, match.Record{ID: "B"}, match.Record{ID: "C"})
	executors := newFakeExecutors()
	started := make(chan struct{})
	release := make(chan struct{})
	executors.europeInitial = func(_ context.Context, matchID string) ([]match.EuropeOddsQuote, error) {
		if matchID == "A" {
			close(started)
			<-release
		}
		return []match.EuropeOddsQuote{}, nil
	}
	scheduler, observer := newTestScheduler(repo, executors, &recordingSink{}, nil, time.Hour)

	scheduler.Start(context.Background())
	<-started
	if !scheduler.RequestStop() {
		t.Fatalf("stop must be accepted while running")
	}
	close(release)
	waitSweep(t, scheduler)

	if !repo.record("A").IsDetailComplete() {
		t.Fatalf("in-flight match must run to completion")
	}
	if executors.callCount("B") != 0 || executors.callCount("C") != 0 {
		t.Fatalf("no further match may start after a stop request")
	}
	if scheduler.IsRunning() {
		t.Fatalf("scheduler must not be running after stop")
	}
	if summary := observer.last(t); !summary.Stopped || summary.Processed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if scheduler.Status().StopRequested {
		t.Fatalf("stop flag must be reset when the sweep ends")
	}
}

func TestPreloadScheduler_StopInterruptsDelay(t *testing.T) {
	t.Parallel()

	repo := newFakeMatchRepo(match.Record{ID: "A"}, match.Record{ID: "B"})
	executors := newFakeExecutors()
	historyDone := make(chan struct{})
	executors.history = func(_ context.Context, matchID string) (match.History, error) {
		if matchID == "A" {
			close(historyDone)
		}
		return match.History{}, nil
	}
	scheduler, _ := newTestScheduler(repo, executors, &recordingSink{}, nil, time.Hour)

	scheduler.Start(context.Background())
	<-historyDone
	scheduler.RequestStop()
	waitSweep(t, scheduler)

	if executors.callCount("B") != 0 {
		t.Fatalf("match after the delay must not start once stopped")
	}
}

func TestPreloadScheduler_SkipsClaimedMatches(t *testing.T) {
	t.Parallel()

	repo := newFakeMatchRepo(match.Record{ID: "A"}, match.Record{ID: "B"})
	executors := newFakeExecutors()
	guard := NewClaimGuard()
	guard.TryAcquire("B")
	scheduler, observer := newTestScheduler(repo, executors, &recordingSink{}, guard, 0)

	scheduler.Start(context.Background())
	waitSweep(t, scheduler)

	if executors.callCount("B") != 0 {
		t.Fatalf("claimed match must be skipped")
	}
	if !guard.IsClaimed("B") {
		t.Fatalf("foreign claim must be left untouched")
	}
	if guard.IsClaimed("A") {
		t.Fatalf("sweep must release its own claims")
	}
	if summary := observer.last(t); summary.Busy != 1 || summary.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestPreloadScheduler_RequestStopWhenIdle(t *testing.T) {
	t.Parallel()

	scheduler, _ := newTestScheduler(newFakeMatchRepo(), newFakeExecutors(), &recordingSink{}, nil, 0)
	if scheduler.RequestStop() {
		t.Fatalf("stop must be a no-op when idle")
	}
	if scheduler.IsRunning() {
		t.Fatalf("idle scheduler must not be running")
	}
}

func TestPreloadScheduler_StopFlagResetForNextSweep(t *testing.T) {
	t.Parallel()

	repo := newFakeMatchRepo(match.Record{ID: "A"}, match.Record{ID: "B"})
	executors := newFakeExecutors()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	executors.europeInitial = func(_ context.Context, matchID string) ([]match.EuropeOddsQuote, error) {
		if matchID == "A" {
			once.Do(func() {
				close(started)
				<-release
			})
		}
		return []match.EuropeOddsQuote{}, nil
	}
	scheduler, observer := newTestScheduler(repo, executors, &recordingSink{}, nil, 0)

	scheduler.Start(context.Background())
	<-started
	scheduler.RequestStop()
	close(release)
	waitSweep(t, scheduler)

	if !scheduler.Start(context.Background()) {
		t.Fatalf("a new sweep must start after a stopped one")
	}
	waitSweep(t, scheduler)

	if executors.callCount("B") != 1 {
		t.Fatalf("second sweep must process the remaining match")
	}
	if summary := observer.last(t); summary.Stopped || summary.Skipped != 1 {
		t.Fatalf("unexpected second summary: %+v", summary)
	}
}

func TestPreloadScheduler_DuplicateIDsRunOncePerSweep(t *testing.T) {
	t.Parallel()

	repo := newFakeMatchRepo(match.Record{ID: "A"}, match.Record{ID: "B"})
	repo.ids = []string{"A", "A", "B"}
	executors := newFakeExecutors()
	scheduler, observer := newTestScheduler(repo, executors, &recordingSink{}, nil, 0)

	scheduler.Start(context.Background())
	waitSweep(t, scheduler)

	if got := executors.callCount("A"); got != 1 {
		t.Fatalf("duplicate id must run once, got %d", got)
	}
	if got := executors.callCount("B"); got != 1 {
		t.Fatalf("match B must run once, got %d", got)
	}
	summary := observer.last(t)
	if summary.Total != 3 || summary.Skipped != 1 || summary.Succeeded != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestPreloadScheduler_NoDelayBeforeCompletedTail(t *testing.T) {
	t.Parallel()

	done := func(id string) match.Record {
		rec := match.Record{ID: id, Details: match.NewDetails(testTime())}
		rec.Details.Status = match.StatusCompleted
		rec.Details.Progress = 100
		return rec
	}
	repo := newFakeMatchRepo(match.Record{ID: "A"}, done("B"), done("C"))
	executors := newFakeExecutors()
	scheduler, observer := newTestScheduler(repo, executors, &recordingSink{}, nil, time.Hour)

	scheduler.Start(context.Background())
	waitSweep(t, scheduler)

	if summary := observer.last(t); summary.Succeeded != 1 || summary.Skipped != 2 || summary.Stopped {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestPreloadScheduler_StatusReportsActiveClaims(t *testing.T) {
	t.Parallel()

	guard := NewClaimGuard()
	scheduler, _ := newTestScheduler(newFakeMatchRepo(), newFakeExecutors(), &recordingSink{}, guard, 0)
	if got := scheduler.Status().ActiveClaims; got != 0 {
		t.Fatalf("unexpected active claims: %d", got)
	}

	guard.TryAcquire("A")
	guard.TryAcquire("B")
	if got := scheduler.Status().ActiveClaims; got != 2 {
		t.Fatalf("unexpected active claims: got=%d want=2", got)
	}
}
