package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/matchodds/internal/domain/match"
)

func TestMatchUpdateService_UpdateMatch(t *testing.T) {
	t.Parallel()

	repo := newFakeMatchRepo(match.Record{ID: "A"})
	guard := NewClaimGuard()
	service := NewMatchUpdateService(newTestPipeline(repo, newFakeExecutors(), &recordingSink{}), guard, nil)

	outcome, err := service.UpdateMatch(context.Background(), "A")
	if err != nil {
		t.Fatalf("update match: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if service.IsProcessing("A") {
		t.Fatalf("claim must be released after the run")
	}
}

func TestMatchUpdateService_UpdateMatch_AlreadyProcessing(t *testing.T) {
	t.Parallel()

	repo := newFakeMatchRepo(match.Record{ID: "A"})
	executors := newFakeExecutors()
	guard := NewClaimGuard()
	guard.TryAcquire("A")
	service := NewMatchUpdateService(newTestPipeline(repo, executors, &recordingSink{}), guard, nil)

	if !service.IsProcessing("A") {
		t.Fatalf("expected A to be reported as processing")
	}
	_, err := service.UpdateMatch(context.Background(), "A")
	if !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("expected ErrAlreadyProcessing, got %v", err)
	}
	if executors.callCount("A") != 0 {
		t.Fatalf("rejected update must not run the pipeline")
	}
	if !guard.IsClaimed("A") {
		t.Fatalf("rejected update must not release a foreign claim")
	}
}

func TestMatchUpdateService_UpdateMatch_NotFound(t *testing.T) {
	t.Parallel()

	guard := NewClaimGuard()
	service := NewMatchUpdateService(newTestPipeline(newFakeMatchRepo(), newFakeExecutors(), &recordingSink{}), guard, nil)

	_, err := service.UpdateMatch(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if guard.IsClaimed("missing") {
		t.Fatalf("claim must be released on not found")
	}
}

func TestMatchUpdateService_UpdateMatch_StageFailureIsOutcome(t *testing.T) {
	t.Parallel()

	repo := newFakeMatchRepo(match.Record{ID: "X"})
	executors := newFakeExecutors()
	executors.history = func(context.Context, string) (match.History, error) {
		return match.History{}, errNetworkTimeout
	}
	service := NewMatchUpdateService(newTestPipeline(repo, executors, &recordingSink{}), nil, nil)

	outcome, err := service.UpdateMatch(context.Background(), "X")
	if err != nil {
		t.Fatalf("stage failures must not be returned as errors: %v", err)
	}
	if outcome.Success || outcome.Status != match.StatusFailed {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestMatchUpdateService_UpdateMatch_EmptyID(t *testing.T) {
	t.Parallel()

	service := NewMatchUpdateService(newTestPipeline(newFakeMatchRepo(), newFakeExecutors(), &recordingSink{}), nil, nil)
	if _, err := service.UpdateMatch(context.Background(), " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
