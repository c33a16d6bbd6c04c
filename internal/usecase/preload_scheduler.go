package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
)

type PreloadConfig struct {
	ItemDelay time.Duration
}

// SweepSummary describes one finished preload sweep.
type SweepSummary struct {
	SweepID    string
	Total      int
	Processed  int
	Skipped    int
	Succeeded  int
	Failed     int
	Busy       int
	Stopped    bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// SweepObserver is notified after every sweep.
type SweepObserver interface {
	SweepFinished(ctx context.Context, summary SweepSummary)
}

// PreloadStatus is a point-in-time view of the scheduler.
type PreloadStatus struct {
	Running       bool      `json:"running"`
	StopRequested bool      `json:"stopRequested"`
	ActiveClaims  int       `json:"activeClaims"`
	SweepID       string    `json:"sweepId,omitempty"`
	StartedAt     time.Time `json:"startedAt,omitempty"`
}

// SchedulerState is the process-wide preload state. Only one sweep runs at
// a time and the stop flag is cleared when a sweep starts and when it ends.
type SchedulerState struct {
	mu            sync.Mutex
	running       bool
	stopRequested bool
	sweepID       string
	startedAt     time.Time
}

func (s *SchedulerState) tryStart(sweepID string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.running = true
	s.stopRequested = false
	s.sweepID = sweepID
	s.startedAt = at
	return true
}

func (s *SchedulerState) requestStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	s.stopRequested = true
	return true
}

func (s *SchedulerState) isStopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

func (s *SchedulerState) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.stopRequested = false
	s.sweepID = ""
	s.startedAt = time.Time{}
}

func (s *SchedulerState) snapshot() PreloadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return PreloadStatus{
		Running:       s.running,
		StopRequested: s.stopRequested,
		SweepID:       s.sweepID,
		StartedAt:     s.startedAt,
	}
}

// PreloadScheduler walks every stored match in name order and runs the
// detail pipeline for the ones that are not complete yet.
type PreloadScheduler struct {
	repo     match.Repository
	pipeline *MatchDetailPipeline
	guard    *ClaimGuard
	cfg      PreloadConfig
	observer SweepObserver
	logger   *logging.Logger
	now      func() time.Time

	state SchedulerState
	wake  chan struct{}
	wg    sync.WaitGroup
}

func NewPreloadScheduler(
	repo match.Repository,
	pipeline *MatchDetailPipeline,
	guard *ClaimGuard,
	cfg PreloadConfig,
	observer SweepObserver,
	logger *logging.Logger,
) *PreloadScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if guard == nil {
		guard = NewClaimGuard()
	}
	if cfg.ItemDelay < 0 {
		cfg.ItemDelay = 0
	}

	return &PreloadScheduler{
		repo:     repo,
		pipeline: pipeline,
		guard:    guard,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
		now:      time.Now,
		wake:     make(chan struct{}, 1),
	}
}

// Start launches a sweep in the background. It returns false without
// starting anything when a sweep is already running.
func (s *PreloadScheduler) Start(ctx context.Context) bool {
	sweepID := uuid.NewString()
	if !s.state.tryStart(sweepID, s.now()) {
		s.logger.InfoContext(ctx, "preload already running")
		return false
	}

	select {
	case <-s.wake:
	default:
	}

	sweepCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.state.finish()

		summary := s.sweep(sweepCtx, sweepID)
		if s.observer != nil {
			s.observer.SweepFinished(sweepCtx, summary)
		}
	}()
	return true
}

// RequestStop asks the running sweep to stop before its next match. The
// match in flight always finishes. Returns false when nothing is running.
func (s *PreloadScheduler) RequestStop() bool {
	if !s.state.requestStop() {
		return false
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *PreloadScheduler) IsRunning() bool {
	return s.state.snapshot().Running
}

func (s *PreloadScheduler) Status() PreloadStatus {
	status := s.state.snapshot()
	status.ActiveClaims = s.guard.Len()
	return status
}

// Wait blocks until the running sweep, if any, has returned.
func (s *PreloadScheduler) Wait() {
	s.wg.Wait()
}

func (s *PreloadScheduler) sweep(ctx context.Context, sweepID string) SweepSummary {
	ctx, span := startUsecaseSpan(ctx, "usecase.PreloadScheduler.sweep")
	defer span.End()

	summary := SweepSummary{SweepID: sweepID, StartedAt: s.now()}
	logger := s.logger.With("sweep_id", sweepID)

	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "list match ids for preload failed", "error", err)
		summary.FinishedAt = s.now()
		return summary
	}
	summary.Total = len(ids)
	logger.InfoContext(ctx, "preload started", "total", len(ids))

	processed := make(map[string]struct{}, len(ids))
	for i, matchID := range ids {
		if s.state.isStopRequested() {
			summary.Stopped = true
			logger.InfoContext(ctx, "preload stop requested", "remaining", len(ids)-i)
			break
		}
		if _, seen := processed[matchID]; seen {
			summary.Skipped++
			continue
		}
		processed[matchID] = struct{}{}

		record, exists, err := s.repo.Get(ctx, matchID)
		if err != nil {
			logger.WarnContext(ctx, "load match for preload failed", "match_id", matchID, "error", err)
			summary.Skipped++
			continue
		}
		if !exists || record.IsDetailComplete() {
			summary.Skipped++
			continue
		}
		if !s.guard.TryAcquire(matchID) {
			logger.InfoContext(ctx, "match already processing, preload skips it", "match_id", matchID)
			summary.Busy++
			continue
		}

		outcome := s.pipeline.Run(ctx, matchID)
		s.guard.Release(matchID)

		summary.Processed++
		if outcome.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}

		if s.hasPending(ctx, ids[i+1:], processed) {
			s.pause()
		}
	}

	if !summary.Stopped && s.state.isStopRequested() {
		summary.Stopped = true
	}
	summary.FinishedAt = s.now()
	logger.InfoContext(ctx, "preload finished",
		"total", summary.Total,
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"busy", summary.Busy,
		"stopped", summary.Stopped,
	)
	return summary
}

// hasPending reports whether any of the remaining ids still needs the
// pipeline, so the sweep does not wait in front of a tail of skips.
func (s *PreloadScheduler) hasPending(ctx context.Context, rest []string, processed map[string]struct{}) bool {
	for _, matchID := range rest {
		if _, seen := processed[matchID]; seen {
			continue
		}
		record, exists, err := s.repo.Get(ctx, matchID)
		if err != nil {
			return true
		}
		if exists && !record.IsDetailComplete() {
			return true
		}
	}
	return false
}

// pause waits for the inter-item delay or until a stop is requested.
func (s *PreloadScheduler) pause() {
	if s.cfg.ItemDelay <= 0 || s.state.isStopRequested() {
		return
	}

	timer := time.NewTimer(s.cfg.ItemDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-s.wake:
	}
}
