package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/riskibarqy/matchodds/internal/platform/logging"
)

// MatchUpdateService runs the detail pipeline on demand for a single match.
type MatchUpdateService struct {
	pipeline *MatchDetailPipeline
	guard    *ClaimGuard
	logger   *logging.Logger
}

func NewMatchUpdateService(pipeline *MatchDetailPipeline, guard *ClaimGuard, logger *logging.Logger) *MatchUpdateService {
	if logger == nil {
		logger = logging.Default()
	}
	if guard == nil {
		guard = NewClaimGuard()
	}

	return &MatchUpdateService{
		pipeline: pipeline,
		guard:    guard,
		logger:   logger,
	}
}

// UpdateMatch claims matchID and runs the pipeline to completion. The run is
// detached from ctx cancellation so a closed request does not leave a record
// half updated. A claimed id is rejected with ErrAlreadyProcessing.
func (s *MatchUpdateService) UpdateMatch(ctx context.Context, matchID string) (Outcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchUpdateService.UpdateMatch")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return Outcome{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	if !s.guard.TryAcquire(matchID) {
		s.logger.InfoContext(ctx, "match update rejected, already processing", "match_id", matchID)
		return Outcome{MatchID: matchID}, fmt.Errorf("%w: match=%s", ErrAlreadyProcessing, matchID)
	}
	defer s.guard.Release(matchID)

	outcome := s.pipeline.Run(context.WithoutCancel(ctx), matchID)
	if errors.Is(outcome.Err, ErrNotFound) || errors.Is(outcome.Err, ErrInvalidInput) {
		return outcome, outcome.Err
	}
	if outcome.Success {
		s.logger.InfoContext(ctx, "match update completed", "match_id", matchID)
	} else {
		s.logger.WarnContext(ctx, "match update failed", "match_id", matchID, "stage", outcome.Stage, "error", outcome.Err)
	}
	return outcome, nil
}

func (s *MatchUpdateService) IsProcessing(matchID string) bool {
	return s.guard.IsClaimed(matchID)
}
