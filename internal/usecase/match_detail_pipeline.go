package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
)

// StageExecutors fetch the raw data of each detail stage. An executor may
// return an empty result instead of an error; that counts as a successful stage.
type StageExecutors interface {
	EuropeInitialOdds(ctx context.Context, matchID string) ([]match.EuropeOddsQuote, error)
	EuropeLiveOdds(ctx context.Context, matchID string) ([]match.EuropeOddsQuote, error)
	AsiaHandicapOdds(ctx context.Context, matchID string) ([]match.AsiaHandicapQuote, error)
	History(ctx context.Context, matchID string) (match.History, error)
}

// PipelineState names the states of one pipeline run.
type PipelineState string

const (
	PipelineNotStarted       PipelineState = "notStarted"
	PipelineInProgress       PipelineState = "inProgress"
	PipelinePartialCompleted PipelineState = "partialCompleted"
	PipelineCompleted        PipelineState = "completed"
	PipelineFailed           PipelineState = "failed"
)

const (
	progressEntry       = 0
	progressEuropeInit  = 25
	progressEuropeLive  = 50
	progressAsia        = 75
	progressHistory     = 99
	progressCompleted   = 100
	stageNameAssembling = "assemble"
)

// Outcome is what callers of a pipeline run receive. Stage failures are
// reported here and never returned as errors.
type Outcome struct {
	MatchID  string
	Success  bool
	State    PipelineState
	Stage    string
	Status   match.Status
	Progress int
	Err      error
}

type pipelineStage struct {
	name     string
	progress int
	message  string
	run      func(ctx context.Context, executors StageExecutors, record *match.Record) error
}

var pipelineStages = []pipelineStage{
	{
		name:     "europeInitialOdds",
		progress: progressEuropeInit,
		message:  "europe initial odds fetched",
		run: func(ctx context.Context, executors StageExecutors, record *match.Record) error {
			quotes, err := executors.EuropeInitialOdds(ctx, record.ID)
			if err != nil {
				return err
			}
			record.Details.Odds.EuropeInitial = nonNilSlice(quotes)
			return nil
		},
	},
	{
		name:     "europeLiveOdds",
		progress: progressEuropeLive,
		message:  "europe live odds fetched",
		run: func(ctx context.Context, executors StageExecutors, record *match.Record) error {
			quotes, err := executors.EuropeLiveOdds(ctx, record.ID)
			if err != nil {
				return err
			}
			record.Details.Odds.EuropeLive = nonNilSlice(quotes)
			return nil
		},
	},
	{
		name:     "asiaHandicapOdds",
		progress: progressAsia,
		message:  "asia handicap odds fetched",
		run: func(ctx context.Context, executors StageExecutors, record *match.Record) error {
			quotes, err := executors.AsiaHandicapOdds(ctx, record.ID)
			if err != nil {
				return err
			}
			record.Details.Odds.AsiaHandicap = nonNilSlice(quotes)
			return nil
		},
	},
	{
		name:     "history",
		progress: progressHistory,
		message:  "history fetched",
		run: func(ctx context.Context, executors StageExecutors, record *match.Record) error {
			history, err := executors.History(ctx, record.ID)
			if err != nil {
				return err
			}
			record.Details.History = match.History{
				HomeHistory: nonNilSlice(history.HomeHistory),
				AwayHistory: nonNilSlice(history.AwayHistory),
				HeadToHead:  nonNilSlice(history.HeadToHead),
			}
			return nil
		},
	},
}

// MatchDetailPipeline runs the four detail stages of one match, persisting
// and broadcasting after every transition.
type MatchDetailPipeline struct {
	repo        match.Repository
	executors   StageExecutors
	broadcaster *ProgressBroadcaster
	logger      *logging.Logger
	now         func() time.Time
}

func NewMatchDetailPipeline(
	repo match.Repository,
	executors StageExecutors,
	broadcaster *ProgressBroadcaster,
	logger *logging.Logger,
) *MatchDetailPipeline {
	if logger == nil {
		logger = logging.Default()
	}
	if broadcaster == nil {
		broadcaster = NewProgressBroadcaster(logger)
	}

	return &MatchDetailPipeline{
		repo:        repo,
		executors:   executors,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes the pipeline for matchID. Callers must hold the claim.
func (p *MatchDetailPipeline) Run(ctx context.Context, matchID string) Outcome {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchDetailPipeline.Run")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	outcome := Outcome{MatchID: matchID, State: PipelineNotStarted}
	if matchID == "" {
		outcome.State = PipelineFailed
		outcome.Status = match.StatusFailed
		outcome.Err = fmt.Errorf("%w: match id is required", ErrInvalidInput)
		return outcome
	}

	record, exists, err := p.repo.Get(ctx, matchID)
	if err != nil {
		return p.abortBeforeStart(ctx, outcome, fmt.Errorf("load match record: %w", err))
	}
	if !exists {
		return p.abortBeforeStart(ctx, outcome, fmt.Errorf("%w: match=%s", ErrNotFound, matchID))
	}

	record.Details = match.NewDetails(p.now())
	outcome.State = PipelineInProgress
	p.transition(ctx, &record, progressEntry, match.StatusInProgress, "detail crawl started")

	for _, stage := range pipelineStages {
		outcome.Stage = stage.name
		if err := runStage(ctx, stage, p.executors, &record); err != nil {
			return p.fail(ctx, &record, outcome, err)
		}
		outcome.State = PipelinePartialCompleted
		p.transition(ctx, &record, stage.progress, match.StatusPartialCompleted, stage.message)
	}

	outcome.Stage = stageNameAssembling
	outcome.State = PipelineCompleted
	p.transition(ctx, &record, progressCompleted, match.StatusCompleted, "match details completed")

	outcome.Success = true
	outcome.Status = match.StatusCompleted
	outcome.Progress = progressCompleted
	return outcome
}

// transition applies a state change to the record, persists it and then
// broadcasts. A failed save is logged and the broadcast still happens.
func (p *MatchDetailPipeline) transition(ctx context.Context, record *match.Record, value int, status match.Status, message string) {
	record.Details.Status = status
	record.Details.Progress = value
	record.Details.LastUpdated = p.now()
	if status != match.StatusFailed {
		record.Details.Error = ""
	}

	if err := p.repo.Save(ctx, *record); err != nil {
		p.logger.WarnContext(ctx, "persist match details failed",
			"match_id", record.ID,
			"progress", value,
			"status", status,
			"error", err,
		)
	}
	p.broadcaster.Broadcast(ctx, record.ID, value, status, message)
}

func (p *MatchDetailPipeline) fail(ctx context.Context, record *match.Record, outcome Outcome, err error) Outcome {
	p.logger.WarnContext(ctx, "match detail stage failed",
		"match_id", record.ID,
		"stage", outcome.Stage,
		"error", err,
	)

	record.Details.Error = err.Error()
	p.transition(ctx, record, progressEntry, match.StatusFailed, "detail crawl failed: "+err.Error())

	outcome.State = PipelineFailed
	outcome.Status = match.StatusFailed
	outcome.Progress = progressEntry
	outcome.Err = err
	return outcome
}

func (p *MatchDetailPipeline) abortBeforeStart(ctx context.Context, outcome Outcome, err error) Outcome {
	p.logger.WarnContext(ctx, "match detail pipeline not started", "match_id", outcome.MatchID, "error", err)
	p.broadcaster.Broadcast(ctx, outcome.MatchID, progressEntry, match.StatusFailed, "detail crawl failed: "+err.Error())

	outcome.State = PipelineFailed
	outcome.Status = match.StatusFailed
	outcome.Err = err
	return outcome
}

func runStage(ctx context.Context, stage pipelineStage, executors StageExecutors, record *match.Record) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage.name, rec)
		}
	}()
	if executors == nil {
		return errors.New("stage executors are not configured")
	}
	return stage.run(ctx, executors, record)
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
