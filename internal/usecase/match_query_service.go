package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
)

type MatchQueryService struct {
	repo   match.Repository
	files  match.FileLister
	logger *logging.Logger
}

// NewMatchQueryService serves stored records. files may be nil when the
// store does not keep one document per file.
func NewMatchQueryService(repo match.Repository, files match.FileLister, logger *logging.Logger) *MatchQueryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchQueryService{
		repo:   repo,
		files:  files,
		logger: logger,
	}
}

func (s *MatchQueryService) List(ctx context.Context) ([]match.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.List")
	defer span.End()

	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list match records: %w", err)
	}
	return records, nil
}

func (s *MatchQueryService) Get(ctx context.Context, matchID string) (match.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.Get")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Record{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	record, exists, err := s.repo.Get(ctx, matchID)
	if err != nil {
		return match.Record{}, fmt.Errorf("get match record: %w", err)
	}
	if !exists {
		return match.Record{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}
	return record, nil
}

func (s *MatchQueryService) ListFiles(ctx context.Context) ([]match.FileInfo, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.ListFiles")
	defer span.End()

	if s.files == nil {
		return nil, fmt.Errorf("%w: match store has no file listing", ErrDependencyUnavailable)
	}
	files, err := s.files.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list match files: %w", err)
	}
	return files, nil
}

// Clear deletes every stored record and returns how many were removed.
func (s *MatchQueryService) Clear(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.Clear")
	defer span.End()

	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear match records: %w", err)
	}
	s.logger.InfoContext(ctx, "match records cleared", "deleted", deleted)
	return deleted, nil
}
