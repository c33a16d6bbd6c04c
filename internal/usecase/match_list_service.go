package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
)

// MatchSource discovers matches on the listing site and fetches their header data.
type MatchSource interface {
	DiscoverMatchIDs(ctx context.Context) ([]string, error)
	FetchBasicInfo(ctx context.Context, matchID string) (match.Record, error)
}

// LogoStore keeps a local copy of a team logo and returns its public path.
type LogoStore interface {
	Store(ctx context.Context, teamName, logoURL string) (string, error)
}

type MatchListConfig struct {
	Workers          int
	ItemDelay        time.Duration
	PreloadStopGrace time.Duration
	AutoPreload      bool
	AutoPreloadDelay time.Duration
}

type CrawlResult struct {
	Matches  []match.Record
	Created  int
	Failed   int
	Fallback bool
	Message  string
}

// MatchListService rebuilds the stored match set from the listing site.
type MatchListService struct {
	repo        match.Repository
	source      MatchSource
	logos       LogoStore
	broadcaster *ProgressBroadcaster
	preload     *PreloadScheduler
	cfg         MatchListConfig
	logger      *logging.Logger

	autoPreloadMu    sync.Mutex
	autoPreloadTimer *time.Timer
}

func NewMatchListService(
	repo match.Repository,
	source MatchSource,
	logos LogoStore,
	broadcaster *ProgressBroadcaster,
	preload *PreloadScheduler,
	cfg MatchListConfig,
	logger *logging.Logger,
) *MatchListService {
	if logger == nil {
		logger = logging.Default()
	}
	if broadcaster == nil {
		broadcaster = NewProgressBroadcaster(logger)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ItemDelay < 0 {
		cfg.ItemDelay = 0
	}
	if cfg.PreloadStopGrace <= 0 {
		cfg.PreloadStopGrace = 500 * time.Millisecond
	}
	if cfg.AutoPreloadDelay <= 0 {
		cfg.AutoPreloadDelay = 2 * time.Second
	}

	return &MatchListService{
		repo:        repo,
		source:      source,
		logos:       logos,
		broadcaster: broadcaster,
		preload:     preload,
		cfg:         cfg,
		logger:      logger,
	}
}

// CrawlMatchList discovers the current matches, replaces the stored set with
// fresh records and optionally schedules a preload sweep. When discovery
// fails the stored records are returned as a fallback.
func (s *MatchListService) CrawlMatchList(ctx context.Context, autoPreload bool) (CrawlResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchListService.CrawlMatchList")
	defer span.End()

	s.stopPreload(ctx)

	ids, err := s.source.DiscoverMatchIDs(ctx)
	if err == nil && len(ids) == 0 {
		err = fmt.Errorf("no matches discovered")
	}
	if err != nil {
		s.logger.WarnContext(ctx, "discover match ids failed", "error", err)
		return s.fallback(ctx, err)
	}
	ids = dedupeIDs(ids)

	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return CrawlResult{}, fmt.Errorf("clear match records: %w", err)
	}
	s.logger.InfoContext(ctx, "match list discovered", "count", len(ids), "cleared", deleted)

	records, failed, err := s.crawlAll(ctx, ids)
	if err != nil {
		return CrawlResult{}, err
	}

	result := CrawlResult{
		Matches: records,
		Created: len(records) - failed,
		Failed:  failed,
		Message: fmt.Sprintf("crawled %d matches", len(records)-failed),
	}
	if autoPreload {
		s.scheduleAutoPreload(ctx)
	}
	return result, nil
}

// AutoPreloadEnabled reports the configured default for scheduling a sweep
// after a crawl.
func (s *MatchListService) AutoPreloadEnabled() bool {
	return s.cfg.AutoPreload
}

func (s *MatchListService) crawlAll(ctx context.Context, ids []string) ([]match.Record, int, error) {
	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return nil, 0, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	total := len(ids)
	records := make([]match.Record, total)
	var failed atomic.Int32
	var done atomic.Int32

	var workers sync.WaitGroup
	for i, matchID := range ids {
		i, matchID := i, matchID
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			record, ok := s.crawlOne(ctx, matchID, i, total)
			if !ok {
				failed.Add(1)
			}
			records[i] = record

			batchIndex := int(done.Add(1))
			s.broadcaster.BroadcastMatchesBatch(ctx, []match.Record{record}, batchIndex, total)

			if batchIndex < total && s.cfg.ItemDelay > 0 {
				sleepContext(ctx, s.cfg.ItemDelay)
			}
		}); err != nil {
			workers.Done()
			return nil, 0, fmt.Errorf("submit crawl task to worker pool: %w", err)
		}
	}
	workers.Wait()

	return records, int(failed.Load()), nil
}

func (s *MatchListService) crawlOne(ctx context.Context, matchID string, index, total int) (match.Record, bool) {
	record, err := s.source.FetchBasicInfo(ctx, matchID)
	if err != nil {
		s.logger.WarnContext(ctx, "fetch match basic info failed", "match_id", matchID, "error", err)
		s.broadcaster.Broadcast(ctx, matchID, 0, match.StatusFailed, "match crawl failed: "+err.Error())
		return match.Record{
			ID:       matchID,
			HomeTeam: match.Team{Name: "unknown"},
			AwayTeam: match.Team{Name: "unknown"},
		}, false
	}
	record.ID = matchID
	record.Details = nil

	pct := int(math.Round(float64(index+1) / float64(total) * 100))
	s.broadcaster.Broadcast(ctx, matchID, pct, match.StatusInProgress,
		fmt.Sprintf("crawling match %s, %d%%", matchID, pct))

	record.HomeTeam.Logo = s.storeLogo(ctx, record.HomeTeam)
	record.AwayTeam.Logo = s.storeLogo(ctx, record.AwayTeam)

	if err := s.repo.Save(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "save match record failed", "match_id", matchID, "error", err)
	}
	s.broadcaster.Broadcast(ctx, matchID, 100, match.StatusPartialCompleted,
		fmt.Sprintf("match %s basic info saved, waiting for details", matchID))
	return record, true
}

func (s *MatchListService) storeLogo(ctx context.Context, team match.Team) string {
	logo := strings.TrimSpace(team.Logo)
	if s.logos == nil || logo == "" || strings.HasPrefix(logo, "/") {
		return logo
	}

	path, err := s.logos.Store(ctx, team.Name, logo)
	if err != nil {
		s.logger.WarnContext(ctx, "store team logo failed", "team", team.Name, "error", err)
		return logo
	}
	return path
}

func (s *MatchListService) fallback(ctx context.Context, cause error) (CrawlResult, error) {
	existing, err := s.repo.List(ctx)
	if err != nil || len(existing) == 0 {
		return CrawlResult{}, fmt.Errorf("%w: discover matches: %v", ErrDependencyUnavailable, cause)
	}

	return CrawlResult{
		Matches:  existing,
		Fallback: true,
		Message:  fmt.Sprintf("match crawl failed, returning %d stored matches: %v", len(existing), cause),
	}, nil
}

// stopPreload asks a running sweep to stop and gives it a short grace period.
func (s *MatchListService) stopPreload(ctx context.Context) {
	s.CancelAutoPreload()
	if s.preload == nil || !s.preload.RequestStop() {
		return
	}
	s.logger.InfoContext(ctx, "stopping preload before match list crawl")

	done := make(chan struct{})
	go func() {
		s.preload.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.cfg.PreloadStopGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	}
}

func (s *MatchListService) scheduleAutoPreload(ctx context.Context) {
	if s.preload == nil {
		return
	}
	preloadCtx := context.WithoutCancel(ctx)

	s.autoPreloadMu.Lock()
	defer s.autoPreloadMu.Unlock()
	if s.autoPreloadTimer != nil {
		s.autoPreloadTimer.Stop()
	}
	s.autoPreloadTimer = time.AfterFunc(s.cfg.AutoPreloadDelay, func() {
		if s.preload.Start(preloadCtx) {
			s.logger.InfoContext(preloadCtx, "preload started after match list crawl")
		}
	})
}

// CancelAutoPreload drops a sweep scheduled by the last crawl.
func (s *MatchListService) CancelAutoPreload() {
	s.autoPreloadMu.Lock()
	defer s.autoPreloadMu.Unlock()
	if s.autoPreloadTimer != nil {
		s.autoPreloadTimer.Stop()
		s.autoPreloadTimer = nil
	}
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
