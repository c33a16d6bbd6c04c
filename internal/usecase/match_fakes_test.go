package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/domain/progress"
)

type fakeMatchRepo struct {
	mu      sync.Mutex
	records map[string]match.Record
	saves   []match.Record
	saveErr error
	ids     []string
}

func newFakeMatchRepo(records ...match.Record) *fakeMatchRepo {
	repo := &fakeMatchRepo{records: make(map[string]match.Record)}
	for _, r := range records {
		repo.records[r.ID] = r.Clone()
	}
	return repo
}

func (r *fakeMatchRepo) Get(_ context.Context, matchID string) (match.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[matchID]
	return rec.Clone(), ok, nil
}

func (r *fakeMatchRepo) Save(_ context.Context, record match.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, record.Clone())
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records[record.ID] = record.Clone()
	return nil
}

func (r *fakeMatchRepo) List(ctx context.Context) ([]match.Record, error) {
	ids, _ := r.ListIDs(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]match.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.records[id].Clone())
	}
	return out, nil
}

func (r *fakeMatchRepo) ListIDs(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ids != nil {
		return append([]string(nil), r.ids...), nil
	}
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeMatchRepo) DeleteAll(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.records)
	r.records = make(map[string]match.Record)
	return n, nil
}

func (r *fakeMatchRepo) record(id string) match.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id].Clone()
}

type fakeExecutors struct {
	mu    sync.Mutex
	calls map[string]int

	europeInitial func(ctx context.Context, matchID string) ([]match.EuropeOddsQuote, error)
	europeLive    func(ctx context.Context, matchID string) ([]match.EuropeOddsQuote, error)
	asia          func(ctx context.Context, matchID string) ([]match.AsiaHandicapQuote, error)
	history       func(ctx context.Context, matchID string) (match.History, error)
}

func newFakeExecutors() *fakeExecutors {
	return &fakeExecutors{calls: make(map[string]int)}
}

func (f *fakeExecutors) track(matchID string) {
	f.mu.Lock()
	f.calls[matchID]++
	f.mu.Unlock()
}

func (f *fakeExecutors) callCount(matchID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[matchID]
}

func (f *fakeExecutors) EuropeInitialOdds(ctx context.Context, matchID string) ([]match.EuropeOddsQuote, error) {
	f.track(matchID)
	if f.europeInitial != nil {
		return f.europeInitial(ctx, matchID)
	}
	return []match.EuropeOddsQuote{{Company: "Bet365", HomeOdds: floatPtr(1.9)}}, nil
}

func (f *fakeExecutors) EuropeLiveOdds(ctx context.Context, matchID string) ([]match.EuropeOddsQuote, error) {
	if f.europeLive != nil {
		return f.europeLive(ctx, matchID)
	}
	return []match.EuropeOddsQuote{{Company: "Bet365", HomeOdds: floatPtr(1.85)}}, nil
}

func (f *fakeExecutors) AsiaHandicapOdds(ctx context.Context, matchID string) ([]match.AsiaHandicapQuote, error) {
	if f.asia != nil {
		return f.asia(ctx, matchID)
	}
	return []match.AsiaHandicapQuote{{Company: "澳门", InitialHandicap: "半球"}}, nil
}

func (f *fakeExecutors) History(ctx context.Context, matchID string) (match.History, error) {
	if f.history != nil {
		return f.history(ctx, matchID)
	}
	return match.History{HeadToHead: []match.HistoryEntry{{League: "英超", Score: "1-0"}}}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []progress.Event
	topics []string
	err    error
	panic  bool
}

func (s *recordingSink) Publish(_ context.Context, topic string, payload any) error {
	if s.panic {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	if event, ok := payload.(progress.Event); ok {
		s.events = append(s.events, event)
	}
	return s.err
}

func (s *recordingSink) eventsFor(matchID string) []progress.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []progress.Event
	for _, e := range s.events {
		if e.MatchID == matchID {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) topicCount(topic string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func floatPtr(v float64) *float64 { return &v }

var errNetworkTimeout = errors.New("network timeout")

func newTestPipeline(repo match.Repository, executors StageExecutors, sink *recordingSink) *MatchDetailPipeline {
	return NewMatchDetailPipeline(repo, executors, NewProgressBroadcaster(nil, sink), nil)
}

func testTime() time.Time {
	return time.Date(2025, 5, 15, 1, 0, 0, 0, time.UTC)
}
