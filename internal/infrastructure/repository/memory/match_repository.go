package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/riskibarqy/matchodds/internal/domain/match"
)

// MatchRepository keeps records in process memory, ordered like the file store.
type MatchRepository struct {
	mu      sync.RWMutex
	records map[string]match.Record
}

func NewMatchRepository(records ...match.Record) *MatchRepository {
	byID := make(map[string]match.Record, len(records))
	for _, item := range records {
		byID[item.ID] = item.Clone()
	}
	return &MatchRepository{records: byID}
}

func (r *MatchRepository) Get(_ context.Context, matchID string) (match.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.records[matchID]
	if !ok {
		return match.Record{}, false, nil
	}
	return item.Clone(), true, nil
}

func (r *MatchRepository) Save(_ context.Context, record match.Record) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validate match record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.ID] = record.Clone()
	return nil
}

func (r *MatchRepository) List(_ context.Context) ([]match.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Record, 0, len(r.records))
	for _, item := range r.sortedLocked() {
		out = append(out, item.Clone())
	}
	return out, nil
}

func (r *MatchRepository) ListIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := r.sortedLocked()
	out := make([]string, 0, len(sorted))
	for _, item := range sorted {
		out = append(out, item.ID)
	}
	return out, nil
}

func (r *MatchRepository) DeleteAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.records)
	r.records = make(map[string]match.Record)
	return n, nil
}

func (r *MatchRepository) sortedLocked() []match.Record {
	items := make([]match.Record, 0, len(r.records))
	for _, item := range r.records {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return match.FileName(items[i]) < match.FileName(items[j])
	})
	return items
}
