package cache

import (
	"context"

	"github.com/riskibarqy/matchodds/internal/domain/match"
	basecache "github.com/riskibarqy/matchodds/internal/platform/cache"
)

const (
	matchListKey  = "match:list"
	matchIDsKey   = "match:ids"
	matchIDPrefix = "match:id:"
	matchPrefix   = "match:"
)

type MatchRepository struct {
	next  match.Repository
	cache *basecache.Store
}

func NewMatchRepository(next match.Repository, cache *basecache.Store) *MatchRepository {
	return &MatchRepository{next: next, cache: cache}
}

func (r *MatchRepository) Get(ctx context.Context, matchID string) (match.Record, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, matchIDPrefix+matchID, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.Get(ctx, matchID)
		if err != nil {
			return nil, err
		}
		return cachedMatchByID{value: item.Clone(), exists: exists}, nil
	})
	if err != nil {
		return match.Record{}, false, err
	}

	cached, _ := v.(cachedMatchByID)
	if !cached.exists {
		return match.Record{}, false, nil
	}
	return cached.value.Clone(), true, nil
}

func (r *MatchRepository) Save(ctx context.Context, record match.Record) error {
	if err := r.next.Save(ctx, record); err != nil {
		return err
	}
	r.cache.Delete(ctx, matchIDPrefix+record.ID, matchListKey, matchIDsKey)
	return nil
}

func (r *MatchRepository) List(ctx context.Context) ([]match.Record, error) {
	v, err := r.cache.GetOrLoad(ctx, matchListKey, func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return cloneRecords(items), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]match.Record)
	return cloneRecords(items), nil
}

func (r *MatchRepository) ListIDs(ctx context.Context) ([]string, error) {
	v, err := r.cache.GetOrLoad(ctx, matchIDsKey, func(ctx context.Context) (any, error) {
		ids, err := r.next.ListIDs(ctx)
		if err != nil {
			return nil, err
		}
		return append([]string(nil), ids...), nil
	})
	if err != nil {
		return nil, err
	}

	ids, _ := v.([]string)
	return append([]string(nil), ids...), nil
}

func (r *MatchRepository) DeleteAll(ctx context.Context) (int, error) {
	removed, err := r.next.DeleteAll(ctx)
	r.cache.DeletePrefix(ctx, matchPrefix)
	if err != nil {
		return removed, err
	}
	return removed, nil
}

type cachedMatchByID struct {
	value  match.Record
	exists bool
}

func cloneRecords(items []match.Record) []match.Record {
	out := make([]match.Record, 0, len(items))
	for _, item := range items {
		out = append(out, item.Clone())
	}
	return out
}
