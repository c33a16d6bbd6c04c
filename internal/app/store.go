package app

import (
	"context"
	"fmt"

	"github.com/riskibarqy/matchodds/internal/config"
	"github.com/riskibarqy/matchodds/internal/domain/match"
	repocache "github.com/riskibarqy/matchodds/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/matchodds/internal/infrastructure/repository/jsonfile"
	"github.com/riskibarqy/matchodds/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/matchodds/internal/infrastructure/repository/postgres"
	basecache "github.com/riskibarqy/matchodds/internal/platform/cache"
	"github.com/riskibarqy/matchodds/internal/platform/dbconn"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
)

type matchStore struct {
	repo  match.Repository
	files match.FileLister
	close func(ctx context.Context) error
}

func buildStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (matchStore, error) {
	store := matchStore{close: func(context.Context) error { return nil }}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		store.repo = memory.NewMatchRepository()
	case config.StoreJSONFile:
		files, err := jsonfile.NewMatchStore(cfg.MatchJSONDir, logger)
		if err != nil {
			return matchStore{}, fmt.Errorf("open match json store: %w", err)
		}
		store.repo = files
		store.files = files
	case config.StorePostgres:
		db, err := dbconn.Open(ctx, cfg.DBURL, cfg.DBDisablePreparedBinary)
		if err != nil {
			return matchStore{}, err
		}
		store.repo = postgres.NewMatchRepository(db)
		store.close = func(context.Context) error { return db.Close() }
	default:
		return matchStore{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	if cfg.CacheEnabled {
		store.repo = repocache.NewMatchRepository(store.repo, basecache.NewStore(cfg.CacheTTL))
	}

	logger.Info("match store ready", "driver", cfg.StoreDriver, "cache", cfg.CacheEnabled)
	return store, nil
}
