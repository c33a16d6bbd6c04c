package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/riskibarqy/matchodds/internal/config"
	"github.com/riskibarqy/matchodds/internal/infrastructure/push"
	"github.com/riskibarqy/matchodds/internal/infrastructure/titan"
	"github.com/riskibarqy/matchodds/internal/interfaces/httpapi"
	"github.com/riskibarqy/matchodds/internal/platform/id"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
	"github.com/riskibarqy/matchodds/internal/platform/resilience"
	"github.com/riskibarqy/matchodds/internal/usecase"
)

// Runtime holds the wired services of one process.
type Runtime struct {
	Server  *http.Server
	Queries *usecase.MatchQueryService
	Updates *usecase.MatchUpdateService
	Crawler *usecase.MatchListService
	Preload *usecase.PreloadScheduler
	Hub     *push.Hub

	logger  *logging.Logger
	closers []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// Build wires the store, the site client, the progress sinks and the
// services. The returned runtime owns every opened resource.
func Build(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	rt := &Runtime{logger: logger}

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.addCloser("store", store.close)

	breaker := resilience.CircuitBreakerConfig{
		Enabled:          cfg.ScraperCircuitEnabled,
		FailureThreshold: cfg.ScraperCircuitFailureCount,
		OpenTimeout:      cfg.ScraperCircuitOpenTimeout,
		HalfOpenMaxReq:   cfg.ScraperCircuitHalfOpenMax,
	}

	siteLogger := logger.Named("titan")
	names, err := loadCompanyNames(cfg.ScraperCompanyNamesFile)
	if err != nil {
		rt.closeQuietly()
		return nil, err
	}

	renderer := titan.NewChromeRenderer(titan.ChromeRendererConfig{
		Headless:    cfg.ScraperHeadless,
		UserAgent:   cfg.ScraperUserAgent,
		PageTimeout: cfg.ScraperPageTimeout,
		Logger:      siteLogger,
	})
	rt.addCloser("renderer", func(context.Context) error {
		renderer.Close()
		return nil
	})

	site := titan.NewClient(titan.ClientConfig{
		Renderer:          renderer,
		Logger:            siteLogger,
		ListURL:           cfg.ScraperSiteURL,
		OddsSelectWait:    cfg.ScraperOddsSelectWait,
		HistorySettle:     cfg.ScraperHistorySettle,
		HistorySelectWait: cfg.ScraperHistorySelectWait,
		CompanyNames:      names,
		CircuitBreaker:    breaker,
	})

	logos, err := titan.NewLogoDownloader(titan.LogoDownloaderConfig{
		Dir:            cfg.LogosDir,
		Timeout:        cfg.ScraperLogoTimeout,
		UserAgent:      cfg.ScraperUserAgent,
		Logger:         siteLogger,
		CircuitBreaker: breaker,
	})
	if err != nil {
		rt.closeQuietly()
		return nil, fmt.Errorf("build logo downloader: %w", err)
	}

	hub := push.NewHub(push.HubConfig{
		WriteTimeout:   cfg.WSWriteTimeout,
		WelcomeMessage: cfg.WSWelcomeMessage,
		IDs:            id.NewUUIDGenerator(),
		Logger:         logger.Named("push"),
	})
	rt.Hub = hub
	rt.addCloser("websocket hub", func(context.Context) error {
		hub.Close()
		return nil
	})

	broadcaster := usecase.NewProgressBroadcaster(logger, hub)
	observer, err := rt.attachOptionalSinks(ctx, cfg, broadcaster)
	if err != nil {
		rt.closeQuietly()
		return nil, err
	}

	guard := usecase.NewClaimGuard()
	pipeline := usecase.NewMatchDetailPipeline(store.repo, site, broadcaster, logger)
	rt.Preload = usecase.NewPreloadScheduler(store.repo, pipeline, guard, usecase.PreloadConfig{
		ItemDelay: cfg.PreloadItemDelay,
	}, observer, logger)
	rt.Updates = usecase.NewMatchUpdateService(pipeline, guard, logger)
	rt.Queries = usecase.NewMatchQueryService(store.repo, store.files, logger)
	rt.Crawler = usecase.NewMatchListService(store.repo, site, logos, broadcaster, rt.Preload, usecase.MatchListConfig{
		Workers:          cfg.CrawlWorkers,
		ItemDelay:        cfg.CrawlItemDelay,
		PreloadStopGrace: cfg.PreloadStopGrace,
		AutoPreload:      cfg.PreloadAutoStart,
		AutoPreloadDelay: cfg.PreloadAutoStartDelay,
	}, logger)

	handler := httpapi.NewHandler(rt.Queries, rt.Updates, rt.Crawler, rt.Preload, cfg.ScraperSiteURL, logger)
	static := httpapi.StaticDirs{LogosDir: cfg.LogosDir}
	if store.files != nil {
		static.MatchJSONDir = cfg.MatchJSONDir
	}
	router := httpapi.NewRouter(handler, hub, logger, cfg.CORSAllowedOrigins, static)

	rt.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return rt, nil
}

// StopPreload asks a running sweep to stop and waits for it up to timeout.
func (r *Runtime) StopPreload(ctx context.Context, timeout time.Duration) {
	if r.Crawler != nil {
		r.Crawler.CancelAutoPreload()
	}
	if r.Preload == nil || !r.Preload.RequestStop() {
		return
	}
	r.logger.InfoContext(ctx, "waiting for preload sweep to stop")

	done := make(chan struct{})
	go func() {
		r.Preload.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		r.logger.WarnContext(ctx, "preload sweep did not stop in time", "timeout", timeout.String())
	case <-ctx.Done():
	}
}

// Close releases resources in reverse order of creation.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.fn(ctx); err != nil {
			r.logger.WarnContext(ctx, "close resource failed", "resource", c.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runtime) addCloser(name string, fn func(ctx context.Context) error) {
	r.closers = append(r.closers, closer{name: name, fn: fn})
}

func (r *Runtime) closeQuietly() {
	_ = r.Close(context.Background())
}

func loadCompanyNames(path string) (*titan.CompanyNames, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read company names file: %w", err)
	}
	names, err := titan.LoadCompanyNames(raw)
	if err != nil {
		return nil, fmt.Errorf("load company names file: %w", err)
	}
	return &names, nil
}
