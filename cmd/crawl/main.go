package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/matchodds/internal/app"
	"github.com/riskibarqy/matchodds/internal/config"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
)

type options struct {
	preload bool
	timeout time.Duration
}

func main() {
	opts := options{}
	flag.BoolVar(&opts.preload, "preload", false, "run the detail preload sweep after the list crawl")
	flag.DurationVar(&opts.timeout, "timeout", 0, "abort after this long (0 disables)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.New(logging.Options{
		Format:  logging.FormatConsole,
		Level:   cfg.LogLevel,
		Service: "matchodds-crawl",
		Env:     cfg.AppEnv,
	})
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, opts, logger); err != nil {
		logger.Error("crawl failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, opts options, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.Background()) }()

	result, err := rt.Crawler.CrawlMatchList(ctx, false)
	if err != nil {
		return err
	}
	logger.Info("match list crawled",
		"matches", len(result.Matches),
		"created", result.Created,
		"failed", result.Failed,
		"fallback", result.Fallback,
		"message", result.Message,
	)

	if !opts.preload {
		return nil
	}
	if !rt.Preload.Start(ctx) {
		return fmt.Errorf("preload sweep already running")
	}

	done := make(chan struct{})
	go func() {
		rt.Preload.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		rt.Preload.RequestStop()
		<-done
	}

	logger.Info("preload sweep finished", "interrupted", ctx.Err() != nil)
	return ctx.Err()
}
