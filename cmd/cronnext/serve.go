package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/livinlefevreloca/cronnext/internal/clock"
	"github.com/livinlefevreloca/cronnext/internal/runner"
)

const (
	logHandlerName  = "log"
	noopHandlerName = "noop"

	statsInterval = time.Minute
)

// builtinHandlers registers the handlers every serve process provides
func builtinHandlers(logger *slog.Logger) (*runner.Registry, error) {
	registry := runner.NewRegistry()

	err := registry.Register(logHandlerName, func(_ context.Context, fire runner.Fire) error {
		logger.Info("schedule fired",
			"schedule_id", fire.ScheduleID,
			"schedule_name", fire.ScheduleName,
			"fire_at", fire.FireAt.Format(time.RFC3339))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := registry.Register(noopHandlerName, func(context.Context, runner.Fire) error { return nil }); err != nil {
		return nil, err
	}
	return registry, nil
}

func runServe(args []string, stdout io.Writer) error {
	var configPath string
	flags := newFlagSet("serve", stdout, &configPath)
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, store, err := openStore(ctx, configPath)
	if err != nil {
		return err
	}
	defer store.Close()

	logger, err := cfg.Logging.NewLogger(stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	registry, err := builtinHandlers(logger)
	if err != nil {
		return err
	}

	clk := clock.Real()
	r, err := runner.New(cfg.Runner, store, registry, clk, logger)
	if err != nil {
		return err
	}

	logger.Info("starting cronnext",
		"driver", cfg.Database.Driver,
		"handlers", registry.Names())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.Run(ctx); err != nil {
			return fmt.Errorf("runner: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		reportStats(ctx, clk, r, logger)
		return nil
	})

	err = g.Wait()
	logger.Info("shutting down gracefully")
	return err
}

// reportStats logs the runner counters every statsInterval until ctx is done
func reportStats(ctx context.Context, clk clock.Clock, r *runner.Runner, logger *slog.Logger) {
	ticker := clk.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := r.Stats()
			logger.Info("runner stats",
				"dispatched", stats.Dispatched,
				"succeeded", stats.Succeeded,
				"failed", stats.Failed,
				"duplicates", stats.Duplicates,
				"exhausted", stats.Exhausted,
				"index_size", stats.IndexSize,
				"results_depth", stats.Results.CurrentDepth)
		}
	}
}
