// Package runner fires registered schedules. Each schedule's next instant is
// kept in the store; the runner loads the ones falling inside its lookahead
// window into an index, claims each fire as it comes due, computes the
// following instant from the fired one, and runs the schedule's handler on a
// bounded worker group.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/livinlefevreloca/cronnext/internal/clock"
	"github.com/livinlefevreloca/cronnext/internal/db"
	"github.com/livinlefevreloca/cronnext/internal/inbox"
	"github.com/livinlefevreloca/cronnext/internal/runner/index"
	"github.com/livinlefevreloca/cronnext/lib/cron"
)

// Store is the persistence the runner needs. *db.DB implements it.
type Store interface {
	ListActiveSchedules(ctx context.Context) ([]db.Record, error)
	SetNextFire(ctx context.Context, id string, next *int64) error
	ClaimFire(ctx context.Context, f *db.Fire, next *int64) error
	CompleteFire(ctx context.Context, scheduleID string, fireAt int64, completedAt time.Time, fireErr error) error
}

// Stats is a snapshot of runner counters
type Stats struct {
	Dispatched    int64
	Succeeded     int64
	Failed        int64
	Duplicates    int64
	Exhausted     int64
	IndexRebuilds int64
	IndexSize     int
	Results       inbox.Stats
}

type fireResult struct {
	scheduleID  string
	fireAt      int64
	completedAt time.Time
	err         error
}

// Runner drives schedules from the store. Tick and Prime must be called from
// a single goroutine; Run does that itself.
type Runner struct {
	config   Config
	store    Store
	registry *Registry
	clock    clock.Clock
	logger   *slog.Logger

	// Loop state
	index       *index.Index
	records     map[string]db.Record
	lastRebuild time.Time

	results *inbox.Inbox[fireResult]
	workers errgroup.Group

	dispatched atomic.Int64
	succeeded  atomic.Int64
	failed     atomic.Int64
	duplicates atomic.Int64
	exhausted  atomic.Int64
	rebuilds   atomic.Int64
}

// New creates a runner with validated configuration
func New(config Config, store Store, registry *Registry, clk clock.Clock, logger *slog.Logger) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid runner config: %w", err)
	}
	if store == nil {
		return nil, errors.New("runner: store is required")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		config:   config,
		store:    store,
		registry: registry,
		clock:    clk,
		logger:   logger,
		index:    index.New(nil),
		records:  make(map[string]db.Record),
		results:  inbox.New[fireResult](config.ResultBufferSize, config.ResultSendTimeout, logger),
	}
	r.workers.SetLimit(config.MaxConcurrentFires)

	return r, nil
}

// Run primes the store and ticks every LoopInterval until ctx is done. On
// shutdown it waits for in-flight handlers and records their results.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("starting runner",
		"loop_interval", r.config.LoopInterval,
		"lookahead_window", r.config.LookaheadWindow,
		"max_concurrent_fires", r.config.MaxConcurrentFires)

	if err := r.Prime(ctx); err != nil {
		return fmt.Errorf("prime schedules: %w", err)
	}

	ticker := r.clock.NewTicker(r.config.LoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Wait(context.WithoutCancel(ctx))
			stats := r.Stats()
			r.logger.Info("runner stopped",
				"dispatched", stats.Dispatched,
				"succeeded", stats.Succeeded,
				"failed", stats.Failed,
				"duplicates", stats.Duplicates,
				"exhausted", stats.Exhausted)
			return nil

		case <-ticker.C:
			if err := r.Tick(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("runner tick failed", "error", err)
			}
		}
	}
}

// Prime gives every active schedule without a stored next instant its first
// one, computed from now, and rebuilds the index. Schedules with no
// occurrence are retired as exhausted.
func (r *Runner) Prime(ctx context.Context) error {
	return r.rebuildIndex(ctx)
}

// Tick runs one iteration: record finished handlers, refresh the index when
// it is stale, then claim and dispatch every fire that is due.
func (r *Runner) Tick(ctx context.Context) error {
	now := r.clock.Now()

	r.drainResults(ctx)

	if now.Sub(r.lastRebuild) >= r.config.IndexRebuildInterval {
		if err := r.rebuildIndex(ctx); err != nil {
			return err
		}
	}

	// Each schedule has a single entry in the index, so a schedule that fell
	// behind catches up one fire per tick
	due := r.index.Due(now.Unix())
	if len(due) == 0 {
		return nil
	}

	for _, sf := range due {
		r.fire(ctx, sf)
	}

	return r.rebuildIndex(ctx)
}

// Wait blocks until every dispatched handler has returned, then records
// their results
func (r *Runner) Wait(ctx context.Context) {
	r.workers.Wait()
	r.drainResults(ctx)
}

// Stats returns a snapshot of the runner counters
func (r *Runner) Stats() Stats {
	return Stats{
		Dispatched:    r.dispatched.Load(),
		Succeeded:     r.succeeded.Load(),
		Failed:        r.failed.Load(),
		Duplicates:    r.duplicates.Load(),
		Exhausted:     r.exhausted.Load(),
		IndexRebuilds: r.rebuilds.Load(),
		IndexSize:     r.index.Len(),
		Results:       r.results.Stats(),
	}
}

func (r *Runner) rebuildIndex(ctx context.Context) error {
	records, err := r.store.ListActiveSchedules(ctx)
	if err != nil {
		return fmt.Errorf("list active schedules: %w", err)
	}

	now := r.clock.Now()
	horizon := now.Add(r.config.LookaheadWindow).Unix()

	byID := make(map[string]db.Record, len(records))
	fires := make([]index.ScheduledFire, 0, len(records))

	for _, rec := range records {
		if rec.NextFireAt == nil {
			next, err := r.prime(ctx, rec, now.Unix())
			if err != nil {
				return err
			}
			if next == nil {
				continue
			}
			rec.NextFireAt = next
		}

		byID[rec.ID] = rec
		if *rec.NextFireAt < horizon {
			fires = append(fires, index.ScheduledFire{ScheduleID: rec.ID, FireAt: *rec.NextFireAt})
		}
	}

	r.records = byID
	r.index.Swap(fires)
	r.lastRebuild = now
	r.rebuilds.Add(1)

	r.logger.Debug("index rebuilt",
		"active_schedules", len(byID),
		"index_size", len(fires))

	return nil
}

// prime stores the first instant of rec after now. A nil result means the
// schedule was exhausted or removed meanwhile and should be skipped.
func (r *Runner) prime(ctx context.Context, rec db.Record, now int64) (*int64, error) {
	var next *int64
	if at, ok := cron.NextOccurrence(rec.CronSchedule(), now); ok {
		next = &at
	}

	if err := r.store.SetNextFire(ctx, rec.ID, next); err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("prime schedule %s: %w", rec.ID, err)
	}

	logger := r.logger.With("schedule_id", rec.ID, "schedule_name", rec.Name)
	if next == nil {
		r.exhausted.Add(1)
		logger.Info("schedule exhausted", "expression", rec.Expression)
		return nil, nil
	}

	logger.Debug("schedule primed", "next_fire_at", formatUnix(*next))
	return next, nil
}

// fire claims sf, advancing its schedule, and dispatches the handler. The
// following instant is computed from the fired instant, never from now.
func (r *Runner) fire(ctx context.Context, sf index.ScheduledFire) {
	rec, ok := r.records[sf.ScheduleID]
	if !ok {
		return
	}

	logger := r.logger.With(
		"schedule_id", rec.ID,
		"schedule_name", rec.Name,
		"fire_at", formatUnix(sf.FireAt))

	next, hasNext := cron.NextOccurrence(rec.CronSchedule(), sf.FireAt)
	var nextPtr *int64
	if hasNext {
		nextPtr = &next
	}

	claim := &db.Fire{
		ScheduleID: rec.ID,
		FireAt:     sf.FireAt,
		StartedAt:  r.clock.Now().UTC(),
	}
	if err := r.store.ClaimFire(ctx, claim, nextPtr); err != nil {
		if db.IsDuplicate(err) {
			r.duplicates.Add(1)
			logger.Debug("fire already claimed")
			return
		}
		logger.Error("failed to claim fire", "error", err)
		return
	}

	fire := Fire{
		ScheduleID:   rec.ID,
		ScheduleName: rec.Name,
		Expression:   rec.Expression,
		FireAt:       time.Unix(sf.FireAt, 0).UTC(),
	}
	if hasNext {
		fire.NextFireAt = time.Unix(next, 0).UTC()
	} else {
		r.exhausted.Add(1)
		logger.Info("schedule exhausted", "expression", rec.Expression)
	}

	handler, ok := r.registry.Lookup(rec.Handler)
	if !ok {
		name := rec.Handler
		handler = func(context.Context, Fire) error {
			return fmt.Errorf("%w: %q", ErrUnknownHandler, name)
		}
	}

	r.dispatched.Add(1)
	logger.Debug("dispatching fire", "handler", rec.Handler)

	r.workers.Go(func() error {
		res := fireResult{
			scheduleID: fire.ScheduleID,
			fireAt:     sf.FireAt,
			err:        invoke(ctx, handler, fire),
		}
		res.completedAt = r.clock.Now().UTC()

		// A full inbox means the loop is behind; record the result here
		// instead of dropping it
		if !r.results.Send(res) {
			r.complete(context.WithoutCancel(ctx), res)
		}
		return nil
	})
}

func (r *Runner) drainResults(ctx context.Context) {
	for _, res := range r.results.Drain() {
		r.complete(ctx, res)
	}
}

func (r *Runner) complete(ctx context.Context, res fireResult) {
	if res.err != nil {
		r.failed.Add(1)
		r.logger.Warn("fire failed",
			"schedule_id", res.scheduleID,
			"fire_at", formatUnix(res.fireAt),
			"error", res.err)
	} else {
		r.succeeded.Add(1)
	}

	if err := r.store.CompleteFire(ctx, res.scheduleID, res.fireAt, res.completedAt, res.err); err != nil {
		r.logger.Error("failed to record fire result",
			"schedule_id", res.scheduleID,
			"fire_at", formatUnix(res.fireAt),
			"error", err)
	}
}

// invoke runs h, converting a panic into an error
func invoke(ctx context.Context, h Handler, fire Fire) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return h(ctx, fire)
}

func formatUnix(seconds int64) string {
	return time.Unix(seconds, 0).UTC().Format(time.RFC3339)
}
