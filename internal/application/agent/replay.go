package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/Codealike/Codealike-plugins-core/internal/core/tracking"
	"github.com/Codealike/Codealike-plugins-core/internal/data/signals"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

// ReplayOptions configures a scripted tracking session
type ReplayOptions struct {
	Config  tracking.Config
	Project tracking.Project
	Start   time.Time
	// Silence after the last signal before tracking stops
	Tail time.Duration
}

// Replay runs script against a tracker on a manual clock. The idle check
// and flush timers fire at their exact instants between signals, and the
// session ends with the usual final idle check and flush. It returns every
// batch that was produced, in order.
func Replay(ctx context.Context, script []signals.Signal, opts ReplayOptions) ([]tracking.Flush, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Start.IsZero() {
		opts.Start = util.GetTimeProvider().Now()
	}

	clock := util.NewManualClock(opts.Start)
	var flushes []tracking.Flush
	sink := tracking.SinkFunc(func(_ context.Context, flush tracking.Flush) error {
		flushes = append(flushes, flush)
		return nil
	})

	tracker, err := tracking.New(cfg, clock, sink)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tracker.Dispose(ctx); err != nil {
			util.LogWarnf("Failed to dispose replay tracker: %v", err)
		}
	}()

	if err := tracker.Start(opts.Project, opts.Start); err != nil {
		return nil, err
	}

	timers := replayTimers{
		tracker:   tracker,
		clock:     clock,
		cfg:       cfg,
		nextIdle:  opts.Start.Add(cfg.IdleCheckInterval),
		nextFlush: opts.Start.Add(cfg.FlushInterval),
	}

	for i, s := range script {
		if err := timers.advance(ctx, s.Elapsed()); err != nil {
			return nil, err
		}
		if err := signals.Apply(tracker, s); err != nil {
			return nil, fmt.Errorf("signal %d (%s): %w", i+1, s.Signal, err)
		}
	}
	if err := timers.advance(ctx, opts.Tail); err != nil {
		return nil, err
	}

	if err := tracker.Stop(ctx); err != nil {
		return nil, err
	}
	return flushes, nil
}

type replayTimers struct {
	tracker   *tracking.Tracker
	clock     *util.ManualClock
	cfg       tracking.Config
	nextIdle  time.Time
	nextFlush time.Time
}

// advance moves the clock forward by d, firing the flush timer before the
// idle timer when both fall on the same instant.
func (r *replayTimers) advance(ctx context.Context, d time.Duration) error {
	target := r.clock.Now().Add(d)

	for {
		next := r.nextIdle
		if r.nextFlush.Before(next) {
			next = r.nextFlush
		}
		if next.After(target) {
			break
		}

		r.clock.Set(next)
		if !r.nextFlush.After(next) {
			if err := r.tracker.Flush(ctx); err != nil {
				return err
			}
			r.nextFlush = r.nextFlush.Add(r.cfg.FlushInterval)
		}
		if !r.nextIdle.After(next) {
			if err := r.tracker.CheckIdle(); err != nil {
				return err
			}
			r.nextIdle = r.nextIdle.Add(r.cfg.IdleCheckInterval)
		}
	}

	r.clock.Set(target)
	return nil
}
