// Copyright 2025 James Ross
// Package janitor runs a periodic sweep over the Pool: it reports occupancy
// by status and, optionally, prunes terminal entries older than a
// configured age (spec.md §3.3's "Removed explicitly by operator prune",
// given a scheduled implementation instead of a purely manual one). It only
// calls Pool.ListStatus and Pool.Remove, both already part of the Pool
// contract; the janitor is an operator convenience layered above it, not a
// new Pool operation.
package janitor

import (
	"context"
	"time"

	"github.com/blockprover/orchestrator/internal/obs"
	"github.com/blockprover/orchestrator/internal/reqpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor periodically sweeps a Pool on a cron schedule.
type Janitor struct {
	pool       reqpool.Pool
	pruneAfter time.Duration // <=0 disables pruning; occupancy is still logged
	log        *zap.Logger
	cron       *cron.Cron
}

// New builds a Janitor. schedule is a standard 5-field cron expression
// (e.g. "*/30 * * * *"). pruneAfter <= 0 disables pruning of terminal
// entries; occupancy is still logged and metered on every tick.
func New(pool reqpool.Pool, schedule string, pruneAfter time.Duration, log *zap.Logger) (*Janitor, error) {
	j := &Janitor{
		pool:       pool,
		pruneAfter: pruneAfter,
		log:        log,
		cron:       cron.New(),
	}
	if _, err := j.cron.AddFunc(schedule, j.sweepOnce); err != nil {
		return nil, err
	}
	return j, nil
}

// Start begins running the cron schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule, waiting for any in-flight sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) sweepOnce() {
	j.Sweep(context.Background())
}

// Sweep runs one pass over the Pool: tallies occupancy by status kind, then
// (if pruneAfter > 0) removes terminal entries whose last transition is
// older than pruneAfter.
func (j *Janitor) Sweep(ctx context.Context) {
	entries, err := j.pool.ListStatus(ctx)
	if err != nil {
		j.log.Error("janitor: list_status failed", zap.Error(err))
		return
	}

	counts := map[string]int{}
	now := time.Now()
	pruned := 0
	for _, e := range entries {
		counts[e.Status.Status.Kind.String()]++

		if j.pruneAfter <= 0 || !e.Status.Status.IsTerminal() {
			continue
		}
		if now.Sub(e.Status.Timestamp) < j.pruneAfter {
			continue
		}
		if _, err := j.pool.Remove(ctx, e.Key); err != nil {
			j.log.Warn("janitor: prune failed", zap.String("key", e.Key.String()), zap.Error(err))
			continue
		}
		pruned++
	}

	for kind, n := range counts {
		obs.PoolOccupancy.WithLabelValues(kind).Set(float64(n))
	}
	if pruned > 0 {
		obs.JanitorPruned.Add(float64(pruned))
	}
	j.log.Debug("janitor: sweep complete", zap.Int("entries", len(entries)), zap.Int("pruned", pruned))
}
