// Copyright 2025 James Ross
// Package reqgateway holds the thin façade external callers keep: a cheap,
// cloneable handle onto the Actor's action channel plus read-only Pool
// queries and a process-wide pause toggle (spec §4.4).
package reqgateway

import (
	"context"
	"sync/atomic"

	"github.com/blockprover/orchestrator/internal/chainspec"
	"github.com/blockprover/orchestrator/internal/config"
	"github.com/blockprover/orchestrator/internal/ratelimit"
	"github.com/blockprover/orchestrator/internal/reqactor"
	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/blockprover/orchestrator/internal/reqpool"
	"github.com/blockprover/orchestrator/internal/reqstatus"
)

// Gateway is the object external callers hold. It is safe to copy: every
// field is either immutable after construction, a pointer to shared state,
// or (for the pause flag) itself an atomic (spec §4.4 "Thread safety").
// Resolving the original's "pool in gateway, gateway passes pool to actor"
// ownership cycle (spec §9): the Actor owns the Pool handle used for
// mutation; the Gateway holds its own handle to the same backend for
// read-only snapshot queries. Neither owns the other; the action channel
// inside actor is the only Actor-facing mutator.
type Gateway struct {
	defaultRequestConfig config.DefaultRequestConfig
	chainSpecs           chainspec.Table
	actor                *reqactor.Actor
	pool                 reqpool.Pool // read-only from here; Actor owns the writing half
	isPaused             *atomic.Bool
	limiter              *ratelimit.Limiter
}

// New builds a Gateway over an already-running Actor and a handle to the
// same Pool backend the Actor was constructed with. The returned Gateway has
// no admission rate limit; use NewWithLimiter to add one.
func New(actor *reqactor.Actor, pool reqpool.Pool, defaultRequestConfig config.DefaultRequestConfig, chainSpecs chainspec.Table) *Gateway {
	return NewWithLimiter(actor, pool, defaultRequestConfig, chainSpecs, ratelimit.Disabled())
}

// NewWithLimiter is New, additionally applying limiter to every Send of a
// Prove action before it reaches the Actor (spec §4.9). Cancel actions are
// never subject to the limiter.
func NewWithLimiter(actor *reqactor.Actor, pool reqpool.Pool, defaultRequestConfig config.DefaultRequestConfig, chainSpecs chainspec.Table, limiter *ratelimit.Limiter) *Gateway {
	return &Gateway{
		defaultRequestConfig: defaultRequestConfig,
		chainSpecs:           chainSpecs,
		actor:                actor,
		pool:                 pool,
		isPaused:             new(atomic.Bool),
		limiter:              limiter,
	}
}

// DefaultRequestConfig returns the immutable fallback request template
// merged under client submissions.
func (g *Gateway) DefaultRequestConfig() config.DefaultRequestConfig {
	return g.defaultRequestConfig
}

// ChainSpecs returns the immutable chain-id -> spec table.
func (g *Gateway) ChainSpecs() chainspec.Table {
	return g.chainSpecs
}

// IsPaused reports the current value of the process-wide pause flag.
func (g *Gateway) IsPaused() bool {
	return g.isPaused.Load()
}

// GetStatus consults the Pool directly, bypassing the Actor, for the
// snapshot reads status/report endpoints need (spec §4.4 `get_status`).
func (g *Gateway) GetStatus(ctx context.Context, key reqkey.RequestKey) (*reqstatus.StatusWithContext, error) {
	return g.pool.GetStatus(ctx, key)
}

// ListStatus enumerates every key currently in the Pool (spec §4.4
// `list_status`).
func (g *Gateway) ListStatus(ctx context.Context) ([]reqpool.Entry, error) {
	return g.pool.ListStatus(ctx)
}

// Send applies the admission rate limiter (Prove only, spec §4.9), then
// forwards action to the Actor and awaits its reply (spec §4.4 `send`). A
// rate-limited Prove never reaches the action channel, so it never competes
// with the channel-full capacity error; the two are independent admission
// checks.
func (g *Gateway) Send(ctx context.Context, action reqactor.Action) (reqstatus.StatusWithContext, error) {
	if err := g.limiter.Allow(action); err != nil {
		return reqstatus.StatusWithContext{}, err
	}
	return g.actor.Submit(ctx, action)
}

// Pause sets the process-wide atomic pause flag, then asks the Actor to
// drain, blocking until it acknowledges. Idempotent: pausing twice in a row
// observes the same outcome as pausing once (spec §8 L3).
func (g *Gateway) Pause(ctx context.Context) error {
	g.isPaused.Store(true)
	return g.actor.Pause(ctx)
}

// Resume clears the pause flag and tells the Actor to resume dispatching.
func (g *Gateway) Resume() {
	g.isPaused.Store(false)
	g.actor.Resume()
}
