// Copyright 2025 James Ross
package reqactor

import (
	"context"
	"fmt"
	"time"

	"github.com/blockprover/orchestrator/internal/breaker"
	"github.com/blockprover/orchestrator/internal/obs"
	"github.com/blockprover/orchestrator/internal/proofschema"
	"github.com/blockprover/orchestrator/internal/prover"
	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/blockprover/orchestrator/internal/reqpool"
	"github.com/blockprover/orchestrator/internal/reqstatus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reply is what an admitted Action eventually resolves to.
type Reply struct {
	Status reqstatus.StatusWithContext
	Err    error
}

// request pairs an Action with its one-shot reply channel, the Go
// equivalent of the original's `(Action, oneshot::Sender<...>)` tuple
// (spec §4.3 "Configuration").
type request struct {
	action Action
	reply  chan<- Reply
}

type completion struct {
	key    reqkey.RequestKey
	status reqstatus.Status
}

// Actor is the single-owner coordinator binding Pool + scheduler + a bounded
// set of worker slots (spec §4.3).
type Actor struct {
	pool     reqpool.Pool
	sched    *scheduler
	registry *prover.Registry
	schemas  *proofschema.Registry
	log      *zap.Logger

	maxConcurrency int
	breakers       map[reqkey.ProofType]*breaker.CircuitBreaker
	breakerCfg     BreakerConfig

	actionCh     chan request
	completionCh chan completion
	pauseCh      chan chan struct{}
	resumeCh     chan struct{}

	abandon map[string]chan struct{} // encoded key -> abandon signal, live only while in flight
	paused  bool
}

// BreakerConfig parameterizes the per-proof-type circuit breaker every Actor
// lazily builds (spec §4.3's per-proof-type breaker note), sourced from
// internal/config's CircuitBreaker section.
type BreakerConfig struct {
	Window           time.Duration
	CooldownPeriod   time.Duration
	FailureThreshold float64
	MinSamples       int
}

var defaultBreakerConfig = BreakerConfig{
	Window: time.Minute, CooldownPeriod: 30 * time.Second, FailureThreshold: 0.5, MinSamples: 10,
}

// New builds an Actor. actionBuffer sizes the action channel; spec §7 names
// "the action channel is full" as a distinct capacity error, so callers
// that want to observe backpressure should size this deliberately small.
// ProverArgs schema validation is disabled (every proof type passes); use
// NewWithSchemas to enforce one.
func New(pool reqpool.Pool, registry *prover.Registry, maxConcurrency, actionBuffer int, log *zap.Logger) *Actor {
	return NewWithBreakerConfig(pool, registry, maxConcurrency, actionBuffer, log, defaultBreakerConfig)
}

// NewWithBreakerConfig is New, but with the per-proof-type circuit breaker's
// parameters taken from the caller rather than defaulted.
func NewWithBreakerConfig(pool reqpool.Pool, registry *prover.Registry, maxConcurrency, actionBuffer int, log *zap.Logger, breakerCfg BreakerConfig) *Actor {
	return NewWithSchemas(pool, registry, proofschema.NewRegistry(), maxConcurrency, actionBuffer, log, breakerCfg)
}

// NewWithSchemas is NewWithBreakerConfig, additionally validating every
// admitted Prove action's ProverArgs blob against schemas before the
// request reaches the Pool (SPEC_FULL §4.6, spec §7's "malformed request").
func NewWithSchemas(pool reqpool.Pool, registry *prover.Registry, schemas *proofschema.Registry, maxConcurrency, actionBuffer int, log *zap.Logger, breakerCfg BreakerConfig) *Actor {
	return &Actor{
		pool:           pool,
		sched:          newScheduler(),
		registry:       registry,
		schemas:        schemas,
		log:            log,
		maxConcurrency: maxConcurrency,
		breakers:       make(map[reqkey.ProofType]*breaker.CircuitBreaker),
		breakerCfg:     breakerCfg,
		actionCh:       make(chan request, actionBuffer),
		completionCh:   make(chan completion, maxConcurrency),
		pauseCh:        make(chan chan struct{}),
		resumeCh:       make(chan struct{}, 1),
		abandon:        make(map[string]chan struct{}),
	}
}

// ErrActionChannelFull is the capacity error spec §7 names for a saturated
// action channel.
type ErrActionChannelFull struct{}

func (ErrActionChannelFull) Error() string { return "reqactor: action channel full" }

// ErrActorStopped is returned by Submit when the Actor's dispatch loop
// exited while that Submit's action was still waiting in the action channel
// (spec §7: "a closed channel means the Actor is gone, which is fatal for
// the process").
type ErrActorStopped struct{}

func (ErrActorStopped) Error() string { return "reqactor: actor stopped" }

// Submit enqueues action and blocks for its reply, or returns
// ErrActionChannelFull immediately if the action channel is saturated. It is
// safe to call concurrently from many goroutines; this is what
// internal/reqgateway.Gateway.Send calls.
func (a *Actor) Submit(ctx context.Context, action Action) (reqstatus.StatusWithContext, error) {
	reply := make(chan Reply, 1)
	select {
	case a.actionCh <- request{action: action, reply: reply}:
	default:
		return reqstatus.StatusWithContext{}, ErrActionChannelFull{}
	}

	select {
	case <-ctx.Done():
		return reqstatus.StatusWithContext{}, ctx.Err()
	case r, ok := <-reply:
		if !ok {
			return reqstatus.StatusWithContext{}, ErrActorStopped{}
		}
		return r.Status, r.Err
	}
}

// Pause requests the dispatch loop stop popping new work and blocks until
// it acknowledges (spec §4.3 "Dispatch loop", pause branch). In-flight work
// continues to completion.
func (a *Actor) Pause(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case a.pauseCh <- ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the dispatch loop: a single task multiplexing inbound actions,
// worker completions, and pause signals (spec §4.3). It returns when ctx is
// cancelled; every Submit whose action is still queued in the action
// channel at that point observes ErrActorStopped.
func (a *Actor) Run(ctx context.Context) {
	defer close(a.completionCh)

	for {
		a.fillSlots(ctx)

		select {
		case <-ctx.Done():
			for {
				select {
				case req := <-a.actionCh:
					close(req.reply)
				default:
					return
				}
			}

		case req := <-a.actionCh:
			a.admit(ctx, req)

		case c := <-a.completionCh:
			a.sched.remove(c.key)
			a.recordCompletion(c)

		case ack := <-a.pauseCh:
			a.paused = true
			obs.PausedGauge.Set(1)
			close(ack)

		case <-a.resumeCh:
			a.paused = false
			obs.PausedGauge.Set(0)
		}
	}
}

// Resume clears the pause flag so the dispatch loop resumes popping work.
// Exposed separately from Pause because the original's pause/resume pair is
// asymmetric: pause blocks for acknowledgement, resume does not (spec §4.3).
// The signal is delivered through resumeCh rather than writing a.paused
// directly, since the dispatch loop is the only goroutine allowed to touch
// Actor state (spec §4.2 "Concurrency").
func (a *Actor) Resume() {
	select {
	case a.resumeCh <- struct{}{}:
	default:
	}
}

// fillSlots pops eligible actions from the scheduler while slots are free
// and the actor is not paused (spec §4.3 "Concurrency ceiling").
func (a *Actor) fillSlots(ctx context.Context) {
	if a.paused {
		return
	}
	high, low := a.sched.depth()
	obs.QueueDepth.WithLabelValues("high").Set(float64(high))
	obs.QueueDepth.WithLabelValues("low").Set(float64(low))
	obs.InFlight.Set(float64(a.sched.inFlightCount()))

	for a.sched.inFlightCount() < a.maxConcurrency {
		action, ok := a.sched.pop()
		if !ok {
			return
		}
		obs.InFlight.Set(float64(a.sched.inFlightCount()))
		a.dispatch(ctx, action)
	}
}

// dispatch transitions the popped action's key to WorkInProgress and hands
// the entity to its worker on a fresh goroutine, the Go equivalent of
// spawning a worker future (spec §4.3 "Dispatch loop").
func (a *Actor) dispatch(ctx context.Context, action Action) {
	if action.Kind == KindCancel {
		// Enqueued as a Prove, then cancelled before dispatch would not
		// reach here (removePending handles that case); a Cancel only
		// reaches the scheduler if it was pushed directly, which this
		// Actor never does. Defensive fast-terminal in case a future
		// caller pushes Cancel actions: treat as already handled.
		a.sched.remove(action.Key)
		return
	}

	now := time.Now().UTC()
	if _, err := a.pool.UpdateStatus(ctx, action.Key, reqstatus.New(reqstatus.NewWorkInProgress(), now)); err != nil {
		a.log.Error("dispatch: pool update_status failed", obs.String("key", action.Key.String()), obs.Err(err))
		obs.PoolWriteFailures.Inc()
		a.sched.remove(action.Key)
		return
	}

	enc := action.Key.Encode()
	abandon := make(chan struct{})
	a.abandon[enc] = abandon

	worker, err := a.registry.Get(action.Entity.ProofType())
	if err != nil {
		a.log.Error("dispatch: no worker for proof type", obs.String("key", enc), obs.Err(err))
		a.completionCh <- completion{key: action.Key, status: reqstatus.NewFailed(err.Error())}
		return
	}

	proofType := action.Entity.ProofType()
	cb := a.breakerFor(proofType)
	if !cb.Allow() {
		obs.CircuitBreakerState.WithLabelValues(string(proofType)).Set(float64(cb.State()))
		a.completionCh <- completion{key: action.Key, status: reqstatus.NewFailed("reqactor: circuit breaker open for proof type " + string(proofType))}
		return
	}

	go func() {
		spanCtx, span := obs.StartDispatchSpan(ctx, action.Key.String(), string(proofType))
		status := worker.Run(spanCtx, action.Entity, abandon)
		if status.Kind == reqstatus.Failed {
			obs.RecordError(spanCtx, fmt.Errorf("%s", status.Error))
		} else {
			obs.SetSpanSuccess(spanCtx)
		}
		span.End()
		prevState := cb.State()
		cb.Record(status.Kind != reqstatus.Failed)
		newState := cb.State()
		obs.CircuitBreakerState.WithLabelValues(string(proofType)).Set(float64(newState))
		if prevState != breaker.Open && newState == breaker.Open {
			obs.CircuitBreakerTrips.WithLabelValues(string(proofType)).Inc()
		}
		obs.WorkerResultTotal.WithLabelValues(string(proofType), status.Kind.String()).Inc()
		select {
		case a.completionCh <- completion{key: action.Key, status: status}:
		case <-ctx.Done():
		}
	}()
}

func (a *Actor) breakerFor(proofType reqkey.ProofType) *breaker.CircuitBreaker {
	cb, ok := a.breakers[proofType]
	if !ok {
		cb = breaker.New(a.breakerCfg.Window, a.breakerCfg.CooldownPeriod, a.breakerCfg.FailureThreshold, a.breakerCfg.MinSamples)
		a.breakers[proofType] = cb
	}
	return cb
}

// recordCompletion writes a worker's terminal status to the Pool. If the
// key already moved to a terminal state (e.g. a Cancel raced the worker),
// the Pool's terminal-state guard rejects the write and the late result is
// discarded, exactly as spec §4.3/§5 "Cancellation semantics" describes.
func (a *Actor) recordCompletion(c completion) {
	delete(a.abandon, c.Key().Encode())
	now := time.Now().UTC()
	if _, err := a.pool.UpdateStatus(context.Background(), c.key, reqstatus.New(c.status, now)); err != nil {
		if err == reqpool.ErrIllegalTransition {
			obs.TransitionRejected.Inc()
			return
		}
		a.log.Error("recordCompletion: pool update_status failed", obs.String("key", c.key.String()), obs.Err(err))
		obs.PoolWriteFailures.Inc()
	}
}

// admit runs the admission protocol for one inbound request (spec §4.3
// "Admission protocol"). Every admission gets its own correlation id, logged
// alongside the outcome so an operator can grep one submission's path
// through the logs even though the Pool itself tracks no such id.
func (a *Actor) admit(ctx context.Context, req request) {
	correlationID := uuid.New().String()
	ctx, span := obs.StartAdmissionSpan(ctx, req.action.Kind.String(), req.action.Key.String(), correlationID)
	defer span.End()
	switch req.action.Kind {
	case KindProve:
		a.admitProve(ctx, req, correlationID)
	case KindCancel:
		a.admitCancel(ctx, req, correlationID)
	default:
		err := fmt.Errorf("reqactor: unknown action kind %d", req.action.Kind)
		obs.RecordError(ctx, err)
		a.reply(req, reqstatus.StatusWithContext{}, err)
	}
}

func (a *Actor) admitProve(ctx context.Context, req request, correlationID string) {
	key, entity := req.action.Key, req.action.Entity
	log := a.log.With(obs.String("correlation_id", correlationID), obs.String("key", key.String()))

	if err := a.schemas.Validate(entity.ProofType(), entity.ProverArgs()); err != nil {
		obs.AdmissionTotal.WithLabelValues("prove", "malformed_args").Inc()
		log.Info("admit prove: rejected, malformed prover args", obs.Err(err))
		a.reply(req, reqstatus.StatusWithContext{}, err)
		return
	}

	rec, err := a.pool.Get(ctx, key)
	if err != nil {
		obs.AdmissionTotal.WithLabelValues("prove", "pool_error").Inc()
		log.Error("admit prove: pool get failed", obs.Err(err))
		a.reply(req, reqstatus.StatusWithContext{}, err)
		return
	}
	if rec != nil {
		// Present: terminal or non-terminal, the key is already tracked,
		// so this is a lookup, never a duplicate (spec §3.2, §4.3 steps 2-3).
		outcome := "cached_terminal"
		if !rec.Status.Status.IsTerminal() {
			outcome = "cached_in_progress"
		}
		obs.AdmissionTotal.WithLabelValues("prove", outcome).Inc()
		log.Info("admit prove: " + outcome)
		a.reply(req, rec.Status, nil)
		return
	}

	now := time.Now().UTC()
	status := reqstatus.New(reqstatus.NewRegistered(), now)
	if err := a.pool.Add(ctx, key, entity, status); err != nil {
		obs.AdmissionTotal.WithLabelValues("prove", "pool_error").Inc()
		obs.PoolWriteFailures.Inc()
		log.Error("admit prove: pool add failed", obs.Err(err))
		a.reply(req, reqstatus.StatusWithContext{}, err)
		return
	}
	a.sched.push(req.action)
	obs.AdmissionTotal.WithLabelValues("prove", "registered").Inc()
	log.Info("admit prove: registered")
	a.reply(req, status, nil)
}

func (a *Actor) admitCancel(ctx context.Context, req request, correlationID string) {
	key := req.action.Key
	log := a.log.With(obs.String("correlation_id", correlationID), obs.String("key", key.String()))

	rec, err := a.pool.Get(ctx, key)
	if err != nil {
		obs.AdmissionTotal.WithLabelValues("cancel", "pool_error").Inc()
		log.Error("admit cancel: pool get failed", obs.Err(err))
		a.reply(req, reqstatus.StatusWithContext{}, err)
		return
	}
	if rec == nil {
		obs.AdmissionTotal.WithLabelValues("cancel", "not_found").Inc()
		log.Info("admit cancel: not found")
		a.reply(req, reqstatus.StatusWithContext{}, reqpool.ErrKeyNotFound)
		return
	}
	if rec.Status.Status.IsTerminal() {
		obs.AdmissionTotal.WithLabelValues("cancel", "already_terminal").Inc()
		log.Info("admit cancel: already terminal")
		a.reply(req, rec.Status, nil)
		return
	}

	now := time.Now().UTC()
	cancelled := reqstatus.New(reqstatus.NewCancelled(), now)
	prev, err := a.pool.UpdateStatus(ctx, key, cancelled)
	if err != nil {
		obs.AdmissionTotal.WithLabelValues("cancel", "pool_error").Inc()
		log.Error("admit cancel: pool update_status failed", obs.Err(err))
		a.reply(req, prev, err)
		return
	}

	if a.sched.removePending(key) {
		obs.AdmissionTotal.WithLabelValues("cancel", "removed_pending").Inc()
		log.Info("admit cancel: removed pending")
		a.reply(req, cancelled, nil)
		return
	}

	// Not pending: either in flight (signal abandon) or already popped and
	// about to dispatch; either way in_flight holds it until completion.
	if abandon, ok := a.abandon[key.Encode()]; ok {
		close(abandon)
	}
	obs.AdmissionTotal.WithLabelValues("cancel", "abandon_signalled").Inc()
	log.Info("admit cancel: abandon signalled")
	a.reply(req, cancelled, nil)
}

func (a *Actor) reply(req request, status reqstatus.StatusWithContext, err error) {
	req.reply <- Reply{Status: status, Err: err}
}

// Key exposes the completion's request key, used only by recordCompletion's
// abandon-map cleanup.
func (c completion) Key() reqkey.RequestKey { return c.key }
