// Copyright 2025 James Ross
// Package prover gives the Actor's worker-slot dispatch something real to
// call: a Worker interface keyed by proof type, and a Registry mapping the
// closed proof-type tag set to Worker values (spec §4.3, §9 "dynamic
// dispatch over provers"). Real zkVM backends are out of scope (spec §1);
// this package only supplies the seam plus two deliberately simple
// implementations used by the reference binary and by tests.
package prover

import (
	"context"
	"fmt"

	"github.com/blockprover/orchestrator/internal/reqentity"
	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/blockprover/orchestrator/internal/reqstatus"
)

// Worker executes one request to completion or abandonment. Run must return
// promptly (producing Failed or observing abandon) rather than block
// indefinitely; the core does not impose its own timeout (spec §5).
// Implementations must poll abandon at their own cooperative checkpoints —
// the core does not rely on context cancellation alone to stop work, since
// abandon signals a Cancel admitted after dispatch, which is advisory
// (spec §4.3).
type Worker interface {
	Run(ctx context.Context, entity reqentity.RequestEntity, abandon <-chan struct{}) reqstatus.Status
}

// Registry maps proof-type tags to Workers. The core treats tags opaquely
// past lookup; adding a tag means registering a Worker for it.
type Registry struct {
	workers map[reqkey.ProofType]Worker
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{workers: make(map[reqkey.ProofType]Worker)}
}

// Register binds a Worker to a proof-type tag, overwriting any previous
// binding.
func (r *Registry) Register(proofType reqkey.ProofType, w Worker) {
	r.workers[proofType] = w
}

// Get returns the Worker bound to proofType, or an error if none is
// registered — the Actor surfaces this as a worker failure (spec §7) rather
// than panicking.
func (r *Registry) Get(proofType reqkey.ProofType) (Worker, error) {
	w, ok := r.workers[proofType]
	if !ok {
		return nil, fmt.Errorf("prover: no worker registered for proof type %q", proofType)
	}
	return w, nil
}
