// Copyright 2025 James Ross
// Package ratelimit gives admission of Prove actions an optional token-bucket
// ceiling (spec.md §7's "Capacity errors"), independent of and upstream from
// the action channel's own capacity error. Cancel is never limited: an
// operator must always be able to cancel.
package ratelimit

import (
	"errors"

	"github.com/blockprover/orchestrator/internal/reqactor"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a Prove action is rejected at admission
// because the token bucket is empty.
var ErrRateLimited = errors.New("ratelimit: prove admission rate exceeded")

// Limiter wraps a token-bucket rate.Limiter scoped to Prove admission.
// A nil *Limiter, or one built by Disabled, always allows.
type Limiter struct {
	limiter *rate.Limiter
}

// New builds a Limiter allowing perSecond Prove admissions per second, with
// a burst of burst requests.
func New(perSecond float64, burst int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Disabled returns a Limiter that never rejects.
func Disabled() *Limiter {
	return &Limiter{limiter: nil}
}

// Allow checks whether action may proceed to admission. Cancel actions are
// always allowed; Prove actions consume one token.
func (l *Limiter) Allow(action reqactor.Action) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	if action.Kind == reqactor.KindCancel {
		return nil
	}
	if !l.limiter.Allow() {
		return ErrRateLimited
	}
	return nil
}
