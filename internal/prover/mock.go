// Copyright 2025 James Ross
package prover

import (
	"context"
	"time"

	"github.com/blockprover/orchestrator/internal/reqentity"
	"github.com/blockprover/orchestrator/internal/reqstatus"
)

// Mock is a deterministic test double: it waits Delay (or until abandon /
// ctx cancellation, whichever comes first) and then returns Outcome.
type Mock struct {
	Delay   time.Duration
	Outcome reqstatus.Status
}

// NewMock returns a Mock that resolves to outcome after delay.
func NewMock(delay time.Duration, outcome reqstatus.Status) *Mock {
	return &Mock{Delay: delay, Outcome: outcome}
}

func (m *Mock) Run(ctx context.Context, _ reqentity.RequestEntity, abandon <-chan struct{}) reqstatus.Status {
	if m.Delay <= 0 {
		return m.Outcome
	}
	timer := time.NewTimer(m.Delay)
	defer func() {
		if !timer.Stop() {
			<-timer.C
		}
	}()
	select {
	case <-ctx.Done():
		return reqstatus.NewFailed("mock: " + ctx.Err().Error())
	case <-abandon:
		return reqstatus.NewCancelled()
	case <-timer.C:
		return m.Outcome
	}
}
