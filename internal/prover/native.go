// Copyright 2025 James Ross
package prover

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"time"

	"github.com/blockprover/orchestrator/internal/reqentity"
	"github.com/blockprover/orchestrator/internal/reqstatus"
)

// Native is the in-process reference worker used by the default binary and
// by tests that want real (if fake) proving latency. It simulates proving
// cost as a sleep proportional to the entity's encoded size, cooperatively
// checking abandon at that single checkpoint the way the teacher's
// simulated job processing checks ctx.Done mid-sleep.
type Native struct {
	// PerByte scales the simulated proving delay. Zero means no delay,
	// useful for fast unit tests that still want the real code path.
	PerByte time.Duration
}

// NewNative returns a Native worker with a small default delay scale.
func NewNative() *Native {
	return &Native{PerByte: 10 * time.Microsecond}
}

func (n *Native) Run(ctx context.Context, entity reqentity.RequestEntity, abandon <-chan struct{}) reqstatus.Status {
	payload, err := json.Marshal(entity)
	if err != nil {
		return reqstatus.NewFailed("native: marshal entity: " + err.Error())
	}

	delay := time.Duration(len(payload)) * n.PerByte
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer func() {
			if !timer.Stop() {
				<-timer.C
			}
		}()
		select {
		case <-ctx.Done():
			return reqstatus.NewFailed("native: " + ctx.Err().Error())
		case <-abandon:
			return reqstatus.NewCancelled()
		case <-timer.C:
		}
	}

	sum := sha256.Sum256(payload)
	return reqstatus.NewSuccess(sum[:])
}
