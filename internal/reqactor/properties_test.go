// Copyright 2025 James Ross
package reqactor_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/blockprover/orchestrator/internal/prover"
	"github.com/blockprover/orchestrator/internal/reqactor"
	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/blockprover/orchestrator/internal/reqpool"
	"github.com/blockprover/orchestrator/internal/reqstatus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestConcurrencyCeiling asserts P3: with max_concurrency=N and many more
// distinct keys submitted at once, at most N are ever WorkInProgress
// simultaneously, and every key eventually terminates successfully.
func TestConcurrencyCeiling(t *testing.T) {
	const maxConcurrency = 3
	const numKeys = 12

	pool := reqpool.NewMemory()
	registry := prover.NewRegistry()
	registry.Register(reqkey.ProofTypeNative, prover.NewMock(15*time.Millisecond, reqstatus.NewSuccess([]byte("p"))))

	a := reqactor.New(pool, registry, maxConcurrency, numKeys, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	keys := make([]reqkey.RequestKey, numKeys)
	for i := range keys {
		keys[i] = singleKey(t, uint64(i))
	}

	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func(k reqkey.RequestKey) {
			defer wg.Done()
			_, err := a.Submit(ctx, reqactor.NewProve(k, entityFor(k)))
			require.NoError(t, err)
		}(k)
	}
	wg.Wait()

	// Poll concurrently-observed in-flight WorkInProgress count via the
	// Pool directly, asserting P3 on each sample.
	deadline := time.After(2 * time.Second)
	for {
		entries, err := pool.ListStatus(ctx)
		require.NoError(t, err)

		inProgress := 0
		done := 0
		for _, e := range entries {
			switch e.Status.Status.Kind {
			case reqstatus.WorkInProgress:
				inProgress++
			case reqstatus.Success, reqstatus.Failed, reqstatus.Cancelled:
				done++
			}
		}
		require.LessOrEqualf(t, inProgress, maxConcurrency, "P3 violated: %d in progress > max %d", inProgress, maxConcurrency)

		if done == numKeys {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out: only %d/%d keys terminated", done, numKeys)
		case <-time.After(5 * time.Millisecond):
		}
	}

	for _, k := range keys {
		status, err := a.Submit(ctx, reqactor.NewProve(k, entityFor(k)))
		require.NoError(t, err)
		require.Equal(t, reqstatus.Success, status.Status.Kind, fmt.Sprintf("key %s", k))
	}
}
