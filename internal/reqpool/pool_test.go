// Copyright 2025 James Ross
package reqpool_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/blockprover/orchestrator/internal/reqentity"
	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/blockprover/orchestrator/internal/reqpool"
	"github.com/blockprover/orchestrator/internal/reqstatus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func sampleKey() reqkey.RequestKey {
	return reqkey.NewSingleProofKey(reqkey.SingleProofKey{
		ChainID:       167000,
		BlockNumber:   100,
		BlockHash:     "0xaabbcc",
		ProofType:     reqkey.ProofTypeNative,
		ProverAddress: "0x0000000000000000000000000000000000000001",
	})
}

func sampleEntity() reqentity.RequestEntity {
	return reqentity.NewSingleProofEntity(reqentity.SingleProofEntity{
		BlockNumber:   100,
		NetworkID:     167000,
		ProverAddress: "0x01",
		ProofType:     reqkey.ProofTypeNative,
	})
}

// newBackends returns every Pool backend under test by name, registering
// their cleanup with t.Cleanup.
func newBackends(t *testing.T) map[string]reqpool.Pool {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return map[string]reqpool.Pool{
		"memory": reqpool.NewMemory(),
		"redis":  reqpool.NewRedis(rdb, time.Hour, "test:request:"),
	}
}

// TestAddGetUpdateRemove exercises the same scripted sequence against every
// backend (spec §8 L2: memory and TTL backends agree on all operations).
func TestAddGetUpdateRemove(t *testing.T) {
	for name, pool := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := sampleKey()
			entity := sampleEntity()
			now := time.Now().UTC().Truncate(time.Second)

			require.NoError(t, pool.Add(ctx, key, entity, reqstatus.New(reqstatus.NewRegistered(), now)))

			err := pool.Add(ctx, key, entity, reqstatus.New(reqstatus.NewRegistered(), now))
			require.ErrorIs(t, err, reqpool.ErrKeyExists)

			status, err := pool.GetStatus(ctx, key)
			require.NoError(t, err)
			require.NotNil(t, status)
			require.Equal(t, reqstatus.Registered, status.Status.Kind)

			prev, err := pool.UpdateStatus(ctx, key, reqstatus.New(reqstatus.NewWorkInProgress(), now.Add(time.Second)))
			require.NoError(t, err)
			require.Equal(t, reqstatus.Registered, prev.Status.Kind)

			_, err = pool.UpdateStatus(ctx, key, reqstatus.New(reqstatus.NewRegistered(), now))
			require.ErrorIs(t, err, reqpool.ErrIllegalTransition)

			success := reqstatus.New(reqstatus.NewSuccess([]byte("proof-bytes")), now.Add(2*time.Second))
			_, err = pool.UpdateStatus(ctx, key, success)
			require.NoError(t, err)

			_, err = pool.UpdateStatus(ctx, key, reqstatus.New(reqstatus.NewFailed("too late"), now.Add(3*time.Second)))
			require.ErrorIs(t, err, reqpool.ErrIllegalTransition)

			rec, err := pool.Get(ctx, key)
			require.NoError(t, err)
			require.NotNil(t, rec)
			require.Equal(t, reqstatus.Success, rec.Status.Status.Kind)
			require.Equal(t, []byte("proof-bytes"), rec.Status.Status.Proof)

			entries, err := pool.ListStatus(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 1)

			n, err := pool.Remove(ctx, key)
			require.NoError(t, err)
			require.Equal(t, 1, n)

			rec, err = pool.Get(ctx, key)
			require.NoError(t, err)
			require.Nil(t, rec)

			n, err = pool.Remove(ctx, key)
			require.NoError(t, err)
			require.Equal(t, 0, n)
		})
	}
}

// TestUpdateStatusMissingKey exercises spec §4.1's "fails if key absent" case.
func TestUpdateStatusMissingKey(t *testing.T) {
	for name, pool := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := pool.UpdateStatus(ctx, sampleKey(), reqstatus.New(reqstatus.NewWorkInProgress(), time.Now()))
			require.ErrorIs(t, err, reqpool.ErrKeyNotFound)
		})
	}
}

// TestTerminalStatesAbsorbing asserts P4: no transition out of a terminal
// state succeeds, for every terminal kind.
func TestTerminalStatesAbsorbing(t *testing.T) {
	terminal := []reqstatus.Status{
		reqstatus.NewSuccess([]byte("p")),
		reqstatus.NewFailed("boom"),
		reqstatus.NewCancelled(),
	}
	for name, pool := range newBackends(t) {
		for _, term := range terminal {
			t.Run(name+"/"+term.Kind.String(), func(t *testing.T) {
				ctx := context.Background()
				key := sampleKey()
				now := time.Now()
				require.NoError(t, pool.Add(ctx, key, sampleEntity(), reqstatus.New(reqstatus.NewRegistered(), now)))
				_, err := pool.UpdateStatus(ctx, key, reqstatus.New(reqstatus.NewWorkInProgress(), now))
				require.NoError(t, err)
				_, err = pool.UpdateStatus(ctx, key, reqstatus.New(term, now))
				require.NoError(t, err)

				_, err = pool.UpdateStatus(ctx, key, reqstatus.New(reqstatus.NewWorkInProgress(), now))
				require.ErrorIs(t, err, reqpool.ErrIllegalTransition)

				_, _ = pool.Remove(ctx, key)
			})
		}
	}
}
