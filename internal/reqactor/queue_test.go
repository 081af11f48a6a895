// Copyright 2025 James Ross
package reqactor

import (
	"testing"

	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/stretchr/testify/require"
)

func singleKey(block uint64) reqkey.RequestKey {
	return reqkey.NewSingleProofKey(reqkey.SingleProofKey{
		ChainID: 1, BlockNumber: block, BlockHash: "0xaa", ProofType: reqkey.ProofTypeNative, ProverAddress: "0x01",
	})
}

func aggKey(blocks ...uint64) reqkey.RequestKey {
	return reqkey.NewAggregationRequestKey(reqkey.NewAggregationKey(reqkey.ProofTypeNative, blocks))
}

// TestPushPopAggregationFirst asserts P5: a pushed Aggregation action always
// pops before a SingleProof action, regardless of insertion order.
func TestPushPopAggregationFirst(t *testing.T) {
	s := newScheduler()
	s.push(NewProve(singleKey(1), reqentityStub()))
	s.push(NewProve(aggKey(1, 2), reqentityStub()))

	first, ok := s.pop()
	require.True(t, ok)
	require.Equal(t, reqkey.KindAggregation, first.Key.Kind)

	second, ok := s.pop()
	require.True(t, ok)
	require.Equal(t, reqkey.KindSingleProof, second.Key.Kind)
}

// TestContainsDeduplicatesPush asserts P1's queue-layer half: pushing the
// same key twice (queued, then in flight) never yields more than one
// occurrence across high/low/in-flight.
func TestContainsDeduplicatesPush(t *testing.T) {
	s := newScheduler()
	k := singleKey(1)
	s.push(NewProve(k, reqentityStub()))
	s.push(NewProve(k, reqentityStub())) // no-op, already queued
	_, low := s.depth()
	require.Equal(t, 1, low)

	action, ok := s.pop()
	require.True(t, ok)
	require.True(t, s.contains(action)) // now in flight
	s.push(action)                      // still a no-op: in flight counts as present
	_, low = s.depth()
	require.Equal(t, 0, low)
	require.Equal(t, 1, s.inFlightCount())
}

// TestRemoveFreesKey asserts that remove clears in-flight membership so the
// key can be pushed again (e.g. after a terminal completion).
func TestRemoveFreesKey(t *testing.T) {
	s := newScheduler()
	k := singleKey(1)
	s.push(NewProve(k, reqentityStub()))
	action, ok := s.pop()
	require.True(t, ok)
	require.Equal(t, 1, s.inFlightCount())

	s.remove(action.Key)
	require.Equal(t, 0, s.inFlightCount())

	s.push(NewProve(k, reqentityStub()))
	_, low := s.depth()
	require.Equal(t, 1, low)
}

// TestPopEmptyReturnsFalse covers the boundary where both queues are empty.
func TestPopEmptyReturnsFalse(t *testing.T) {
	s := newScheduler()
	_, ok := s.pop()
	require.False(t, ok)
}
