// Copyright 2025 James Ross
package reqactor

import (
	"github.com/blockprover/orchestrator/internal/reqkey"
)

// scheduler is the in-memory two-tier priority queue plus in-flight set and
// pending-action table described in spec §4.2. It is touched only from the
// Actor's dispatch loop, so it needs no locking of its own (spec §4.2
// "Concurrency").
//
// All three collections key by reqkey.RequestKey.Encode() rather than by
// RequestKey directly: AggregationKey carries a slice, so RequestKey is not
// a comparable Go type and cannot be a map key.
type scheduler struct {
	highQueue []string // FIFO of encoded keys, Aggregation actions
	lowQueue  []string // FIFO of encoded keys, SingleProof actions
	inFlight  map[string]struct{}
	actions   map[string]Action
}

func newScheduler() *scheduler {
	return &scheduler{
		inFlight: make(map[string]struct{}),
		actions:  make(map[string]Action),
	}
}

// contains reports whether action's key occupies the high queue, the low
// queue, or the in-flight set (spec §4.2 `contains`).
func (s *scheduler) contains(action Action) bool {
	enc := action.Key.Encode()
	if _, ok := s.inFlight[enc]; ok {
		return true
	}
	_, ok := s.actions[enc]
	return ok
}

// push appends the key to the high queue if the action is an Aggregation
// request, else to the low queue, recording the action in the pending-action
// table. If the key is already queued or in flight, push is a silent no-op
// at this layer (spec §4.2; admission-level deduplication against the Pool
// happens in the Actor).
func (s *scheduler) push(action Action) {
	if s.contains(action) {
		return
	}
	enc := action.Key.Encode()
	s.actions[enc] = action
	if action.Key.Kind == reqkey.KindAggregation {
		s.highQueue = append(s.highQueue, enc)
	} else {
		s.lowQueue = append(s.lowQueue, enc)
	}
}

// pop dequeues from the high queue if non-empty, else the low queue
// (strict priority, spec §4.2 "Fairness policy"), removes the corresponding
// entry from the pending-action table, and inserts the key into in_flight.
// It returns false if both queues are empty.
func (s *scheduler) pop() (Action, bool) {
	var enc string
	if len(s.highQueue) > 0 {
		enc, s.highQueue = s.highQueue[0], s.highQueue[1:]
	} else if len(s.lowQueue) > 0 {
		enc, s.lowQueue = s.lowQueue[0], s.lowQueue[1:]
	} else {
		return Action{}, false
	}
	action, ok := s.actions[enc]
	if !ok {
		return Action{}, false
	}
	delete(s.actions, enc)
	s.inFlight[enc] = struct{}{}
	return action, true
}

// remove deletes the action's key from in_flight. Used on terminal
// completion (spec §4.2 `remove`).
func (s *scheduler) remove(key reqkey.RequestKey) {
	delete(s.inFlight, key.Encode())
}

// removePending drops a still-queued (not yet in-flight) key from whichever
// FIFO holds it, and from the pending-action table. It reports whether the
// key was found pending. Used by Cancel admission on a Registered key that
// has not yet been dispatched to a worker slot (spec §4.3 step 3).
func (s *scheduler) removePending(key reqkey.RequestKey) bool {
	enc := key.Encode()
	if _, ok := s.actions[enc]; !ok {
		return false
	}
	delete(s.actions, enc)
	if key.Kind == reqkey.KindAggregation {
		s.highQueue = removeString(s.highQueue, enc)
	} else {
		s.lowQueue = removeString(s.lowQueue, enc)
	}
	return true
}

func removeString(fifo []string, target string) []string {
	for i, v := range fifo {
		if v == target {
			return append(fifo[:i], fifo[i+1:]...)
		}
	}
	return fifo
}

// depth reports the current (high, low) queue lengths, for metrics.
func (s *scheduler) depth() (high, low int) {
	return len(s.highQueue), len(s.lowQueue)
}

// inFlightCount reports the current in-flight set size.
func (s *scheduler) inFlightCount() int {
	return len(s.inFlight)
}
