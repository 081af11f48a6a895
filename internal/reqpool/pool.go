// Copyright 2025 James Ross
// Package reqpool is the durable source of truth for request existence and
// lifecycle position: a mapping RequestKey -> (RequestEntity,
// StatusWithContext), per spec §4.1. Two backends implement the same
// Pool contract: an in-memory map (internal/reqpool Memory, used by tests)
// and a Redis-backed TTL store (internal/reqpool Redis, used in
// production). Both key by reqkey.RequestKey.Encode(), so tests and
// production observe the same key space and equality relation as the
// in-memory scheduler queue (spec §4.1, "Why a canonical serialization").
package reqpool

import (
	"context"
	"errors"

	"github.com/blockprover/orchestrator/internal/reqentity"
	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/blockprover/orchestrator/internal/reqstatus"
)

// ErrKeyExists is returned by Add when the key is already present.
var ErrKeyExists = errors.New("reqpool: key already exists")

// ErrKeyNotFound is returned by UpdateStatus when the key is absent.
var ErrKeyNotFound = errors.New("reqpool: key not found")

// ErrIllegalTransition is returned by UpdateStatus when the requested
// status change is not permitted by reqstatus.Status.CanTransitionTo.
var ErrIllegalTransition = errors.New("reqpool: illegal status transition")

// Record is a full pool entry: the entity and its current status.
type Record struct {
	Entity reqentity.RequestEntity
	Status reqstatus.StatusWithContext
}

// Entry is a key and its current status, as returned by ListStatus.
type Entry struct {
	Key    reqkey.RequestKey
	Status reqstatus.StatusWithContext
}

// Pool is the durable map described by spec §4.1.
type Pool interface {
	// Add inserts a new key with its entity and initial status. It fails
	// with ErrKeyExists if the key is already present.
	Add(ctx context.Context, key reqkey.RequestKey, entity reqentity.RequestEntity, status reqstatus.StatusWithContext) error

	// Remove deletes a key, returning the number of keys removed (0 or 1).
	Remove(ctx context.Context, key reqkey.RequestKey) (int, error)

	// Get returns the full record for a key, or nil if absent.
	Get(ctx context.Context, key reqkey.RequestKey) (*Record, error)

	// GetStatus returns the status for a key, or nil if absent.
	GetStatus(ctx context.Context, key reqkey.RequestKey) (*reqstatus.StatusWithContext, error)

	// UpdateStatus transitions a key to a new status, returning the
	// previous status. It fails with ErrKeyNotFound if the key is absent,
	// or ErrIllegalTransition if the current status cannot move to the
	// requested one (spec §4.1's transition table; terminal states are
	// absorbing).
	UpdateStatus(ctx context.Context, key reqkey.RequestKey, status reqstatus.StatusWithContext) (reqstatus.StatusWithContext, error)

	// ListStatus enumerates every key currently in the pool.
	ListStatus(ctx context.Context) ([]Entry, error)
}
