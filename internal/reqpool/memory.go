// Copyright 2025 James Ross
package reqpool

import (
	"context"
	"sync"

	"github.com/blockprover/orchestrator/internal/reqentity"
	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/blockprover/orchestrator/internal/reqstatus"
)

// Memory is the in-process Pool backend used by tests: no TTL, no I/O
// errors, no persistence across restarts.
type Memory struct {
	mu      sync.Mutex
	records map[string]*Record
	keys    map[string]reqkey.RequestKey
}

// NewMemory returns an empty memory-backed Pool.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*Record),
		keys:    make(map[string]reqkey.RequestKey),
	}
}

func (m *Memory) Add(_ context.Context, key reqkey.RequestKey, entity reqentity.RequestEntity, status reqstatus.StatusWithContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	enc := key.Encode()
	if _, ok := m.records[enc]; ok {
		return ErrKeyExists
	}
	m.records[enc] = &Record{Entity: entity, Status: status}
	m.keys[enc] = key
	return nil
}

func (m *Memory) Remove(_ context.Context, key reqkey.RequestKey) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	enc := key.Encode()
	if _, ok := m.records[enc]; !ok {
		return 0, nil
	}
	delete(m.records, enc)
	delete(m.keys, enc)
	return 1, nil
}

func (m *Memory) Get(_ context.Context, key reqkey.RequestKey) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key.Encode()]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) GetStatus(_ context.Context, key reqkey.RequestKey) (*reqstatus.StatusWithContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key.Encode()]
	if !ok {
		return nil, nil
	}
	s := rec.Status
	return &s, nil
}

func (m *Memory) UpdateStatus(_ context.Context, key reqkey.RequestKey, status reqstatus.StatusWithContext) (reqstatus.StatusWithContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	enc := key.Encode()
	rec, ok := m.records[enc]
	if !ok {
		return reqstatus.StatusWithContext{}, ErrKeyNotFound
	}
	prev := rec.Status
	if !prev.Status.CanTransitionTo(status.Status) {
		return reqstatus.StatusWithContext{}, ErrIllegalTransition
	}
	rec.Status = status
	return prev, nil
}

func (m *Memory) ListStatus(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]Entry, 0, len(m.records))
	for enc, rec := range m.records {
		entries = append(entries, Entry{Key: m.keys[enc], Status: rec.Status})
	}
	return entries, nil
}
