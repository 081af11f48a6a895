// Copyright 2025 James Ross
// Package reqactor is the long-running coordinator (spec §4.3): it binds
// the Pool, the two-tier priority scheduler, and a bounded set of worker
// slots into a single task that is the sole writer of non-terminal status
// transitions. The scheduler lives in this same package (queue.go) rather
// than its own, mirroring the original's single-crate layout where the
// scheduler's internals reach directly into the Action type.
package reqactor

import (
	"github.com/blockprover/orchestrator/internal/reqentity"
	"github.com/blockprover/orchestrator/internal/reqkey"
)

// Kind discriminates the Action union.
type Kind uint8

const (
	KindProve Kind = iota
	KindCancel
)

func (k Kind) String() string {
	if k == KindCancel {
		return "cancel"
	}
	return "prove"
}

// Action is the message driven into the Actor, constructed by the Gateway
// from external submissions (spec §3.1).
type Action struct {
	Kind   Kind
	Key    reqkey.RequestKey
	Entity reqentity.RequestEntity // meaningful only when Kind == KindProve
}

// NewProve builds a Prove action.
func NewProve(key reqkey.RequestKey, entity reqentity.RequestEntity) Action {
	return Action{Kind: KindProve, Key: key, Entity: entity}
}

// NewCancel builds a Cancel action.
func NewCancel(key reqkey.RequestKey) Action {
	return Action{Kind: KindCancel, Key: key}
}

func (a Action) String() string {
	if a.Kind == KindCancel {
		return "Cancel{" + a.Key.String() + "}"
	}
	return "Prove{" + a.Key.String() + "}"
}
