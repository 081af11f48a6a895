// Copyright 2025 James Ross
// Package reqstatus holds the Status lifecycle: the discriminated union
// described in spec §3.1, its legal-transition table (spec §4.1), and the
// timestamped wrapper the Pool actually stores.
package reqstatus

import "time"

// Kind discriminates the Status union.
type Kind uint8

const (
	Registered Kind = iota
	WorkInProgress
	Cancelled
	Success
	Failed
)

func (k Kind) String() string {
	switch k {
	case Registered:
		return "registered"
	case WorkInProgress:
		return "work_in_progress"
	case Cancelled:
		return "cancelled"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the discriminated union over {Registered, WorkInProgress,
// Cancelled, Success{proof}, Failed{error}}. Success carries the proof
// artifact; Failed carries a human-readable error string.
type Status struct {
	Kind  Kind
	Proof []byte // set iff Kind == Success
	Error string // set iff Kind == Failed
}

func NewRegistered() Status           { return Status{Kind: Registered} }
func NewWorkInProgress() Status       { return Status{Kind: WorkInProgress} }
func NewCancelled() Status            { return Status{Kind: Cancelled} }
func NewSuccess(proof []byte) Status  { return Status{Kind: Success, Proof: proof} }
func NewFailed(err string) Status     { return Status{Kind: Failed, Error: err} }

// IsTerminal reports whether no further transitions are permitted without
// an explicit removal (spec §3.2).
func (s Status) IsTerminal() bool {
	return s.Kind == Success || s.Kind == Failed || s.Kind == Cancelled
}

// legalNextKinds enumerates spec §4.1's transition table. Terminal states
// have no legal next kind; they must be removed first.
var legalNextKinds = map[Kind]map[Kind]bool{
	Registered:     {WorkInProgress: true, Cancelled: true, Failed: true},
	WorkInProgress: {Success: true, Failed: true, Cancelled: true},
}

// CanTransitionTo reports whether moving from s to next is legal per spec
// §4.1. Terminal -> anything is always illegal.
func (s Status) CanTransitionTo(next Status) bool {
	allowed, ok := legalNextKinds[s.Kind]
	if !ok {
		return false
	}
	return allowed[next.Kind]
}

// StatusWithContext pairs a Status with the wall-clock instant of its
// transition, which is what callers observe via get_status.
type StatusWithContext struct {
	Status    Status
	Timestamp time.Time
}

// New pairs a status with the given transition time.
func New(status Status, at time.Time) StatusWithContext {
	return StatusWithContext{Status: status, Timestamp: at}
}
