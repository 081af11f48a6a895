// Copyright 2025 James Ross
package reqstatus_test

import (
	"testing"

	"github.com/blockprover/orchestrator/internal/reqstatus"
	"github.com/stretchr/testify/require"
)

// TestTransitionTable walks every (from, to) pair over the five Kinds and
// checks it against spec.md §4.1's table directly, rather than only through
// the scenarios internal/reqpool's tests happen to exercise.
func TestTransitionTable(t *testing.T) {
	allKinds := []reqstatus.Kind{
		reqstatus.Registered, reqstatus.WorkInProgress, reqstatus.Cancelled,
		reqstatus.Success, reqstatus.Failed,
	}
	legal := map[reqstatus.Kind]map[reqstatus.Kind]bool{
		reqstatus.Registered:     {reqstatus.WorkInProgress: true, reqstatus.Cancelled: true, reqstatus.Failed: true},
		reqstatus.WorkInProgress: {reqstatus.Success: true, reqstatus.Failed: true, reqstatus.Cancelled: true},
	}

	statusFor := func(k reqstatus.Kind) reqstatus.Status {
		switch k {
		case reqstatus.Registered:
			return reqstatus.NewRegistered()
		case reqstatus.WorkInProgress:
			return reqstatus.NewWorkInProgress()
		case reqstatus.Cancelled:
			return reqstatus.NewCancelled()
		case reqstatus.Success:
			return reqstatus.NewSuccess([]byte("p"))
		default:
			return reqstatus.NewFailed("e")
		}
	}

	for _, from := range allKinds {
		for _, to := range allKinds {
			want := legal[from][to]
			got := statusFor(from).CanTransitionTo(statusFor(to))
			require.Equalf(t, want, got, "CanTransitionTo(%s -> %s)", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	require.False(t, reqstatus.NewRegistered().IsTerminal())
	require.False(t, reqstatus.NewWorkInProgress().IsTerminal())
	require.True(t, reqstatus.NewCancelled().IsTerminal())
	require.True(t, reqstatus.NewSuccess(nil).IsTerminal())
	require.True(t, reqstatus.NewFailed("boom").IsTerminal())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "registered", reqstatus.Registered.String())
	require.Equal(t, "work_in_progress", reqstatus.WorkInProgress.String())
	require.Equal(t, "cancelled", reqstatus.Cancelled.String())
	require.Equal(t, "success", reqstatus.Success.String())
	require.Equal(t, "failed", reqstatus.Failed.String())
	require.Equal(t, "unknown", reqstatus.Kind(99).String())
}
