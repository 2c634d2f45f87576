// Copyright 2024 The Assuan Authors.

package assuan

import (
	"testing"
	"time"
)

// TestHookedVtableWrapsEveryCall exercises §4.A's "hooks wrap every
// default-path call" and §5's suspension-points list: read, write, sendmsg,
// recvmsg, waitpid, usleep, connect, accept must all fire Before/After in
// that call order, regardless of whether the underlying vtable call itself
// succeeds.
func TestHookedVtableWrapsEveryCall(t *testing.T) {
	v := newFakeVtable()
	a, _, err := v.Socketpair()
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}

	var before, after []string
	h := &HookedVtable{
		SystemVtable: v,
		Before:       func(call string) { before = append(before, call) },
		After:        func(call string) { after = append(after, call) },
	}

	_, _ = h.Read(a, make([]byte, 1))
	_, _ = h.Write(a, []byte("x"))
	_, _ = h.Sendmsg(a, []byte("x"), nil)
	_, _, _ = h.Recvmsg(a, make([]byte, 1))
	_, _ = h.Waitpid(1, false)
	h.Usleep(time.Millisecond)
	_ = h.Connect(a, "/nonexistent")
	_, _ = h.Accept(a)

	want := []string{"read", "write", "sendmsg", "recvmsg", "waitpid", "usleep", "connect", "accept"}
	if len(before) != len(want) {
		t.Fatalf("Before fired %d times (%v), want %d (%v)", len(before), before, len(want), want)
	}
	if len(after) != len(want) {
		t.Fatalf("After fired %d times (%v), want %d (%v)", len(after), after, len(want), want)
	}
	for i, call := range want {
		if before[i] != call {
			t.Errorf("Before[%d] = %q, want %q", i, before[i], call)
		}
		if after[i] != call {
			t.Errorf("After[%d] = %q, want %q", i, after[i], call)
		}
	}
}

// TestHookedVtableRunsAroundFailingCalls ensures a hook still brackets a
// call whose underlying result is an error, since cancellation/signal
// handling has to run regardless of outcome.
func TestHookedVtableRunsAroundFailingCalls(t *testing.T) {
	v := newFakeVtable()
	var calls int
	h := &HookedVtable{
		SystemVtable: v,
		Before:       func(string) { calls++ },
		After:        func(string) { calls++ },
	}

	if err := h.Connect(0, "/nonexistent"); err == nil {
		t.Fatalf("Connect: want an error from the fake vtable's stub")
	}
	if calls != 2 {
		t.Fatalf("hook fired %d times around a failing call, want 2", calls)
	}
}
