package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedChecker returns queued results in order, repeating the last one.
type scriptedChecker struct {
	mu      sync.Mutex
	results []checkOutcome
	calls   int
}

type checkOutcome struct {
	result CheckResult
	err    error
}

func (c *scriptedChecker) Check(context.Context) (CheckResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	out := c.results[i]
	return out.result, out.err
}

// recordingView records ShowTyping/HideTyping transitions.
type recordingView struct {
	mu     sync.Mutex
	events []string
	ch     chan string
}

func newRecordingView() *recordingView {
	return &recordingView{ch: make(chan string, 64)}
}

func (v *recordingView) record(e string) {
	v.mu.Lock()
	v.events = append(v.events, e)
	v.mu.Unlock()
	v.ch <- e
}

func (v *recordingView) ShowTyping(label string) { v.record("show:" + label) }
func (v *recordingView) HideTyping()             { v.record("hide") }

func waitEvent(t *testing.T, v *recordingView, want string) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case got := <-v.ch:
			if got == want {
				return
			}
			// Skip repeats of the previous state while polling.
		case <-deadline:
			t.Fatalf("timed out waiting for view event %q", want)
		}
	}
}

func newTestPoller(checker Checker, view View, target ConversationTarget) *Poller {
	p := NewPoller(checker, view, target)
	p.interval = 10 * time.Millisecond
	return p
}

func TestPollerImmediateFirstCheck(t *testing.T) {
	checker := &scriptedChecker{results: []checkOutcome{
		{result: CheckResult{IsTyping: true, Users: []string{"alice"}}},
	}}
	view := newRecordingView()
	p := newTestPoller(checker, view, RoomTarget(10))
	p.interval = time.Hour // only the immediate check runs

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitEvent(t, view, "show:alice is typing...")
}

func TestPollerShowAndHide(t *testing.T) {
	checker := &scriptedChecker{results: []checkOutcome{
		{result: CheckResult{}},
		{result: CheckResult{IsTyping: true, Users: []string{"alice", "bob"}}},
		{result: CheckResult{}},
	}}
	view := newRecordingView()
	p := newTestPoller(checker, view, RoomTarget(10))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitEvent(t, view, "hide")
	waitEvent(t, view, "show:alice, bob are typing...")
	waitEvent(t, view, "hide")
}

func TestPollerLegacyGenericLabel(t *testing.T) {
	checker := &scriptedChecker{results: []checkOutcome{
		{result: CheckResult{IsTyping: true}},
	}}
	view := newRecordingView()
	p := newTestPoller(checker, view, DirectTarget("bob"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitEvent(t, view, "show:"+GenericLabel)
}

func TestPollerCheckFailureHidesIndicator(t *testing.T) {
	checker := &scriptedChecker{results: []checkOutcome{
		{result: CheckResult{IsTyping: true, Users: []string{"alice"}}},
		{err: errors.New("network down")},
	}}
	view := newRecordingView()
	p := newTestPoller(checker, view, RoomTarget(10))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitEvent(t, view, "show:alice is typing...")
	waitEvent(t, view, "hide")
}

func TestPollerCancelStopsPolling(t *testing.T) {
	checker := &scriptedChecker{results: []checkOutcome{
		{result: CheckResult{}},
	}}
	view := newRecordingView()
	p := newTestPoller(checker, view, RoomTarget(10))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitEvent(t, view, "hide")
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}

	// No further checks after shutdown settles.
	checker.mu.Lock()
	settled := checker.calls
	checker.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	checker.mu.Lock()
	after := checker.calls
	checker.mu.Unlock()
	if after != settled {
		t.Errorf("poller kept checking after cancel: %d -> %d", settled, after)
	}
}
