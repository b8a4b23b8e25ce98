package client

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recordingSignaler records start/stop signals and exposes them both as a
// log (for ordering checks) and a channel (for timing checks).
type recordingSignaler struct {
	mu      sync.Mutex
	signals []string
	ch      chan string
}

func newRecordingSignaler() *recordingSignaler {
	return &recordingSignaler{ch: make(chan string, 16)}
}

func (r *recordingSignaler) record(s string) {
	r.mu.Lock()
	r.signals = append(r.signals, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *recordingSignaler) Start(context.Context) error { r.record("start"); return nil }
func (r *recordingSignaler) Stop(context.Context) error  { r.record("stop"); return nil }

func (r *recordingSignaler) log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.signals...)
}

// waitSignal asserts the next signal within a deadline.
func waitSignal(t *testing.T, r *recordingSignaler, want string, within time.Duration) {
	t.Helper()
	select {
	case got := <-r.ch:
		if got != want {
			t.Fatalf("got signal %q, want %q", got, want)
		}
	case <-time.After(within):
		t.Fatalf("timed out waiting for %q signal", want)
	}
}

// assertNoSignal asserts silence for the given duration.
func assertNoSignal(t *testing.T, r *recordingSignaler, during time.Duration) {
	t.Helper()
	select {
	case got := <-r.ch:
		t.Fatalf("unexpected signal %q", got)
	case <-time.After(during):
	}
}

func newTestComposer(inactivity time.Duration) (*Composer, *recordingSignaler) {
	rec := newRecordingSignaler()
	c := NewComposer(rec)
	c.inactivity = inactivity
	return c, rec
}

func TestFirstKeystrokeSignalsStart(t *testing.T) {
	c, rec := newTestComposer(time.Hour) // timer never fires in this test

	c.Input()
	waitSignal(t, rec, "start", time.Second)

	// Further keystrokes while typing send nothing.
	c.Input()
	c.Input()
	assertNoSignal(t, rec, 50*time.Millisecond)
}

func TestInactivitySignalsStop(t *testing.T) {
	c, rec := newTestComposer(40 * time.Millisecond)

	c.Input()
	waitSignal(t, rec, "start", time.Second)
	waitSignal(t, rec, "stop", time.Second)

	// A new keystroke after going quiet is a fresh start.
	c.Input()
	waitSignal(t, rec, "start", time.Second)
}

func TestKeystrokesResetTimer(t *testing.T) {
	c, rec := newTestComposer(80 * time.Millisecond)

	c.Input()
	waitSignal(t, rec, "start", time.Second)

	// Keep typing at half the inactivity interval; no stop may fire.
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		c.Input()
	}
	assertNoSignal(t, rec, 40*time.Millisecond)

	// Now go quiet and the stop arrives.
	waitSignal(t, rec, "stop", time.Second)
}

func TestSubmitPreemptsTimer(t *testing.T) {
	c, rec := newTestComposer(time.Hour)

	c.Input()
	waitSignal(t, rec, "start", time.Second)

	// Submit sends the stop synchronously: it must already be recorded
	// when Submit returns.
	c.Submit()
	log := rec.log()
	if len(log) != 2 || log[1] != "stop" {
		t.Fatalf("after submit, signal log = %v, want [start stop]", log)
	}

	// Submitting while not typing sends nothing.
	<-rec.ch // drain the stop
	c.Submit()
	assertNoSignal(t, rec, 50*time.Millisecond)
}

// slowStartSignaler delays start delivery to widen the window between the
// first keystroke and a submission racing it.
type slowStartSignaler struct {
	*recordingSignaler
	delay time.Duration
}

func (s *slowStartSignaler) Start(ctx context.Context) error {
	time.Sleep(s.delay)
	return s.recordingSignaler.Start(ctx)
}

func TestSlowStartCannotOutliveSubmitStop(t *testing.T) {
	rec := newRecordingSignaler()
	c := NewComposer(&slowStartSignaler{recordingSignaler: rec, delay: 50 * time.Millisecond})
	c.inactivity = time.Hour
	defer c.Close()

	// Submit immediately after the first keystroke. Even with the start
	// request still in flight, the store-visible order must stay
	// start-then-stop; a start landing last would leave a phantom typing
	// entry until TTL expiry.
	c.Input()
	c.Submit()

	log := rec.log()
	if len(log) != 2 || log[0] != "start" || log[1] != "stop" {
		t.Fatalf("after submit, signal log = %v, want [start stop]", log)
	}
}

func TestCloseSignalsStopAndDisablesInput(t *testing.T) {
	c, rec := newTestComposer(time.Hour)

	c.Input()
	waitSignal(t, rec, "start", time.Second)

	c.Close()
	waitSignal(t, rec, "stop", time.Second)

	// The composer is dead; input does nothing.
	c.Input()
	assertNoSignal(t, rec, 50*time.Millisecond)
}

func TestCloseWhileIdleIsSilent(t *testing.T) {
	c, rec := newTestComposer(time.Hour)
	c.Close()
	assertNoSignal(t, rec, 50*time.Millisecond)
}
