package client

import (
	"context"
	"log"
	"sync"
	"time"
)

// InactivityTimeout is how long the composer waits after the last keystroke
// before reporting that typing stopped. Deliberately shorter than the
// server-side TTL: the explicit stop is the fast path, TTL expiry the
// backstop.
const InactivityTimeout = 1500 * time.Millisecond

// Composer tracks the local user's typing state for one composition field
// and translates it into start/stop signals:
//
//   - The first keystroke after idleness fires a start signal immediately.
//   - Every keystroke re-arms the inactivity timer.
//   - Timer expiry, submission, and teardown fire a stop signal; submission
//     and teardown pre-empt the timer.
//
// All signals are delivered by a single worker goroutine in the order the
// local state changed, so a slow start request can never land after the
// stop that supersedes it. Signal failures are logged and dropped.
// Composer is safe for concurrent use, though a conversation view drives
// it from a single event stream in practice.
type Composer struct {
	signaler   Signaler
	inactivity time.Duration

	mu     sync.Mutex
	typing bool
	closed bool
	timer  *time.Timer
	jobs   chan signalJob
}

// signalJob is one queued signal delivery. done, when non-nil, is closed
// after the delivery attempt so the enqueuer can wait for it.
type signalJob struct {
	name string
	fn   func(context.Context) error
	done chan struct{}
}

// NewComposer creates a composer in the not-typing state and starts its
// delivery worker. Call Close to release the worker.
func NewComposer(signaler Signaler) *Composer {
	c := &Composer{
		signaler:   signaler,
		inactivity: InactivityTimeout,
		jobs:       make(chan signalJob, 16),
	}
	go c.deliver()
	return c
}

func (c *Composer) deliver() {
	for job := range c.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		if err := job.fn(ctx); err != nil {
			log.Printf("[typing-client] %s signal failed: %v", job.name, err)
		}
		cancel()
		if job.done != nil {
			close(job.done)
		}
	}
}

// Input records a keystroke in the composition field. The start signal for
// the first keystroke is queued to the worker so the input path never waits
// on the network; if the queue is saturated the start is dropped, which
// only means the peer sees nothing.
func (c *Composer) Input() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if !c.typing {
		c.typing = true
		select {
		case c.jobs <- signalJob{name: "start", fn: c.signaler.Start}:
		default:
			log.Printf("[typing-client] signal queue full, start dropped")
		}
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.inactivity, c.inactivityElapsed)
}

func (c *Composer) inactivityElapsed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.typing || c.closed {
		return
	}
	c.typing = false
	c.timer = nil
	c.jobs <- signalJob{name: "stop", fn: c.signaler.Stop}
}

// Submit records that the message was sent. If the user was mid-typing,
// Submit blocks until the stop signal has been delivered, so the store
// observes the clear no later than the submission itself.
func (c *Composer) Submit() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	wasTyping := c.typing
	c.typing = false

	var done chan struct{}
	if wasTyping {
		done = make(chan struct{})
		c.jobs <- signalJob{name: "stop", fn: c.signaler.Stop, done: done}
	}
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Close tears the composer down when the conversation view goes away,
// firing a best-effort stop if the user was typing. If the signal is lost,
// server-side TTL expiry cleans up. Input after Close is a no-op; Close
// itself is idempotent.
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.typing {
		c.typing = false
		c.jobs <- signalJob{name: "stop", fn: c.signaler.Stop}
	}
	close(c.jobs)
}
