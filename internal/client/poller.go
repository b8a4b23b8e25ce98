package client

import (
	"context"
	"log"
	"time"
)

// PollInterval is the fixed cadence at which remote typing state is read.
const PollInterval = 2 * time.Second

// View renders the typing indicator. Implementations bind it to whatever
// surface displays the conversation.
type View interface {
	// ShowTyping displays the indicator with the given label and scrolls
	// the message list to the bottom so the indicator is visible.
	ShowTyping(label string)

	// HideTyping hides the indicator and clears its label. It must not
	// scroll, so the reader's position is preserved.
	HideTyping()
}

// Poller periodically reads the conversation's typing state and drives a
// View. It polls once immediately, then on a fixed interval until its
// context is cancelled (the conversation view going away).
type Poller struct {
	checker  Checker
	view     View
	target   ConversationTarget
	interval time.Duration
}

// NewPoller creates a poller for the given conversation. The target decides
// label style: per-user names in room mode, the generic label in legacy
// direct-message mode.
func NewPoller(checker Checker, view View, target ConversationTarget) *Poller {
	return &Poller{
		checker:  checker,
		view:     view,
		target:   target,
		interval: PollInterval,
	}
}

// Run blocks, polling until ctx is cancelled. Call it in a goroutine owned
// by the conversation view's lifetime.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Leave the indicator hidden on the way out.
			p.view.HideTyping()
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll performs one check and updates the view. A failed check hides the
// indicator: stale "is typing" is worse than a missed one, and the next
// successful poll recovers.
func (p *Poller) poll(ctx context.Context) {
	result, err := p.checker.Check(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[typing-client] check failed: %v", err)
		}
		p.view.HideTyping()
		return
	}

	if !result.IsTyping {
		p.view.HideTyping()
		return
	}

	if p.target.IsRoom() {
		if label := FormatLabel(result.Users); label != "" {
			p.view.ShowTyping(label)
		} else {
			// is_typing without names should not happen in room mode;
			// treat it as quiet rather than show an empty label.
			p.view.HideTyping()
		}
		return
	}
	p.view.ShowTyping(GenericLabel)
}
