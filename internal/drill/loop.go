package drill

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/llm"
)

// Event is one user action delivered by the UI.
type Event int

const (
	// EventNone means the poll timed out with no input.
	EventNone Event = iota
	EventReveal
	EventPass
	EventFail
	EventQuit
)

// UI renders the session and delivers user events. PollEvent must
// return EventNone once the timeout elapses; it never blocks
// indefinitely.
type UI interface {
	Render(s *Session) error
	PollEvent(timeout time.Duration) (Event, error)
}

// pollTimeout bounds worst-case input latency and sets the cadence at
// which enhancement updates are folded into the session.
const pollTimeout = 250 * time.Millisecond

// Run drives the session until it completes or the user quits. When
// pendingCount is positive, the overlay enhances flagged cards in the
// background; its results are drained once per render cycle. Quitting
// abandons in-flight enhancement requests rather than awaiting them.
func Run(ctx context.Context, session *Session, ui UI, overlay *llm.Preprocessor, pendingCount int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		updates    chan llm.Update
		overlayErr chan error
	)
	if pendingCount > 0 {
		updates = make(chan llm.Update, pendingCount)
		overlayErr = make(chan error, 1)
		snapshot := session.Snapshot()
		go func() {
			overlayErr <- overlay.Run(ctx, snapshot, updates)
		}()
	}

	for !session.IsComplete() {
		drainUpdates(session, updates)

		select {
		case err := <-overlayErr:
			if err != nil {
				return fmt.Errorf("card enhancement failed: %w", err)
			}
			overlayErr = nil
		default:
		}

		if err := ui.Render(session); err != nil {
			return err
		}

		event, err := ui.PollEvent(pollTimeout)
		if err != nil {
			return err
		}
		switch event {
		case EventQuit:
			return nil
		case EventReveal:
			session.Reveal()
		case EventPass:
			if session.State() == AnswerShown {
				if err := session.HandleReview(ctx, domain.Pass, time.Now()); err != nil {
					return err
				}
			}
		case EventFail:
			if session.State() == AnswerShown {
				if err := session.HandleReview(ctx, domain.Fail, time.Now()); err != nil {
					return err
				}
			}
		}
	}

	return ui.Render(session)
}

// drainUpdates applies every enhancement already delivered without
// blocking the render cycle.
func drainUpdates(session *Session, updates <-chan llm.Update) {
	if updates == nil {
		return
	}
	for {
		select {
		case update := <-updates:
			session.ApplyUpdate(update)
		default:
			return
		}
	}
}
