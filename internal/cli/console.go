package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/drill"
	"github.com/conorfennell/recall/internal/parser"
)

// Console is a line-oriented drill surface: one card per frame, one
// keyword per action. A reader goroutine feeds stdin lines into an
// event channel so the session loop never blocks on input.
type Console struct {
	out    io.Writer
	events chan drill.Event

	// lastFrame suppresses reprinting an unchanged card on every poll
	// cycle.
	lastFrame string
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out, events: make(chan drill.Event)}
	go c.readLoop(in)
	return c
}

func (c *Console) readLoop(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		event, ok := parseEvent(scanner.Text())
		if !ok {
			continue
		}
		c.events <- event
	}
	close(c.events)
}

func parseEvent(line string) (drill.Event, bool) {
	switch strings.TrimSpace(strings.ToLower(line)) {
	case "", "r", "reveal":
		return drill.EventReveal, true
	case "p", "pass", "y":
		return drill.EventPass, true
	case "f", "fail", "n":
		return drill.EventFail, true
	case "q", "quit", "exit":
		return drill.EventQuit, true
	default:
		return drill.EventNone, false
	}
}

// PollEvent delivers the next user action, or EventNone once the
// timeout elapses. A closed input stream ends the session.
func (c *Console) PollEvent(timeout time.Duration) (drill.Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case event, ok := <-c.events:
		if !ok {
			return drill.EventQuit, nil
		}
		return event, nil
	case <-timer.C:
		return drill.EventNone, nil
	}
}

// Render prints the current frame when it differs from the last one.
func (c *Console) Render(s *drill.Session) error {
	frame := renderFrame(s)
	if frame == c.lastFrame {
		return nil
	}
	c.lastFrame = frame
	_, err := fmt.Fprint(c.out, frame)
	return err
}

func renderFrame(s *drill.Session) string {
	if s.IsComplete() {
		return "\nSession complete.\n"
	}

	card, _ := s.CurrentCard()
	var b strings.Builder

	fmt.Fprintf(&b, "\n[%d left", s.Remaining())
	if s.RedoCount() > 0 {
		fmt.Fprintf(&b, ", %d redo", s.RedoCount())
	}
	b.WriteString("]")
	if outcome, ok := s.LastOutcome(); ok {
		fmt.Fprintf(&b, " last: %s", outcome.Label())
	}
	b.WriteString("\n")

	if card.Status.Pending() {
		b.WriteString("  (enhancing card, please wait)\n")
		return b.String()
	}

	switch content := card.Content.(type) {
	case domain.Basic:
		fmt.Fprintf(&b, "  Q: %s\n", content.Question)
		if s.State() == drill.AnswerShown {
			fmt.Fprintf(&b, "  A: %s\n", content.Answer)
		}
	case domain.Cloze:
		if s.State() == drill.AnswerShown {
			fmt.Fprintf(&b, "  %s\n", content.Text)
		} else {
			fmt.Fprintf(&b, "  %s\n", parser.MaskClozeText(content.Text, content.Range))
		}
	}

	if s.State() == drill.AnswerShown {
		b.WriteString("  (p)ass / (f)ail / (q)uit > ")
	} else {
		b.WriteString("  [enter] reveal / (q)uit > ")
	}
	return b.String()
}
