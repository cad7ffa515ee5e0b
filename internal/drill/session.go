package drill

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/fsrs"
	"github.com/conorfennell/recall/internal/llm"
)

// State is the session's position in the review cycle.
type State int

const (
	// Reviewing shows the current card with its answer hidden.
	Reviewing State = iota
	// AnswerShown shows the current card with its answer visible.
	AnswerShown
	// Complete means both the active and redo lists are exhausted.
	Complete
)

// learnAheadDays is the redo threshold in fractional days: a pass whose
// next interval lands inside it must reappear before the session ends.
var learnAheadDays = fsrs.LearnAheadThreshold.Hours() / 24

// OutcomeRecorder persists one review verdict and reports the effective
// interval, in fractional days, until the card is due again.
type OutcomeRecorder interface {
	ReviewOutcome(ctx context.Context, card domain.Card, outcome domain.Outcome, now time.Time) (float64, error)
}

// Session owns all state of one drill run. It is driven from a single
// goroutine; enhancement results reach it only through ApplyUpdate.
type Session struct {
	recorder OutcomeRecorder

	cards       []domain.Card
	redo        []domain.Card
	cursor      int
	state       State
	lastOutcome *domain.Outcome
}

// NewSession starts a session over the ordered card list.
func NewSession(cards []domain.Card, recorder OutcomeRecorder) *Session {
	s := &Session{
		recorder: recorder,
		cards:    append([]domain.Card(nil), cards...),
		state:    Reviewing,
	}
	if len(s.cards) == 0 {
		s.state = Complete
	}
	return s
}

func (s *Session) State() State { return s.state }

// IsComplete reports whether both card lists are exhausted.
func (s *Session) IsComplete() bool { return s.state == Complete }

// CurrentCard returns the card under the cursor.
func (s *Session) CurrentCard() (domain.Card, bool) {
	if s.state == Complete {
		return domain.Card{}, false
	}
	return s.cards[s.cursor], true
}

// Remaining is the number of cards left in the active list, the current
// one included.
func (s *Session) Remaining() int {
	if s.state == Complete {
		return 0
	}
	return len(s.cards) - s.cursor
}

// RedoCount is the number of cards queued to reappear.
func (s *Session) RedoCount() int { return len(s.redo) }

// LastOutcome is the most recent verdict, for display.
func (s *Session) LastOutcome() (domain.Outcome, bool) {
	if s.lastOutcome == nil {
		return domain.Pass, false
	}
	return *s.lastOutcome, true
}

// Snapshot returns a copy of the active list, safe to hand to a
// background task.
func (s *Session) Snapshot() []domain.Card {
	return append([]domain.Card(nil), s.cards...)
}

// Reveal shows the answer of the current card. It reports whether the
// transition happened; a card still waiting on enhancement stays hidden.
func (s *Session) Reveal() bool {
	if s.state != Reviewing {
		return false
	}
	card, ok := s.CurrentCard()
	if !ok || card.Status.Pending() {
		return false
	}
	s.state = AnswerShown
	return true
}

// HandleReview records the verdict for the current card and advances the
// cursor. Failed cards, and passes whose next interval falls inside the
// learn-ahead window, are queued for redo so they reappear before the
// session completes.
func (s *Session) HandleReview(ctx context.Context, outcome domain.Outcome, now time.Time) error {
	if s.state != AnswerShown {
		return fmt.Errorf("cannot review before the answer is shown")
	}
	card, ok := s.CurrentCard()
	if !ok {
		return fmt.Errorf("no card under review")
	}

	intervalDays, err := s.recorder.ReviewOutcome(ctx, card, outcome, now)
	if err != nil {
		return err
	}

	if outcome == domain.Fail || intervalDays < learnAheadDays {
		s.redo = append(s.redo, card)
	}
	s.lastOutcome = &outcome
	s.advance()
	return nil
}

// advance moves to the next card, promoting the redo list to active when
// the active list runs out. The cycle repeats until a pass earns every
// card an interval past the learn-ahead window.
func (s *Session) advance() {
	s.cursor++
	if s.cursor < len(s.cards) {
		s.state = Reviewing
		return
	}
	if len(s.redo) > 0 {
		s.cards = s.redo
		s.redo = nil
		s.cursor = 0
		s.state = Reviewing
		return
	}
	s.state = Complete
}

// ApplyUpdate replaces the card matching the update's fingerprint in
// both lists. Source location is kept from the card already in place.
func (s *Session) ApplyUpdate(update llm.Update) {
	apply := func(cards []domain.Card) {
		for i := range cards {
			if cards[i].Hash != update.Hash {
				continue
			}
			updated := update.Card
			updated.FilePath = cards[i].FilePath
			updated.StartLine = cards[i].StartLine
			updated.EndLine = cards[i].EndLine
			updated.Status = domain.Enhanced
			cards[i] = updated
		}
	}
	apply(s.cards)
	apply(s.redo)
}
