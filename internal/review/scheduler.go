package review

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/fsrs"
	"github.com/conorfennell/recall/internal/storage"
)

// Scheduler applies review outcomes to persisted schedule state and
// selects the cards due for a session.
type Scheduler struct {
	store            *storage.DB
	model            *fsrs.Model
	desiredRetention float64
}

func NewScheduler(store *storage.DB, model *fsrs.Model, desiredRetention float64) *Scheduler {
	return &Scheduler{
		store:            store,
		model:            model,
		desiredRetention: desiredRetention,
	}
}

// ReviewOutcome records one pass/fail verdict for the card and returns
// the effective interval, in fractional days, until it is due again.
func (s *Scheduler) ReviewOutcome(ctx context.Context, card domain.Card, outcome domain.Outcome, now time.Time) (float64, error) {
	prior, err := s.store.Performance(ctx, card.Hash)
	if err != nil {
		return 0, fmt.Errorf("failed to load schedule for review: %w", err)
	}

	perf, err := fsrs.UpdatePerformance(s.model, prior, outcome, s.desiredRetention, now)
	if err != nil {
		return 0, fmt.Errorf("failed to forecast next review: %w", err)
	}

	if err := s.store.WritePerformance(ctx, card.Hash, perf); err != nil {
		return 0, fmt.Errorf("failed to persist review: %w", err)
	}
	return perf.IntervalRaw, nil
}

// DueToday returns the ordered cards eligible for review now, scoped to
// the supplied fingerprint map. Overdue cards come first, most overdue
// leading; never-reviewed cards follow. cardLimit caps the whole list
// and newCardLimit caps never-reviewed cards separately; a skipped new
// card does not consume the total cap. A limit of zero or below means
// no limit.
func (s *Scheduler) DueToday(ctx context.Context, cards map[string]domain.Card, cardLimit, newCardLimit int) ([]domain.Card, error) {
	notDueAfter := time.Now().Add(fsrs.LearnAheadThreshold)
	candidates, err := s.store.DueCandidates(ctx, notDueAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to select due cards: %w", err)
	}

	var due []domain.Card
	newAdmitted := 0
	for _, candidate := range candidates {
		card, ok := cards[candidate.Hash]
		if !ok {
			continue
		}
		if candidate.ReviewCount == 0 {
			if newCardLimit > 0 && newAdmitted >= newCardLimit {
				continue
			}
			newAdmitted++
		}
		due = append(due, card)
		if cardLimit > 0 && len(due) >= cardLimit {
			break
		}
	}
	return due, nil
}
