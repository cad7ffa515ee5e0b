package fsrs

import (
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

const secondsPerDay = 86_400.0

// LearnAheadThreshold pulls cards due this soon into the current session
// instead of deferring them to the next one.
const LearnAheadThreshold = 20 * time.Minute

// ReviewedPerformance is the scheduling state of a card that has been
// reviewed at least once. A card with no history is represented by a nil
// *ReviewedPerformance.
type ReviewedPerformance struct {
	LastReviewedAt time.Time
	Stability      float64
	Difficulty     float64
	IntervalRaw    float64 // effective interval in fractional days
	IntervalDays   int
	DueDate        time.Time
	ReviewCount    int
}

// earlyCaps bounds the effective interval for a card's first reviews,
// keyed by review count then outcome. From review three onward the
// model's recommendation stands.
var earlyCaps = map[int]map[domain.Outcome]time.Duration{
	0: {domain.Pass: time.Minute, domain.Fail: time.Minute},
	1: {domain.Pass: 10 * time.Minute, domain.Fail: time.Minute},
	2: {domain.Pass: 24 * time.Hour, domain.Fail: 10 * time.Minute},
}

func earlyIntervalCap(reviewCount int, outcome domain.Outcome) (time.Duration, bool) {
	byOutcome, ok := earlyCaps[reviewCount]
	if !ok {
		return 0, false
	}
	limit, ok := byOutcome[outcome]
	return limit, ok
}

// UpdatePerformance computes the card's next scheduling state from its
// prior state and one review outcome.
//
// The model interval is converted to whole seconds (rounded, floored at
// one second) before the early cap is applied, so sub-second drift never
// reaches the due date. Elapsed days are floored at zero to tolerate
// clock skew.
func UpdatePerformance(
	model *Model,
	prior *ReviewedPerformance,
	outcome domain.Outcome,
	desiredRetention float64,
	reviewedAt time.Time,
) (ReviewedPerformance, error) {
	var memory *MemoryState
	var elapsedDays uint
	reviewCount := 0

	if prior != nil {
		memory = &MemoryState{Stability: prior.Stability, Difficulty: prior.Difficulty}
		if days := reviewedAt.Sub(prior.LastReviewedAt) / (24 * time.Hour); days > 0 {
			elapsedDays = uint(days)
		}
		reviewCount = prior.ReviewCount
	}

	states, err := model.Forecast(memory, desiredRetention, elapsedDays)
	if err != nil {
		return ReviewedPerformance{}, err
	}

	next := states.OnPass
	if outcome == domain.Fail {
		next = states.OnFail
	}

	seconds := int64(next.IntervalDays*secondsPerDay + 0.5)
	if seconds < 1 {
		seconds = 1
	}
	interval := time.Duration(seconds) * time.Second
	if limit, ok := earlyIntervalCap(reviewCount, outcome); ok && interval > limit {
		interval = limit
	}

	effectiveDays := interval.Seconds() / secondsPerDay
	intervalDays := int(interval / (24 * time.Hour))

	return ReviewedPerformance{
		LastReviewedAt: reviewedAt,
		Stability:      next.Memory.Stability,
		Difficulty:     next.Memory.Difficulty,
		IntervalRaw:    effectiveDays,
		IntervalDays:   intervalDays,
		DueDate:        reviewedAt.Add(interval),
		ReviewCount:    reviewCount + 1,
	}, nil
}
