package fsrs

import (
	"math"
	"testing"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	model, err := DefaultModel()
	if err != nil {
		t.Fatalf("DefaultModel() error: %v", err)
	}
	return model
}

func TestNewModelRejectsBadWeights(t *testing.T) {
	bad := DefaultWeights
	bad[0] = 0
	if _, err := NewModel(bad); err == nil {
		t.Error("expected zero initial stability to be rejected")
	}

	bad = DefaultWeights
	bad[8] = math.NaN()
	if _, err := NewModel(bad); err == nil {
		t.Error("expected NaN weight to be rejected")
	}
}

func TestForecastRejectsBadRetention(t *testing.T) {
	model := newTestModel(t)
	for _, retention := range []float64{0, 1, -0.5, 1.5} {
		if _, err := model.Forecast(nil, retention, 0); err == nil {
			t.Errorf("expected retention %v to be rejected", retention)
		}
	}
}

func TestRetrievability(t *testing.T) {
	state := MemoryState{Stability: 5, Difficulty: 5}

	if r := Retrievability(state, 0); math.Abs(r-1) > 1e-9 {
		t.Errorf("retrievability at zero elapsed = %v, want 1", r)
	}
	// Retrievability hits the 0.9 target exactly when elapsed == stability.
	if r := Retrievability(state, 5); math.Abs(r-0.9) > 1e-9 {
		t.Errorf("retrievability at elapsed == stability = %v, want 0.9", r)
	}
	if Retrievability(state, 10) >= Retrievability(state, 5) {
		t.Error("retrievability should decay with elapsed time")
	}
}

func TestForecastIntervalMatchesStabilityAtDefaultRetention(t *testing.T) {
	model := newTestModel(t)
	states, err := model.Forecast(&MemoryState{Stability: 12, Difficulty: 5}, 0.9, 12)
	if err != nil {
		t.Fatalf("Forecast() error: %v", err)
	}
	// At 0.9 desired retention the recommended interval equals the new stability.
	if math.Abs(states.OnPass.IntervalDays-states.OnPass.Memory.Stability) > 1e-6 {
		t.Errorf("pass interval %v != stability %v",
			states.OnPass.IntervalDays, states.OnPass.Memory.Stability)
	}
	if states.OnPass.Memory.Stability <= 12 {
		t.Errorf("pass at full elapsed time should grow stability, got %v", states.OnPass.Memory.Stability)
	}
	if states.OnFail.Memory.Stability > 12 {
		t.Errorf("fail must not grow stability, got %v", states.OnFail.Memory.Stability)
	}
	if states.OnFail.Memory.Difficulty <= states.OnPass.Memory.Difficulty {
		t.Error("fail should leave the card harder than pass")
	}
}

func TestUpdatePerformanceNewCardCapped(t *testing.T) {
	model := newTestModel(t)
	now := time.Now().UTC()

	for _, outcome := range []domain.Outcome{domain.Pass, domain.Fail} {
		perf, err := UpdatePerformance(model, nil, outcome, 0.9, now)
		if err != nil {
			t.Fatalf("UpdatePerformance() error: %v", err)
		}
		if perf.ReviewCount != 1 {
			t.Errorf("review count = %d, want 1", perf.ReviewCount)
		}
		if !perf.LastReviewedAt.Equal(now) {
			t.Errorf("last reviewed = %v, want %v", perf.LastReviewedAt, now)
		}
		// Review #0 is capped at one minute for both outcomes.
		wantRaw := 1.0 / (24 * 60)
		if math.Abs(perf.IntervalRaw-wantRaw) > 1e-9 {
			t.Errorf("%s interval raw = %v, want %v", outcome.Label(), perf.IntervalRaw, wantRaw)
		}
		if perf.IntervalDays != 0 {
			t.Errorf("interval days = %d, want 0", perf.IntervalDays)
		}
		if got := perf.DueDate; !got.Equal(now.Add(time.Minute)) {
			t.Errorf("due = %v, want %v", got, now.Add(time.Minute))
		}
	}
}

func TestUpdatePerformanceCapTiers(t *testing.T) {
	model := newTestModel(t)
	now := time.Now().UTC()
	prior := func(reviewCount int) *ReviewedPerformance {
		return &ReviewedPerformance{
			LastReviewedAt: now.Add(-72 * time.Hour),
			Stability:      50,
			Difficulty:     5,
			IntervalRaw:    3,
			IntervalDays:   3,
			DueDate:        now,
			ReviewCount:    reviewCount,
		}
	}

	testCases := []struct {
		name        string
		reviewCount int
		outcome     domain.Outcome
		maxInterval time.Duration
	}{
		{"first review pass", 1, domain.Pass, 10 * time.Minute},
		{"first review fail", 1, domain.Fail, time.Minute},
		{"second review pass", 2, domain.Pass, 24 * time.Hour},
		{"second review fail", 2, domain.Fail, 10 * time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			perf, err := UpdatePerformance(model, prior(tc.reviewCount), tc.outcome, 0.9, now)
			if err != nil {
				t.Fatalf("UpdatePerformance() error: %v", err)
			}
			if got := perf.DueDate.Sub(now); got > tc.maxInterval {
				t.Errorf("interval = %v, want <= %v", got, tc.maxInterval)
			}
			if perf.ReviewCount != tc.reviewCount+1 {
				t.Errorf("review count = %d, want %d", perf.ReviewCount, tc.reviewCount+1)
			}
		})
	}
}

func TestUpdatePerformanceUncappedFromThirdReview(t *testing.T) {
	model := newTestModel(t)
	now := time.Now().UTC()
	prior := &ReviewedPerformance{
		LastReviewedAt: now.Add(-50 * 24 * time.Hour),
		Stability:      50,
		Difficulty:     3,
		IntervalRaw:    50,
		IntervalDays:   50,
		DueDate:        now,
		ReviewCount:    3,
	}

	perf, err := UpdatePerformance(model, prior, domain.Pass, 0.9, now)
	if err != nil {
		t.Fatalf("UpdatePerformance() error: %v", err)
	}
	if got := perf.DueDate.Sub(now); got <= 24*time.Hour {
		t.Errorf("expected an uncapped multi-day interval, got %v", got)
	}
	if perf.IntervalDays < 1 {
		t.Errorf("interval days = %d, want >= 1", perf.IntervalDays)
	}
	if perf.ReviewCount != 4 {
		t.Errorf("review count = %d, want 4", perf.ReviewCount)
	}
}

func TestUpdatePerformanceClampsNegativeElapsed(t *testing.T) {
	model := newTestModel(t)
	now := time.Now().UTC()
	// Last review in the future: clock skew. Elapsed must clamp to zero,
	// not fail or go negative.
	prior := &ReviewedPerformance{
		LastReviewedAt: now.Add(48 * time.Hour),
		Stability:      4,
		Difficulty:     5,
		IntervalRaw:    4,
		IntervalDays:   4,
		DueDate:        now,
		ReviewCount:    5,
	}

	perf, err := UpdatePerformance(model, prior, domain.Pass, 0.9, now)
	if err != nil {
		t.Fatalf("UpdatePerformance() error: %v", err)
	}
	if perf.ReviewCount != 6 {
		t.Errorf("review count = %d, want 6", perf.ReviewCount)
	}
	if perf.Stability <= 0 {
		t.Errorf("stability = %v, want positive", perf.Stability)
	}
}

func TestUpdatePerformanceFailShrinksInterval(t *testing.T) {
	model := newTestModel(t)
	now := time.Now().UTC()
	prior := &ReviewedPerformance{
		LastReviewedAt: now.Add(-31 * 24 * time.Hour),
		Stability:      31,
		Difficulty:     5,
		IntervalRaw:    31,
		IntervalDays:   31,
		DueDate:        now,
		ReviewCount:    5,
	}

	failed, err := UpdatePerformance(model, prior, domain.Fail, 0.9, now)
	if err != nil {
		t.Fatalf("UpdatePerformance() error: %v", err)
	}
	passed, err := UpdatePerformance(model, prior, domain.Pass, 0.9, now)
	if err != nil {
		t.Fatalf("UpdatePerformance() error: %v", err)
	}
	if failed.IntervalRaw >= passed.IntervalRaw {
		t.Errorf("fail interval %v should be shorter than pass interval %v",
			failed.IntervalRaw, passed.IntervalRaw)
	}
	if failed.Stability > prior.Stability {
		t.Errorf("fail stability %v should not exceed prior %v", failed.Stability, prior.Stability)
	}
}

func TestEarlyIntervalCapTable(t *testing.T) {
	if _, ok := earlyIntervalCap(3, domain.Pass); ok {
		t.Error("review #3 must be uncapped")
	}
	limit, ok := earlyIntervalCap(0, domain.Fail)
	if !ok || limit != time.Minute {
		t.Errorf("review #0 fail cap = %v, %v; want 1m, true", limit, ok)
	}
}
