package fsrs

import (
	"fmt"
	"math"
)

// Number of model weights. The defaults come from the published FSRS-4.5
// parameter fit; a custom vector of the same shape can replace them.
const numWeights = 17

const decay = -0.5

// factor makes retrievability hit 0.9 exactly when elapsed == stability.
var factor = math.Pow(0.9, 1/decay) - 1

// Weights parameterizes the memory model.
type Weights [numWeights]float64

// DefaultWeights is the FSRS-4.5 default parameter set.
var DefaultWeights = Weights{
	0.4872, 1.4003, 3.7145, 13.8206,
	5.1618, 1.2298, 0.8975, 0.031,
	1.6474, 0.1367, 1.0461, 2.1072,
	0.0793, 0.3246, 1.587, 0.2272,
	2.8755,
}

// MemoryState is the pair of model parameters tracked per card.
type MemoryState struct {
	Stability  float64
	Difficulty float64
}

// ItemState is one forecast branch: the memory state a card would hold
// after the review, and the recommended next interval in fractional days.
type ItemState struct {
	Memory       MemoryState
	IntervalDays float64
}

// NextStates holds the forecast for both possible review outcomes.
type NextStates struct {
	OnPass ItemState
	OnFail ItemState
}

// Model is an initialized memory-decay forecaster.
type Model struct {
	w Weights
}

// NewModel validates the weight vector. A model that cannot initialize
// is unusable: no review may proceed without one.
func NewModel(w Weights) (*Model, error) {
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("invalid model weight w[%d] = %v", i, v)
		}
	}
	for i := 0; i < 4; i++ {
		if w[i] <= 0 {
			return nil, fmt.Errorf("initial stability weight w[%d] must be positive", i)
		}
	}
	return &Model{w: w}, nil
}

// DefaultModel builds a model from the default parameter set.
func DefaultModel() (*Model, error) {
	return NewModel(DefaultWeights)
}

// Retrievability estimates the probability of recall after elapsedDays
// given the card's memory state. By construction it is 0.9 when the
// elapsed time equals the stability.
func Retrievability(state MemoryState, elapsedDays float64) float64 {
	if state.Stability <= 0 {
		return 0
	}
	return math.Pow(1+factor*elapsedDays/state.Stability, decay)
}

// Forecast computes the post-review memory state and recommended
// interval for both outcomes. A nil prior means the card has never been
// reviewed. elapsedDays is whole days since the last review.
func (m *Model) Forecast(prior *MemoryState, desiredRetention float64, elapsedDays uint) (NextStates, error) {
	if desiredRetention <= 0 || desiredRetention >= 1 {
		return NextStates{}, fmt.Errorf("desired retention must be in (0, 1), got %v", desiredRetention)
	}

	var onPass, onFail MemoryState
	if prior == nil {
		onPass = MemoryState{
			Stability:  m.w[2],
			Difficulty: m.initialDifficulty(ratingGood),
		}
		onFail = MemoryState{
			Stability:  m.w[0],
			Difficulty: m.initialDifficulty(ratingAgain),
		}
	} else {
		retrievability := Retrievability(*prior, float64(elapsedDays))
		onPass = MemoryState{
			Stability:  m.stabilityAfterSuccess(*prior, retrievability),
			Difficulty: m.nextDifficulty(prior.Difficulty, ratingGood),
		}
		onFail = MemoryState{
			Stability:  m.stabilityAfterFailure(*prior, retrievability),
			Difficulty: m.nextDifficulty(prior.Difficulty, ratingAgain),
		}
	}

	return NextStates{
		OnPass: ItemState{Memory: onPass, IntervalDays: nextInterval(onPass.Stability, desiredRetention)},
		OnFail: ItemState{Memory: onFail, IntervalDays: nextInterval(onFail.Stability, desiredRetention)},
	}, nil
}

// Ratings on the model's native 1-4 scale. Pass maps to Good, Fail to
// Again; Hard and Easy are unused by the binary review flow.
const (
	ratingAgain = 1.0
	ratingGood  = 3.0
)

func (m *Model) initialDifficulty(rating float64) float64 {
	d := m.w[4] - math.Exp(m.w[5]*(rating-1)) + 1
	return clampDifficulty(d)
}

// nextDifficulty shifts difficulty by the outcome and reverts it toward
// the easy-press baseline, so repeated failures cannot pin it at 10.
func (m *Model) nextDifficulty(difficulty, rating float64) float64 {
	shifted := difficulty - m.w[6]*(rating-3)
	reverted := m.w[7]*m.initialDifficulty(4) + (1-m.w[7])*shifted
	return clampDifficulty(reverted)
}

func (m *Model) stabilityAfterSuccess(state MemoryState, retrievability float64) float64 {
	s, d := state.Stability, state.Difficulty
	if s < minStability {
		s = minStability
	}
	growth := math.Exp(m.w[8]) *
		(11 - d) *
		math.Pow(s, -m.w[9]) *
		(math.Exp(m.w[10]*(1-retrievability)) - 1)
	return s * (1 + growth)
}

func (m *Model) stabilityAfterFailure(state MemoryState, retrievability float64) float64 {
	s, d := state.Stability, state.Difficulty
	if s < minStability {
		s = minStability
	}
	next := m.w[11] *
		math.Pow(d, -m.w[12]) *
		(math.Pow(s+1, m.w[13]) - 1) *
		math.Exp(m.w[14]*(1-retrievability))
	// Forgetting never increases stability.
	return math.Min(next, s)
}

func nextInterval(stability, desiredRetention float64) float64 {
	return stability / factor * (math.Pow(desiredRetention, 1/decay) - 1)
}

const minStability = 0.01

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}
