package drill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/llm"
)

// scriptedUI replays a fixed event sequence and pads with EventNone
// once the script runs out.
type scriptedUI struct {
	events  []Event
	renders int
}

func (u *scriptedUI) Render(*Session) error { u.renders++; return nil }

func (u *scriptedUI) PollEvent(time.Duration) (Event, error) {
	if len(u.events) == 0 {
		return EventNone, nil
	}
	event := u.events[0]
	u.events = u.events[1:]
	return event, nil
}

// autoUI always reveals then passes, waiting out enhancement gating.
type autoUI struct {
	session *Session
}

func (u *autoUI) Render(*Session) error { return nil }

func (u *autoUI) PollEvent(time.Duration) (Event, error) {
	time.Sleep(time.Millisecond)
	if u.session.State() == AnswerShown {
		return EventPass, nil
	}
	return EventReveal, nil
}

type scriptedRewriter struct {
	respond func(userPrompt string) (string, error)
}

func (r *scriptedRewriter) Rewrite(_ context.Context, _, userPrompt string) (string, error) {
	return r.respond(userPrompt)
}

func TestRunCompletesSession(t *testing.T) {
	recorder := &fakeRecorder{intervals: map[string]float64{"A": 3, "B": 3}}
	s := NewSession([]domain.Card{card("A"), card("B")}, recorder)
	ui := &scriptedUI{events: []Event{
		EventReveal, EventPass,
		EventReveal, EventPass,
	}}

	require.NoError(t, Run(context.Background(), s, ui, nil, 0))
	assert.True(t, s.IsComplete())
	assert.Equal(t, []string{"A:Pass", "B:Pass"}, recorder.reviews)
	assert.Greater(t, ui.renders, 0)
}

func TestRunQuitsWithoutCompleting(t *testing.T) {
	recorder := &fakeRecorder{intervals: map[string]float64{"A": 3}}
	s := NewSession([]domain.Card{card("A")}, recorder)
	ui := &scriptedUI{events: []Event{EventQuit}}

	require.NoError(t, Run(context.Background(), s, ui, nil, 0))
	assert.False(t, s.IsComplete())
	assert.Empty(t, recorder.reviews)
}

func TestRunIgnoresOutcomeBeforeReveal(t *testing.T) {
	recorder := &fakeRecorder{intervals: map[string]float64{"A": 3}}
	s := NewSession([]domain.Card{card("A")}, recorder)
	ui := &scriptedUI{events: []Event{
		EventPass, // answer not shown yet, must be ignored
		EventReveal, EventPass,
	}}

	require.NoError(t, Run(context.Background(), s, ui, nil, 0))
	assert.True(t, s.IsComplete())
	assert.Equal(t, []string{"A:Pass"}, recorder.reviews)
}

func TestRunAppliesOverlayUpdates(t *testing.T) {
	recorder := &fakeRecorder{intervals: map[string]float64{}}

	bare := domain.Card{Hash: "C", Content: domain.Cloze{Text: "water boils at 100C"}}
	pre := llm.NewPreprocessor(&scriptedRewriter{
		respond: func(string) (string, error) { return "water boils at [100C]", nil },
	}, false)
	flagged, pending := pre.InitializeStatus([]domain.Card{bare})
	require.Equal(t, 1, pending)
	recorder.intervals["C"] = 3

	s := NewSession(flagged, recorder)
	// The pending card gates Reveal until the overlay delivers, so the
	// auto-driver simply retries every cycle.
	ui := &autoUI{session: s}

	require.NoError(t, Run(context.Background(), s, ui, pre, pending))
	assert.True(t, s.IsComplete())
	assert.Equal(t, []string{"C:Pass"}, recorder.reviews)
}

func TestRunSurfacesOverlayFailure(t *testing.T) {
	recorder := &fakeRecorder{intervals: map[string]float64{}}

	bare := domain.Card{Hash: "C", Content: domain.Cloze{Text: "some text"}}
	rewriteErr := errors.New("service unavailable")
	pre := llm.NewPreprocessor(&scriptedRewriter{
		respond: func(string) (string, error) { return "", rewriteErr },
	}, false)
	flagged, pending := pre.InitializeStatus([]domain.Card{bare})

	s := NewSession(flagged, recorder)
	ui := &scriptedUI{}

	err := Run(context.Background(), s, ui, pre, pending)
	require.Error(t, err)
	assert.ErrorIs(t, err, rewriteErr)
}
