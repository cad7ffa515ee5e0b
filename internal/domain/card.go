package domain

import "fmt"

// Card is a single study unit extracted from a document. Identity is the
// fingerprint of its normalized text, never its location, so the same card
// found in two files (or after a re-scan) is one card.
type Card struct {
	FilePath  string
	StartLine int
	EndLine   int
	Content   CardContent
	Hash      string
	Status    EnhanceStatus
}

// CardContent is either Basic (question/answer) or Cloze.
type CardContent interface {
	cardContent()
}

// Basic is a front/back card.
type Basic struct {
	Question string
	Answer   string
}

// Cloze is a card whose answer is a hidden span inside its own text.
// Range is nil when the text carries no bracketed span yet.
type Cloze struct {
	Text  string
	Range *ClozeRange
}

func (Basic) cardContent() {}
func (Cloze) cardContent() {}

// ClozeRange is a half-open byte-offset span into the cloze text,
// including the enclosing brackets.
type ClozeRange struct {
	Start int
	End   int
}

// NewClozeRange rejects spans that would mask nothing: the span must be
// ordered and hold at least one visible character between the brackets.
func NewClozeRange(start, end int) (*ClozeRange, error) {
	if start >= end {
		return nil, fmt.Errorf("invalid cloze range: start must be < end")
	}
	if end-start <= 2 {
		return nil, fmt.Errorf("invalid cloze range: range must be at least length 1")
	}
	return &ClozeRange{Start: start, End: end}, nil
}

// EnhanceStatus tracks a card's transient enhancement state during a drill
// session. It is never persisted.
type EnhanceStatus int

const (
	NoEnhancement EnhanceStatus = iota
	NeedsCloze
	NeedsRephrase
	Enhanced
)

// Pending reports whether the card is still waiting on an enhancement
// update and must not be revealed or reviewed yet.
func (s EnhanceStatus) Pending() bool {
	return s == NeedsCloze || s == NeedsRephrase
}

// Outcome is the learner's verdict on a single review.
type Outcome int

const (
	Pass Outcome = iota
	Fail
)

func (o Outcome) Label() string {
	if o == Fail {
		return "Fail"
	}
	return "Pass"
}
