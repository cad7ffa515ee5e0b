package llm

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/parser"
)

// rewriteConcurrency bounds in-flight rewrite requests.
const rewriteConcurrency = 4

const clozeSystemPrompt = `You rewrite flashcard sentences into cloze deletions. ` +
	`Wrap the single most important term of the sentence in square brackets. ` +
	`Keep every other word unchanged. Reply with the rewritten sentence only.`

const rephraseSystemPrompt = `You clarify flashcard questions. Rewrite the question ` +
	`so it is unambiguous and reads naturally, without changing what it asks. ` +
	`Reply with the rewritten question only.`

// Update is one finished enhancement, keyed by the card fingerprint so
// the session can apply it in place.
type Update struct {
	Hash string
	Card domain.Card
}

// Preprocessor runs card enhancements against a rewriter.
type Preprocessor struct {
	rewriter Rewriter
	rephrase bool
}

func NewPreprocessor(rewriter Rewriter, rephrase bool) *Preprocessor {
	return &Preprocessor{rewriter: rewriter, rephrase: rephrase}
}

// InitializeStatus flags the cards that need enhancement before a
// session starts: cloze cards without a bracketed span always, basic
// cards when rephrasing is enabled. It returns the flagged list and the
// number of pending cards.
func (p *Preprocessor) InitializeStatus(cards []domain.Card) ([]domain.Card, int) {
	pending := 0
	flagged := make([]domain.Card, len(cards))
	for i, card := range cards {
		card.Status = domain.NoEnhancement
		switch content := card.Content.(type) {
		case domain.Cloze:
			if content.Range == nil {
				card.Status = domain.NeedsCloze
				pending++
			}
		case domain.Basic:
			if p.rephrase {
				card.Status = domain.NeedsRephrase
				pending++
			}
		}
		flagged[i] = card
	}
	return flagged, pending
}

// Run enhances every pending card in list order and pushes each result
// onto updates. At most rewriteConcurrency requests are in flight at
// once. One failed rewrite ends the run with that error once all
// in-flight siblings finish; it never cancels them.
func (p *Preprocessor) Run(ctx context.Context, cards []domain.Card, updates chan<- Update) error {
	var group errgroup.Group
	group.SetLimit(rewriteConcurrency)

	for _, card := range cards {
		if !card.Status.Pending() {
			continue
		}
		group.Go(func() error {
			enhanced, err := p.enhance(ctx, card)
			if err != nil {
				return err
			}
			slog.Debug("card enhanced", "hash", card.Hash)
			select {
			case updates <- Update{Hash: card.Hash, Card: enhanced}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return group.Wait()
}

func (p *Preprocessor) enhance(ctx context.Context, card domain.Card) (domain.Card, error) {
	switch content := card.Content.(type) {
	case domain.Cloze:
		return p.enhanceCloze(ctx, card, content)
	case domain.Basic:
		return p.rephraseBasic(ctx, card, content)
	default:
		return card, fmt.Errorf("card %s has no enhanceable content", card.Hash)
	}
}

func (p *Preprocessor) enhanceCloze(ctx context.Context, card domain.Card, content domain.Cloze) (domain.Card, error) {
	userPrompt := fmt.Sprintf("Sentence: %s", content.Text)
	rewritten, err := p.rewriter.Rewrite(ctx, clozeSystemPrompt, userPrompt)
	if err != nil {
		return card, fmt.Errorf("failed to enhance cloze card %s: %w", card.Hash, err)
	}

	spans := parser.FindClozeRanges(rewritten)
	if len(spans) == 0 {
		return card, fmt.Errorf("rewriter returned no bracketed span for card %s", card.Hash)
	}
	clozeRange, err := domain.NewClozeRange(spans[0].Start, spans[0].End)
	if err != nil {
		return card, fmt.Errorf("rewriter returned a degenerate span for card %s: %w", card.Hash, err)
	}

	card.Content = domain.Cloze{Text: rewritten, Range: clozeRange}
	card.Status = domain.Enhanced
	return card, nil
}

func (p *Preprocessor) rephraseBasic(ctx context.Context, card domain.Card, content domain.Basic) (domain.Card, error) {
	userPrompt := fmt.Sprintf("Question: %s", content.Question)
	rewritten, err := p.rewriter.Rewrite(ctx, rephraseSystemPrompt, userPrompt)
	if err != nil {
		return card, fmt.Errorf("failed to rephrase card %s: %w", card.Hash, err)
	}

	card.Content = domain.Basic{Question: rewritten, Answer: content.Answer}
	card.Status = domain.Enhanced
	return card, nil
}
