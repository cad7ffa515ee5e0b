package parser

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/knol"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	clozePrefix    = "C:"
	separator      = "---"
	inlineMarker   = "::"
)

// ErrNoCard means a block matched none of the recognized card shapes.
var ErrNoCard = errors.New("no recognizable card in block")

// ErrNoIdentity means the block text normalized to empty. Callers skip
// these blocks rather than failing the whole document.
var ErrNoIdentity = errors.New("block has no content identity")

type section int

const (
	sectionNone section = iota
	sectionQuestion
	sectionAnswer
	sectionCloze
)

// trimLine trims a line and reports whether anything is left.
func trimLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	return trimmed, trimmed != ""
}

// parseCardLines segments one card block into its question, answer and
// cloze sections. A section marker restarts its section; blank lines
// inside a section keep their place so interior paragraph breaks survive.
func parseCardLines(contents string) (question, answer, cloze string) {
	var questionLines, answerLines, clozeLines []string
	current := sectionNone

	appendTo := func(s section, line string) {
		switch s {
		case sectionQuestion:
			questionLines = append(questionLines, line)
		case sectionAnswer:
			answerLines = append(answerLines, line)
		case sectionCloze:
			clozeLines = append(clozeLines, line)
		}
	}

	for _, rawLine := range strings.Split(contents, "\n") {
		line, ok := trimLine(rawLine)
		if !ok {
			appendTo(current, "")
			continue
		}

		if line == separator {
			break
		}

		if rest, found := strings.CutPrefix(line, questionPrefix); found {
			current = sectionQuestion
			questionLines = nil
			if v, ok := trimLine(rest); ok {
				questionLines = append(questionLines, v)
			}
			continue
		}
		if rest, found := strings.CutPrefix(line, answerPrefix); found {
			current = sectionAnswer
			answerLines = nil
			if v, ok := trimLine(rest); ok {
				answerLines = append(answerLines, v)
			}
			continue
		}
		if rest, found := strings.CutPrefix(line, clozePrefix); found {
			current = sectionCloze
			clozeLines = nil
			if v, ok := trimLine(rest); ok {
				clozeLines = append(clozeLines, v)
			}
			continue
		}

		if left, right, found := strings.Cut(line, inlineMarker); found {
			l, lok := trimLine(left)
			r, rok := trimLine(right)
			if lok && rok {
				questionLines = append(questionLines, l)
				answerLines = append(answerLines, r)
			}
			break
		}

		appendTo(current, line)
	}

	return joinNonempty(questionLines), joinNonempty(answerLines), joinNonempty(clozeLines)
}

// joinNonempty joins section lines, dropping the section entirely when
// nothing but blanks accumulated and trimming blank lines at both ends.
func joinNonempty(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	joined := strings.Join(lines, "\n")
	return strings.TrimSpace(joined)
}

// ContentToCard turns the raw text of one card block into a Card.
//
// A block is Basic when both question and answer sections are non-empty,
// otherwise Cloze when the cloze section is non-empty. A cloze without
// brackets is accepted with a nil range (enhancement fills it in later);
// a degenerate bracketed span is an error. Anything else is ErrNoCard.
func ContentToCard(path, contents string, startLine, endLine int) (domain.Card, error) {
	question, answer, cloze := parseCardLines(contents)

	hash, ok := knol.Fingerprint(contents)
	if !ok {
		return domain.Card{}, ErrNoIdentity
	}

	card := domain.Card{
		FilePath:  path,
		StartLine: startLine,
		EndLine:   endLine,
		Hash:      hash,
	}

	switch {
	case question != "" && answer != "":
		card.Content = domain.Basic{Question: question, Answer: answer}
		return card, nil
	case cloze != "":
		var clozeRange *domain.ClozeRange
		if ranges := FindClozeRanges(cloze); len(ranges) > 0 {
			r, err := domain.NewClozeRange(ranges[0].Start, ranges[0].End)
			if err != nil {
				return domain.Card{}, err
			}
			clozeRange = r
		}
		card.Content = domain.Cloze{Text: cloze, Range: clozeRange}
		return card, nil
	default:
		return domain.Card{}, fmt.Errorf("%w:\n%s", ErrNoCard, contents)
	}
}

// CardsFromFile reads one document and extracts every card block in it.
// Blocks open on a Q:/C: marker, close on a separator line or an inline
// "::" card, and anything before the first marker is ignored.
func CardsFromFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cards []domain.Card
	var buffer strings.Builder
	tracking := false
	startLine := 0
	lineIdx := 0

	flush := func(endLine int) error {
		contents := buffer.String()
		buffer.Reset()
		if _, ok := trimLine(contents); !ok {
			return nil
		}
		card, err := ContentToCard(path, contents, startLine, endLine)
		if errors.Is(err, ErrNoIdentity) {
			return nil
		}
		if err != nil {
			return err
		}
		cards = append(cards, card)
		return nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, questionPrefix) || strings.HasPrefix(line, clozePrefix) {
			tracking = true
			if err := flush(lineIdx); err != nil {
				return nil, err
			}
			startLine = lineIdx
		}
		if strings.Contains(line, inlineMarker) {
			if err := flush(lineIdx); err != nil {
				return nil, err
			}
			tracking = false
			card, err := ContentToCard(path, line, lineIdx, lineIdx)
			if err != nil && !errors.Is(err, ErrNoIdentity) {
				return nil, err
			}
			if err == nil {
				cards = append(cards, card)
			}
			lineIdx++
			continue
		}
		if strings.HasPrefix(line, separator) {
			if err := flush(lineIdx); err != nil {
				return nil, err
			}
			tracking = false
		}
		if tracking {
			buffer.WriteString(line)
			buffer.WriteByte('\n')
		}
		lineIdx++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(lineIdx); err != nil {
		return nil, err
	}

	return cards, nil
}
