package stats

import (
	"context"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/fsrs"
	"github.com/conorfennell/recall/internal/storage"
)

// matureIntervalDays separates young cards from mature ones.
const matureIntervalDays = 21

const histogramBins = 5

// Summary describes the scheduling state of one card collection.
type Summary struct {
	TotalCards int

	// Lifecycle counts. New cards have never been reviewed; mature
	// cards carry an interval of at least three weeks.
	New    int
	Young  int
	Mature int

	// DueNow includes never-reviewed cards and everything inside the
	// learn-ahead window.
	DueNow         int
	DueWithinWeek  int
	DueWithinMonth int

	// Averages and histograms cover reviewed cards only. Difficulty
	// bins span 1-10, retrievability bins span 0-1.
	MeanDifficulty     float64
	MeanRetrievability float64
	DifficultyHist     [histogramBins]int
	RetrievabilityHist [histogramBins]int

	// CardsPerFile counts cards by their source document.
	CardsPerFile map[string]int
}

// Collect folds the schedule rows for every card in the map into a
// summary. Rows for fingerprints outside the map are ignored, scoping
// the summary to one ingestion result.
func Collect(ctx context.Context, db *storage.DB, cards map[string]domain.Card, now time.Time) (Summary, error) {
	summary := Summary{CardsPerFile: make(map[string]int)}

	dueCutoff := now.Add(fsrs.LearnAheadThreshold)
	weekCutoff := now.Add(7 * 24 * time.Hour)
	monthCutoff := now.Add(30 * 24 * time.Hour)

	var difficultySum, retrievabilitySum float64
	reviewed := 0

	err := db.ScheduleRows(ctx, func(row storage.ScheduleRow) error {
		card, ok := cards[row.Hash]
		if !ok {
			return nil
		}
		summary.TotalCards++
		summary.CardsPerFile[card.FilePath]++

		if row.ReviewCount == 0 {
			summary.New++
			summary.DueNow++
			return nil
		}

		switch {
		case row.IntervalRaw >= matureIntervalDays:
			summary.Mature++
		default:
			summary.Young++
		}

		if row.DueDate != nil {
			if !row.DueDate.After(dueCutoff) {
				summary.DueNow++
			}
			if row.DueDate.After(now) && !row.DueDate.After(weekCutoff) {
				summary.DueWithinWeek++
			}
			if row.DueDate.After(now) && !row.DueDate.After(monthCutoff) {
				summary.DueWithinMonth++
			}
		}

		elapsedDays := 0.0
		if row.LastReviewedAt != nil {
			if elapsed := now.Sub(*row.LastReviewedAt).Hours() / 24; elapsed > 0 {
				elapsedDays = elapsed
			}
		}
		retrievability := fsrs.Retrievability(fsrs.MemoryState{
			Stability:  row.Stability,
			Difficulty: row.Difficulty,
		}, elapsedDays)

		difficultySum += row.Difficulty
		retrievabilitySum += retrievability
		reviewed++

		summary.DifficultyHist[histogramBin((row.Difficulty-1)/9)]++
		summary.RetrievabilityHist[histogramBin(retrievability)]++
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	if reviewed > 0 {
		summary.MeanDifficulty = difficultySum / float64(reviewed)
		summary.MeanRetrievability = retrievabilitySum / float64(reviewed)
	}
	return summary, nil
}

// histogramBin maps a value in [0, 1] to one of the bins, clamping
// anything outside the range into the edge bins.
func histogramBin(normalized float64) int {
	bin := int(normalized * histogramBins)
	if bin < 0 {
		return 0
	}
	if bin >= histogramBins {
		return histogramBins - 1
	}
	return bin
}
