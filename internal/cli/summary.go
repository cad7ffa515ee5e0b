package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/conorfennell/recall/internal/stats"
)

// PrintSummary writes a plain-text report of the collection's state.
func PrintSummary(w io.Writer, summary stats.Summary) {
	fmt.Fprintf(w, "Cards: %d total (%d new, %d young, %d mature)\n",
		summary.TotalCards, summary.New, summary.Young, summary.Mature)
	fmt.Fprintf(w, "Due now: %d\n", summary.DueNow)
	fmt.Fprintf(w, "Due within a week: %d, within a month: %d\n",
		summary.DueWithinWeek, summary.DueWithinMonth)

	if summary.TotalCards > summary.New {
		fmt.Fprintf(w, "Mean difficulty: %.2f, mean retrievability: %.2f\n",
			summary.MeanDifficulty, summary.MeanRetrievability)
		fmt.Fprintf(w, "Difficulty spread:     %s\n", sparkline(summary.DifficultyHist[:]))
		fmt.Fprintf(w, "Retrievability spread: %s\n", sparkline(summary.RetrievabilityHist[:]))
	}

	if len(summary.CardsPerFile) > 0 {
		fmt.Fprintln(w, "Cards per file:")
		files := make([]string, 0, len(summary.CardsPerFile))
		for file := range summary.CardsPerFile {
			files = append(files, file)
		}
		sort.Strings(files)
		for _, file := range files {
			fmt.Fprintf(w, "  %4d  %s\n", summary.CardsPerFile[file], file)
		}
	}
}

var sparkRunes = []rune(" .:-=+*#")

// sparkline renders histogram bins as a fixed-width bar string.
func sparkline(bins []int) string {
	max := 0
	for _, n := range bins {
		if n > max {
			max = n
		}
	}
	if max == 0 {
		return strings.Repeat(string(sparkRunes[0]), len(bins))
	}

	var b strings.Builder
	for _, n := range bins {
		level := n * (len(sparkRunes) - 1) / max
		b.WriteRune(sparkRunes[level])
	}
	return b.String()
}
