package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/cli"
	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/drill"
	"github.com/conorfennell/recall/internal/fsrs"
	"github.com/conorfennell/recall/internal/gitsource"
	"github.com/conorfennell/recall/internal/ingest"
	"github.com/conorfennell/recall/internal/llm"
	"github.com/conorfennell/recall/internal/review"
	"github.com/conorfennell/recall/internal/stats"
	"github.com/conorfennell/recall/internal/storage"
)

const usage = `usage: recall <command> [flags] [paths...]

commands:
  drill   scan the sources and run a review session over the due cards
  check   scan the sources and report the collection's schedule state
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := pflag.NewFlagSet(command, pflag.ExitOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	flags.String("db_path", "", "path to the SQLite schedule database")
	flags.String("data_dir", "", "directory for remote source checkouts")
	flags.Float64("desired_retention", 0, "target recall probability per review")
	flags.Int("card_limit", 0, "maximum cards per session, 0 for no limit")
	flags.Int("new_card_limit", 0, "maximum never-reviewed cards per session, 0 for no limit")
	flags.Bool("rephrase_questions", false, "rewrite basic questions through the LLM")
	if err := flags.Parse(os.Args[2:]); err != nil {
		fatal("failed to parse flags", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fatal("failed to load configuration", err)
	}
	if args := flags.Args(); len(args) > 0 {
		cfg.Sources = args
	}
	if len(cfg.Sources) == 0 {
		fatal("no sources configured", fmt.Errorf("pass paths on the command line or set sources in the config"))
	}

	ctx := context.Background()

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		fatal("failed to open schedule database", err)
	}
	defer store.Close()

	cards, ingestStats, err := scanSources(ctx, store, cfg)
	if err != nil {
		fatal("failed to scan sources", err)
	}
	slog.Info("sources scanned",
		"files", ingestStats.FilesSearched,
		"markdown", ingestStats.MarkdownFiles,
		"cards", len(cards),
	)

	switch command {
	case "drill":
		err = runDrill(ctx, store, cfg, cards)
	case "check":
		err = runCheck(ctx, store, cards)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fatal(command+" failed", err)
	}
}

// scanSources syncs any remote sources into the data directory, then
// ingests every source path.
func scanSources(ctx context.Context, store *storage.DB, cfg *config.Config) (map[string]domain.Card, ingest.Stats, error) {
	paths := make([]string, 0, len(cfg.Sources))
	for _, source := range cfg.Sources {
		if !gitsource.IsRemote(source) {
			paths = append(paths, source)
			continue
		}
		localPath, err := gitsource.LocalPath(cfg.DataDir, source)
		if err != nil {
			return nil, ingest.Stats{}, err
		}
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return nil, ingest.Stats{}, fmt.Errorf("failed to create data directory: %w", err)
		}
		if err := gitsource.Sync(source, localPath); err != nil {
			return nil, ingest.Stats{}, err
		}
		paths = append(paths, localPath)
	}
	return ingest.Register(ctx, store, paths)
}

func runDrill(ctx context.Context, store *storage.DB, cfg *config.Config, cards map[string]domain.Card) error {
	model, err := fsrs.DefaultModel()
	if err != nil {
		return err
	}
	scheduler := review.NewScheduler(store, model, cfg.DesiredRetention)

	due, err := scheduler.DueToday(ctx, cards, cfg.CardLimit, cfg.NewCardLimit)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		fmt.Println("Nothing due. Come back later.")
		return nil
	}

	var overlay *llm.Preprocessor
	pending := 0
	if needsEnhancement(due, cfg.RephraseQuestions) {
		rewriter, err := llm.NewGeminiRewriter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return err
		}
		overlay = llm.NewPreprocessor(rewriter, cfg.RephraseQuestions)
		due, pending = overlay.InitializeStatus(due)
	}

	session := drill.NewSession(due, scheduler)
	console := cli.NewConsole(os.Stdin, os.Stdout)
	return drill.Run(ctx, session, console, overlay, pending)
}

func needsEnhancement(cards []domain.Card, rephrase bool) bool {
	for _, card := range cards {
		if content, ok := card.Content.(domain.Cloze); ok && content.Range == nil {
			return true
		}
		if _, ok := card.Content.(domain.Basic); ok && rephrase {
			return true
		}
	}
	return false
}

func runCheck(ctx context.Context, store *storage.DB, cards map[string]domain.Card) error {
	summary, err := stats.Collect(ctx, store, cards, time.Now().UTC())
	if err != nil {
		return err
	}
	cli.PrintSummary(os.Stdout, summary)
	return nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
