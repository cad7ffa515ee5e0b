package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/storage"
)

// Stats counts what a traversal saw. Valid only once Register returns.
type Stats struct {
	FilesSearched int
	MarkdownFiles int
}

// Register walks the root paths, extracts every card from the markdown
// documents it finds and records each fingerprint in storage. It returns
// the fingerprint-to-card map for the whole traversal.
//
// Files are parsed in parallel; per-file card batches are fanned in to a
// single consumer that commits each batch in one transaction before
// folding it into the map. Within one file the cards keep their in-file
// order. Any parse failure aborts the whole call: a broken document
// means the collection cannot be trusted.
func Register(ctx context.Context, store *storage.DB, paths []string) (map[string]domain.Card, Stats, error) {
	var (
		statsMu sync.Mutex
		stats   Stats
		filesMu sync.Mutex
		files   []string
	)

	addStats := func(searched, markdown int) {
		statsMu.Lock()
		stats.FilesSearched += searched
		stats.MarkdownFiles += markdown
		statsMu.Unlock()
	}

	walkers, walkCtx := errgroup.WithContext(ctx)
	for _, root := range paths {
		walkers.Go(func() error {
			found, err := collectMarkdownFiles(walkCtx, root, addStats)
			if err != nil {
				return err
			}
			filesMu.Lock()
			files = append(files, found...)
			filesMu.Unlock()
			return nil
		})
	}
	if err := walkers.Wait(); err != nil {
		return nil, Stats{}, err
	}

	slog.Debug("traversal complete", "files", stats.FilesSearched, "markdown", stats.MarkdownFiles)

	// The channel holds one batch per file, so no parser ever blocks on
	// the consumer.
	batches := make(chan []domain.Card, len(files))

	workers, workCtx := errgroup.WithContext(ctx)
	workers.SetLimit(runtime.NumCPU())
	for _, path := range files {
		workers.Go(func() error {
			cards, err := parser.CardsFromFile(path)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}
			if len(cards) == 0 {
				return nil
			}
			select {
			case batches <- cards:
				return nil
			case <-workCtx.Done():
				return workCtx.Err()
			}
		})
	}
	go func() {
		workers.Wait()
		close(batches)
	}()

	now := time.Now().UTC()
	registered := make(map[string]domain.Card)
	for cards := range batches {
		hashes := make([]string, len(cards))
		for i, card := range cards {
			hashes[i] = card.Hash
		}
		if err := store.AddCardsBatch(ctx, hashes, now); err != nil {
			for range batches {
			}
			workers.Wait()
			return nil, Stats{}, err
		}
		for _, card := range cards {
			if _, seen := registered[card.Hash]; !seen {
				registered[card.Hash] = card
			}
		}
	}
	if err := workers.Wait(); err != nil {
		return nil, Stats{}, err
	}

	return registered, stats, nil
}

// collectMarkdownFiles enumerates the candidate documents under root,
// skipping anything the root's .gitignore files exclude. A root that is
// itself a file is its own single candidate.
func collectMarkdownFiles(ctx context.Context, root string, addStats func(searched, markdown int)) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read source path %s: %w", root, err)
	}
	if !info.IsDir() {
		if isMarkdown(info.Name()) {
			addStats(1, 1)
			return []string{root}, nil
		}
		addStats(1, 0)
		return nil, nil
	}

	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore patterns under %s: %w", root, err)
	}
	matcher := gitignore.NewMatcher(patterns)

	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		segments := strings.Split(filepath.ToSlash(rel), "/")

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if rel != "." && matcher.Match(segments, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher.Match(segments, false) {
			return nil
		}
		if isMarkdown(d.Name()) {
			addStats(1, 1)
			files = append(files, path)
		} else {
			addStats(1, 0)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, walkErr)
	}
	return files, nil
}

func isMarkdown(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}
