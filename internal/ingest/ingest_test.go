package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/storage"
)

func newTestStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const goodDeck = `Q: What is the capital of France?
A: Paris

---

Q: What is the capital of Spain?
A: Madrid

---
`

func TestRegisterCollectsCards(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "geography.md", goodDeck)
	writeFile(t, dir, "notes/chemistry.md", "C: Water is [H2O]\n\n---\n")
	writeFile(t, dir, "README.txt", "not a deck")

	cards, stats, err := Register(context.Background(), store, []string{dir})
	require.NoError(t, err)

	assert.Len(t, cards, 3)
	assert.Equal(t, 3, stats.FilesSearched)
	assert.Equal(t, 2, stats.MarkdownFiles)

	for hash, card := range cards {
		assert.Equal(t, hash, card.Hash)
		exists, err := store.CardExists(context.Background(), hash)
		require.NoError(t, err)
		assert.True(t, exists, hash)
	}
}

func TestRegisterDeduplicatesAcrossFiles(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "one.md", "Q: same question\nA: same answer\n\n---\n")
	writeFile(t, dir, "two.md", "Q: same question\nA: same answer\n\n---\n")

	cards, stats, err := Register(context.Background(), store, []string{dir})
	require.NoError(t, err)

	assert.Len(t, cards, 1)
	assert.Equal(t, 2, stats.MarkdownFiles)
}

func TestRegisterSingleFileRoot(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "deck.md", goodDeck)

	cards, stats, err := Register(context.Background(), store, []string{path})
	require.NoError(t, err)

	assert.Len(t, cards, 2)
	assert.Equal(t, 1, stats.FilesSearched)
	assert.Equal(t, 1, stats.MarkdownFiles)
}

func TestRegisterMalformedFileAbortsNamingIt(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "good.md", goodDeck)
	bad := writeFile(t, dir, "bad.md", "Q: a question without an answer\n\n---\n")

	_, _, err := Register(context.Background(), store, []string{dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}

func TestRegisterRespectsGitignore(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "drafts/\nscratch.md\n")
	writeFile(t, dir, "deck.md", goodDeck)
	writeFile(t, dir, "scratch.md", "Q: dropped\nA: dropped\n\n---\n")
	writeFile(t, dir, "drafts/wip.md", "Q: also dropped\nA: dropped\n\n---\n")

	cards, stats, err := Register(context.Background(), store, []string{dir})
	require.NoError(t, err)

	assert.Len(t, cards, 2)
	assert.Equal(t, 1, stats.MarkdownFiles)
	for _, card := range cards {
		assert.Equal(t, filepath.Join(dir, "deck.md"), card.FilePath)
	}
}

func TestRegisterMissingRoot(t *testing.T) {
	store := newTestStore(t)

	_, _, err := Register(context.Background(), store, []string{"/does/not/exist"})
	assert.Error(t, err)
}

func TestRegisterPreservesInFileOrderWithinBatch(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "deck.md", goodDeck)

	cards, _, err := Register(context.Background(), store, []string{dir})
	require.NoError(t, err)

	// Line ranges survive into the map so the session can show sources.
	var first, second domain.Card
	for _, card := range cards {
		q := card.Content.(domain.Basic).Question
		if q == "What is the capital of France?" {
			first = card
		} else {
			second = card
		}
	}
	assert.Less(t, first.StartLine, second.StartLine)
}
