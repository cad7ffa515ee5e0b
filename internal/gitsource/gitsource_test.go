package gitsource

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		name    string
		repoURL string
		want    string
	}{
		{
			name:    "https URL",
			repoURL: "https://github.com/alice/decks.git",
			want:    filepath.Join("repos", "github.com", "alice", "decks"),
		},
		{
			name:    "https URL without suffix",
			repoURL: "https://gitlab.com/alice/decks",
			want:    filepath.Join("repos", "gitlab.com", "alice", "decks"),
		},
		{
			name:    "scp-like URL",
			repoURL: "git@github.com:alice/decks.git",
			want:    filepath.Join("repos", "github.com", "alice/decks"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LocalPath("repos", tc.repoURL)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLocalPathRejectsGarbage(t *testing.T) {
	_, err := LocalPath("repos", "not a url at all")
	assert.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://github.com/alice/decks.git"))
	assert.True(t, IsRemote("git@github.com:alice/decks.git"))
	assert.False(t, IsRemote("/home/alice/decks"))
	assert.False(t, IsRemote("./decks"))
}
