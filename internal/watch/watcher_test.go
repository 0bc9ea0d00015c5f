package watch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldWatchFile(t *testing.T) {
	t.Parallel()

	repo := "/repo"

	tests := []struct {
		path string
		want bool
	}{
		{"/repo/src/app.py", true},
		{"/repo/main.go", true},
		{"/repo/web/app.tsx", true},
		{"/repo/README.md", false},
		{"/repo/data.json", false},
		{"/repo/image.PNG", false},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, shouldWatchFile(tt.path, repo, nil))
		})
	}
}

func TestShouldWatchFile_GitignoreMatcher(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ".gitignore"),
		[]byte("# generated\n\nout/\n*.gen.go\n"),
		0o644,
	))

	matcher, err := loadGitignoreMatcher(dir)
	require.NoError(t, err)
	require.NotNil(t, matcher)

	assert.False(t, shouldWatchFile(filepath.Join(dir, "out", "app.py"), dir, matcher))
	assert.False(t, shouldWatchFile(filepath.Join(dir, "types.gen.go"), dir, matcher))
	assert.True(t, shouldWatchFile(filepath.Join(dir, "main.go"), dir, matcher))
}

func TestShouldIgnoreDir(t *testing.T) {
	t.Parallel()

	assert.True(t, shouldIgnoreDir("node_modules", "/repo/node_modules", "/repo", nil))
	assert.True(t, shouldIgnoreDir(".git", "/repo/.git", "/repo", nil))
	assert.True(t, shouldIgnoreDir("__pycache__", "/repo/src/__pycache__", "/repo", nil))
	assert.True(t, shouldIgnoreDir(".scope", "/repo/.scope", "/repo", nil))
	assert.False(t, shouldIgnoreDir("src", "/repo/src", "/repo", nil))
}

func TestLoadGitignoreMatcher_Missing(t *testing.T) {
	t.Parallel()

	matcher, err := loadGitignoreMatcher(t.TempDir())

	require.NoError(t, err)
	assert.Nil(t, matcher)
}
