// Package watch monitors an analyzed repository for source changes.
//
// When watched source files settle after a burst of edits, the registered
// callback fires with the batch of changed paths; callers use it to re-fetch
// the graph from the analysis backend and re-run the view pipeline.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// batchWindow is the settle time between a change burst and the callback.
const batchWindow = 2 * time.Second

// sourceExtensions are the file types the analysis backend understands.
var sourceExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".go": true, ".java": true, ".rb": true, ".rs": true,
	".c": true, ".cpp": true, ".h": true,
}

// ignoredDirs are never watched regardless of gitignore rules.
var ignoredDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, ".scope": true,
	"__pycache__": true, ".venv": true, "venv": true, "dist": true, "build": true,
}

// Repo watches repoPath recursively and invokes onChange with each settled
// batch of changed source files (repo-relative paths). Blocks until the
// context is cancelled.
func Repo(ctx context.Context, repoPath string, onChange func(changed []string)) error {
	matcher, err := loadGitignoreMatcher(repoPath)
	if err != nil {
		matcher = nil // Continue without gitignore
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.Walk(repoPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if shouldIgnoreDir(info.Name(), path, repoPath, matcher) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	changed := make(map[string]bool)
	batchTimer := time.NewTimer(batchWindow)
	batchTimer.Stop() // Don't start yet

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !shouldWatchFile(event.Name, repoPath, matcher) {
				continue
			}
			relPath, err := filepath.Rel(repoPath, event.Name)
			if err != nil {
				continue
			}
			changed[relPath] = true
			batchTimer.Reset(batchWindow)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-batchTimer.C:
			if len(changed) == 0 {
				continue
			}
			batch := make([]string, 0, len(changed))
			for path := range changed {
				batch = append(batch, path)
			}
			changed = make(map[string]bool)
			onChange(batch)
		}
	}
}

// shouldWatchFile checks if a file should trigger a re-fetch.
func shouldWatchFile(path, repoPath string, matcher gitignore.Matcher) bool {
	relPath, err := filepath.Rel(repoPath, path)
	if err != nil {
		return false
	}

	if matcher != nil {
		parts := strings.Split(relPath, string(filepath.Separator))
		if matcher.Match(parts, false) {
			return false
		}
	}

	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

// shouldIgnoreDir checks if a directory subtree should be skipped.
func shouldIgnoreDir(name, path, repoPath string, matcher gitignore.Matcher) bool {
	if ignoredDirs[name] {
		return true
	}
	if matcher != nil {
		relPath, _ := filepath.Rel(repoPath, path)
		parts := strings.Split(relPath, string(filepath.Separator))
		return matcher.Match(parts, true)
	}
	return false
}

// loadGitignoreMatcher loads a gitignore matcher from the repository root.
func loadGitignoreMatcher(repoPath string) (gitignore.Matcher, error) {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(gitignorePath)
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return gitignore.NewMatcher(patterns), nil
}
