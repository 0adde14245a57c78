// Package locator finds the Next.js app router directory inside a host
// project.
package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AppDirName is the directory name the search looks for.
const AppDirName = "app"

var (
	// ErrNotFound indicates no directory named app exists under the start path.
	ErrNotFound = errors.New("app directory not found")

	// ErrSearchLimit indicates the search visited more directories than allowed.
	ErrSearchLimit = errors.New("directory search limit exceeded")
)

// DefaultSkipDirs are neither matched nor expanded.
var DefaultSkipDirs = []string{"node_modules", ".git", ".next"}

// Options bounds the traversal.
type Options struct {
	// MaxDepth is the deepest level (start = 0) at which app can be found.
	MaxDepth int
	// MaxDirs caps the number of directories listed.
	MaxDirs int
	// SkipDirs lists directory names that are ignored entirely.
	SkipDirs []string
}

// DefaultOptions returns the bounds used by the installer.
func DefaultOptions() Options {
	return Options{
		MaxDepth: 8,
		MaxDirs:  10000,
		SkipDirs: DefaultSkipDirs,
	}
}

type frame struct {
	path  string
	depth int
}

// Find returns the path of the first descendant directory named app.
//
// The work-list is a stack: children of a directory are examined in name
// order and the first one named app wins immediately; otherwise they are
// pushed, so the lexicographically last child is expanded next. Symlinked
// directories are followed, but every real path is listed at most once.
// Unreadable subdirectories count as having no matches.
func Find(start string, opts Options) (string, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultOptions().MaxDepth
	}
	if opts.MaxDirs <= 0 {
		opts.MaxDirs = DefaultOptions().MaxDirs
	}

	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, name := range opts.SkipDirs {
		skip[name] = true
	}

	info, err := os.Stat(start)
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", start, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("searching %s: not a directory", start)
	}

	visited := make(map[string]bool)
	stack := []frame{{path: start, depth: 0}}
	listed := 0

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		real, err := filepath.EvalSymlinks(current.path)
		if err != nil {
			continue
		}
		if visited[real] {
			continue
		}
		visited[real] = true

		listed++
		if listed > opts.MaxDirs {
			return "", fmt.Errorf("%w: more than %d directories under %s", ErrSearchLimit, opts.MaxDirs, start)
		}

		entries, err := os.ReadDir(current.path)
		if err != nil {
			if current.path == start {
				return "", fmt.Errorf("reading %s: %w", start, err)
			}
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if skip[name] {
				continue
			}
			child := filepath.Join(current.path, name)
			if !isDir(entry, child) {
				continue
			}
			if name == AppDirName {
				return child, nil
			}
			if current.depth+1 < opts.MaxDepth {
				stack = append(stack, frame{path: child, depth: current.depth + 1})
			}
		}
	}

	return "", ErrNotFound
}

// isDir reports whether entry is a directory, resolving symbolic links.
func isDir(entry os.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
