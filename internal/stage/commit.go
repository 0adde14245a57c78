package stage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/johnpolacek/create-bucket-cms/internal/logging"
)

// move is one applied step of a commit, kept so it can be undone.
type move struct {
	rel       string
	backedUp  bool
	installed bool
}

// Result describes a successful commit.
type Result struct {
	// Installed lists every committed file relative to the target root.
	Installed []string
	// Replaced lists the subset that overwrote an existing file.
	Replaced []string
}

// Commit moves every file under stageDir to the same relative path under
// targetRoot. An existing destination file is first moved to backupDir.
// Files already in the target that the stage does not contain are left
// alone. When any move fails, the moves done so far are reversed, the
// created directories are removed again and the error is returned.
func Commit(stageDir, targetRoot, backupDir string) (*Result, error) {
	files, err := stagedFiles(stageDir)
	if err != nil {
		return nil, err
	}

	var (
		done    []move
		created []string
		result  = &Result{}
	)

	for _, rel := range files {
		m := move{rel: rel}
		dst := filepath.Join(targetRoot, rel)

		dirs, err := mkdirAllTracked(filepath.Dir(dst))
		created = append(created, dirs...)
		if err != nil {
			return nil, rollback(fmt.Errorf("creating %s: %w", filepath.Dir(dst), err), done, created, stageDir, targetRoot, backupDir)
		}

		if _, err := os.Lstat(dst); err == nil {
			backup := filepath.Join(backupDir, rel)
			if err := os.MkdirAll(filepath.Dir(backup), 0o755); err != nil {
				return nil, rollback(fmt.Errorf("backing up %s: %w", rel, err), done, created, stageDir, targetRoot, backupDir)
			}
			if err := os.Rename(dst, backup); err != nil {
				return nil, rollback(fmt.Errorf("backing up %s: %w", rel, err), done, created, stageDir, targetRoot, backupDir)
			}
			m.backedUp = true
		}

		if err := os.Rename(filepath.Join(stageDir, rel), dst); err != nil {
			done = append(done, m)
			return nil, rollback(fmt.Errorf("installing %s: %w", rel, err), done, created, stageDir, targetRoot, backupDir)
		}
		m.installed = true
		done = append(done, m)

		result.Installed = append(result.Installed, rel)
		if m.backedUp {
			result.Replaced = append(result.Replaced, rel)
		}
	}

	logging.Info("Stage", "committed %d files (%d replaced)", len(result.Installed), len(result.Replaced))
	return result, nil
}

// rollback undoes done in reverse order and returns cause joined with any
// restore failures.
func rollback(cause error, done []move, created []string, stageDir, targetRoot, backupDir string) error {
	errs := []error{cause}

	for i := len(done) - 1; i >= 0; i-- {
		m := done[i]
		dst := filepath.Join(targetRoot, m.rel)
		if m.installed {
			if err := os.Rename(dst, filepath.Join(stageDir, m.rel)); err != nil {
				errs = append(errs, fmt.Errorf("unstaging %s: %w", m.rel, err))
			}
		}
		if m.backedUp {
			if err := os.Rename(filepath.Join(backupDir, m.rel), dst); err != nil {
				errs = append(errs, fmt.Errorf("restoring %s: %w", m.rel, err))
			}
		}
	}

	// Deepest first so parents are empty by the time they are removed.
	for i := len(created) - 1; i >= 0; i-- {
		if err := os.Remove(created[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Warn("Stage", "leaving directory %s: %v", created[i], err)
		}
	}

	logging.Warn("Stage", "commit rolled back after %d moves", len(done))
	return errors.Join(errs...)
}

// stagedFiles lists every non-directory entry under dir, sorted.
func stagedFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing staged files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// mkdirAllTracked is os.MkdirAll that reports which directories it created,
// outermost first.
func mkdirAllTracked(dir string) ([]string, error) {
	var missing []string
	for d := dir; ; d = filepath.Dir(d) {
		if _, err := os.Stat(d); err == nil {
			break
		}
		missing = append(missing, d)
		if parent := filepath.Dir(d); parent == d {
			break
		}
	}

	var created []string
	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return created, err
		}
		created = append(created, missing[i])
	}
	return created, nil
}
