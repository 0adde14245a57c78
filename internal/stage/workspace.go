// Package stage owns the installer's scratch space and the
// staged-then-commit transfer of template files into the host project.
//
// All writes land in a uniquely named workspace inside the project first.
// Only after the staged tree is complete does Commit move it into place,
// and a failed Commit puts every displaced file back.
package stage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/johnpolacek/create-bucket-cms/internal/logging"
)

// WorkspacePrefix names every workspace directory created in a project.
const WorkspacePrefix = ".bucket-cms-"

// Workspace is a scoped scratch directory. Callers must defer Cleanup.
type Workspace struct {
	Root string

	once       sync.Once
	cleanupErr error
}

// NewWorkspace creates <parent>/.bucket-cms-<uuid> with its stage and
// backup subdirectories.
func NewWorkspace(parent string) (*Workspace, error) {
	w := &Workspace{Root: filepath.Join(parent, WorkspacePrefix+uuid.NewString())}
	for _, dir := range []string{w.StageDir(), w.BackupDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = os.RemoveAll(w.Root)
			return nil, fmt.Errorf("creating workspace: %w", err)
		}
	}
	logging.Debug("Stage", "workspace created at %s", w.Root)
	return w, nil
}

// CloneDir is where the template source is cloned. It does not exist
// until the clone runs.
func (w *Workspace) CloneDir() string { return filepath.Join(w.Root, "clone") }

// StageDir mirrors the final layout relative to the project root.
func (w *Workspace) StageDir() string { return filepath.Join(w.Root, "stage") }

// BackupDir receives project files displaced by Commit.
func (w *Workspace) BackupDir() string { return filepath.Join(w.Root, "backup") }

// Cleanup removes the workspace. It is safe to call more than once.
func (w *Workspace) Cleanup() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.Root); err != nil && !errors.Is(err, fs.ErrNotExist) {
			w.cleanupErr = fmt.Errorf("removing workspace %s: %w", w.Root, err)
			return
		}
		logging.Debug("Stage", "workspace %s removed", w.Root)
	})
	return w.cleanupErr
}
