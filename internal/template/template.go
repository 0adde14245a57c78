// Package template knows the layout of the Bucket CMS template repository
// and how its pieces map onto a host project.
package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/johnpolacek/create-bucket-cms/internal/auth"
	"github.com/johnpolacek/create-bucket-cms/internal/provisioner"
	"github.com/johnpolacek/create-bucket-cms/internal/stage"
)

// Paths inside the cloned template (slash separated).
const (
	UISource   = "src/app/cms"
	APISource  = "src/app/api/bucket"
	LogoSource = "public/bucket-cms-logo.svg"
)

// Paths inside the host project.
const (
	// APIRoute is mounted under the app directory.
	APIRoute = "api/bucket"
	// LogoTarget is relative to the project root.
	LogoTarget = "public/bucket-cms-logo.svg"
)

// Layout places the template relative to the project root.
type Layout struct {
	// AppDir is the app directory relative to the project root, e.g. "app"
	// or "src/app".
	AppDir string
	// Route is the mount route for the admin UI.
	Route string
}

// NewLayout derives a layout from absolute project and app directories.
func NewLayout(projectRoot, appDir, route string) (Layout, error) {
	rel, err := filepath.Rel(projectRoot, appDir)
	if err != nil {
		return Layout{}, fmt.Errorf("app directory %s is outside %s: %w", appDir, projectRoot, err)
	}
	return Layout{AppDir: rel, Route: route}, nil
}

// UITarget is where the admin UI tree goes.
func (l Layout) UITarget() string { return filepath.Join(l.AppDir, filepath.FromSlash(l.Route)) }

// APITarget is where the API route tree goes.
func (l Layout) APITarget() string { return filepath.Join(l.AppDir, filepath.FromSlash(APIRoute)) }

// AdapterTarget is the auth adapter file the selected profile overwrites.
func (l Layout) AdapterTarget() string {
	return filepath.Join(l.APITarget(), filepath.FromSlash(auth.TargetFile))
}

// Required lists what a complete staged tree must contain.
func (l Layout) Required() []string {
	return []string{l.UITarget(), l.APITarget(), l.AdapterTarget(), filepath.FromSlash(LogoTarget)}
}

// Clone shallow-clones repoURL into dest.
func Clone(ctx context.Context, exec provisioner.Executor, repoURL, dest string) error {
	return exec.Run(ctx, provisioner.CloneCommand(repoURL, dest))
}

// Materialize copies the template pieces from cloneDir into stageDir using
// the host layout, installs the adapter for profile over the adapter target
// and then removes every adapter source directory from the staged tree.
func Materialize(cloneDir, stageDir string, l Layout, profile auth.Profile) error {
	if err := stage.CopyTree(filepath.Join(cloneDir, filepath.FromSlash(UISource)), filepath.Join(stageDir, l.UITarget())); err != nil {
		return fmt.Errorf("staging admin UI: %w", err)
	}

	apiDir := filepath.Join(stageDir, l.APITarget())
	if err := stage.CopyTree(filepath.Join(cloneDir, filepath.FromSlash(APISource)), apiDir); err != nil {
		return fmt.Errorf("staging API routes: %w", err)
	}

	if err := InstallAdapter(apiDir, profile); err != nil {
		return err
	}

	if err := stage.CopyFile(filepath.Join(cloneDir, filepath.FromSlash(LogoSource)), filepath.Join(stageDir, filepath.FromSlash(LogoTarget))); err != nil {
		return fmt.Errorf("staging logo: %w", err)
	}
	return nil
}

// InstallAdapter overwrites auth/index.ts inside apiDir with the adapter
// for profile, then removes auth/adapters. The copy finishes before any
// adapter source is deleted.
func InstallAdapter(apiDir string, profile auth.Profile) error {
	src := filepath.Join(apiDir, filepath.FromSlash(profile.SourceFile()))
	dst := filepath.Join(apiDir, filepath.FromSlash(auth.TargetFile))
	if err := stage.CopyFile(src, dst); err != nil {
		return fmt.Errorf("installing %s adapter: %w", profile, err)
	}
	if err := os.RemoveAll(filepath.Join(apiDir, filepath.FromSlash(auth.AdaptersDir))); err != nil {
		return fmt.Errorf("removing adapter sources: %w", err)
	}
	return nil
}
