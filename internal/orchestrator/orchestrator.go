// Package orchestrator sequences a Bucket CMS installation into a host
// Next.js project as one staged transaction.
//
// Template files are staged in a scoped workspace and committed only once
// the staged tree is complete. The workspace is removed on every exit path
// and each attempted step is recorded in a Journal.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/johnpolacek/create-bucket-cms/internal/analyzer"
	"github.com/johnpolacek/create-bucket-cms/internal/answers"
	"github.com/johnpolacek/create-bucket-cms/internal/auth"
	"github.com/johnpolacek/create-bucket-cms/internal/awscreds"
	"github.com/johnpolacek/create-bucket-cms/internal/config"
	"github.com/johnpolacek/create-bucket-cms/internal/doctor"
	"github.com/johnpolacek/create-bucket-cms/internal/fetch"
	"github.com/johnpolacek/create-bucket-cms/internal/locator"
	"github.com/johnpolacek/create-bucket-cms/internal/logging"
	"github.com/johnpolacek/create-bucket-cms/internal/ports"
	"github.com/johnpolacek/create-bucket-cms/internal/provisioner"
	"github.com/johnpolacek/create-bucket-cms/internal/secrets"
	"github.com/johnpolacek/create-bucket-cms/internal/stage"
	"github.com/johnpolacek/create-bucket-cms/internal/template"
	"github.com/johnpolacek/create-bucket-cms/internal/ui"
)

const subsystem = "Orchestrator"

// Step names, in execution order.
const (
	StepValidate      = "validate project"
	StepLocate        = "locate app directory"
	StepLock          = "lock project"
	StepAskInstall    = "choose package manager and route"
	StepPreflight     = "pre-flight checks"
	StepEnsureAPI     = "ensure api directory"
	StepFetch         = "fetch manifest"
	StepInstall       = "install packages"
	StepWorkspace     = "create workspace"
	StepClone         = "clone template"
	StepStage         = "stage template"
	StepValidateStage = "validate staged files"
	StepCommit        = "commit files"
	StepCleanup       = "remove workspace"
	StepAskEnv        = "collect environment"
	StepWriteEnv      = "write env file"
	StepPort          = "find port"
	StepBrowser       = "open browser"
	StepDevServer     = "launch dev server"
)

// LockFile guards a project against concurrent installers.
const LockFile = ".bucket-cms.lock"

// Options controls one installation.
type Options struct {
	ProjectDir  string
	RepoURL     string
	ManifestURL string
	EnvFile     string
	StartPort   int
	Locate      locator.Options
	NoDevServer bool
	NoBrowser   bool
}

// OptionsFromConfig maps the CLI configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ProjectDir:  cfg.ProjectDir,
		RepoURL:     cfg.RepoURL,
		ManifestURL: cfg.ManifestURL,
		EnvFile:     cfg.EnvFile,
		StartPort:   cfg.StartPort,
		Locate: locator.Options{
			MaxDepth: cfg.MaxDepth,
			MaxDirs:  cfg.MaxDirs,
			SkipDirs: locator.DefaultSkipDirs,
		},
		NoDevServer: cfg.NoDevServer,
		NoBrowser:   cfg.NoBrowser,
	}
}

// Browser opens a URL for the user.
type Browser interface {
	Open(url string) error
}

// Dependencies are the collaborators the orchestrator drives. Answers is
// required; nil fields get the production implementation.
type Dependencies struct {
	Answers     answers.Provider
	Executor    provisioner.Executor
	Fetcher     fetch.Fetcher
	Browser     Browser
	Preflight   func(provisioner.PackageManager) error
	AWSDefaults func(context.Context) awscreds.Defaults
}

// Result describes a completed installation.
type Result struct {
	ProjectRoot    string
	AppDir         string
	Route          string
	Profile        auth.Profile
	PackageManager provisioner.PackageManager
	Packages       []string
	Installed      []string
	EnvFile        string
	EnvKeys        []string
	Port           int
	URL            string
}

// Orchestrator runs one installation. It is not reusable.
type Orchestrator struct {
	opts    Options
	deps    Dependencies
	journal Journal
}

// New validates the collaborators and fills in defaults.
func New(opts Options, deps Dependencies) (*Orchestrator, error) {
	if deps.Answers == nil {
		return nil, errors.New("orchestrator: an answers provider is required")
	}
	if deps.Executor == nil {
		deps.Executor = provisioner.NewShellExecutor()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = fetch.NewHTTPFetcher(fetch.DefaultOptions(config.DefaultFetchTimeout))
	}
	if deps.Browser == nil {
		deps.Browser = ui.SystemBrowser{}
	}
	if deps.Preflight == nil {
		deps.Preflight = func(pm provisioner.PackageManager) error {
			return doctor.Diagnose(pm).Err()
		}
	}
	if deps.AWSDefaults == nil {
		deps.AWSDefaults = awscreds.Load
	}
	if opts.EnvFile == "" {
		opts.EnvFile = secrets.DefaultFileName
	}
	if opts.Locate.MaxDepth == 0 && opts.Locate.MaxDirs == 0 {
		opts.Locate = locator.DefaultOptions()
	}
	return &Orchestrator{opts: opts, deps: deps}, nil
}

// Journal exposes the steps recorded so far.
func (o *Orchestrator) Journal() *Journal {
	return &o.journal
}

// step runs fn, records the outcome and wraps failures in a StepError.
func (o *Orchestrator) step(ctx context.Context, name string, kind Kind, fn func() (string, error)) error {
	if err := ctx.Err(); err != nil {
		o.journal.record(name, ui.StatusFailed, 0, err.Error())
		return &StepError{Step: name, Kind: kind, Err: err}
	}

	start := time.Now()
	detail, err := fn()
	elapsed := time.Since(start)

	if err != nil {
		o.journal.record(name, ui.StatusFailed, elapsed, err.Error())
		logging.Error(subsystem, err, "step %q failed", name)
		return &StepError{Step: name, Kind: classify(kind, err), Err: err}
	}
	o.journal.record(name, ui.StatusDone, elapsed, detail)
	logging.Info(subsystem, "step %q completed in %s: %s", name, elapsed, detail)
	return nil
}

func (o *Orchestrator) skip(name, reason string) {
	o.journal.record(name, ui.StatusSkipped, 0, reason)
	logging.Debug(subsystem, "step %q skipped: %s", name, reason)
}

// withSpinner shows a spinner around a long running step body.
func withSpinner(msg string, fn func() (string, error)) func() (string, error) {
	return func() (string, error) {
		sp := ui.NewSpinner(msg)
		sp.Start()
		detail, err := fn()
		sp.Stop(err)
		return detail, err
	}
}

// Run performs the installation. When the dev server is launched, Run
// returns after it exits.
func (o *Orchestrator) Run(ctx context.Context) (res *Result, err error) {
	defer func() {
		if err != nil {
			ui.PrintSteps("Installation summary", o.journal.Rows())
		}
	}()

	res = &Result{}
	var project analyzer.Project

	if err := o.step(ctx, StepValidate, KindValidation, func() (string, error) {
		p, err := analyzer.Analyze(o.opts.ProjectDir)
		if err != nil {
			return "", err
		}
		project = p
		res.ProjectRoot = p.Root
		return fmt.Sprintf("%s (%s)", p.Root, p.FrameworkConfig), nil
	}); err != nil {
		return nil, err
	}
	root := project.Root

	if err := o.step(ctx, StepLocate, KindValidation, func() (string, error) {
		dir, err := locator.Find(root, o.opts.Locate)
		if err != nil {
			return "", err
		}
		res.AppDir = dir
		return relative(root, dir), nil
	}); err != nil {
		return nil, err
	}

	var release func()
	if err := o.step(ctx, StepLock, KindValidation, func() (string, error) {
		r, err := acquireLock(filepath.Join(root, LockFile))
		if err != nil {
			return "", err
		}
		release = r
		return LockFile, nil
	}); err != nil {
		return nil, err
	}
	defer release()

	var install answers.Install
	if err := o.step(ctx, StepAskInstall, KindPrompt, func() (string, error) {
		detected := provisioner.DetectPackageManager(root)
		in, err := answers.AskInstall(ctx, o.deps.Answers, detected, config.DefaultMountRoute)
		if err != nil {
			return "", err
		}
		install = in
		res.PackageManager = in.PackageManager
		res.Route = in.Route
		return fmt.Sprintf("%s, /%s", in.PackageManager, in.Route), nil
	}); err != nil {
		return nil, err
	}

	if err := o.step(ctx, StepPreflight, KindValidation, func() (string, error) {
		return "node, git, " + string(install.PackageManager), o.deps.Preflight(install.PackageManager)
	}); err != nil {
		return nil, err
	}

	if err := o.step(ctx, StepEnsureAPI, KindFileSystem, func() (string, error) {
		dir := filepath.Join(res.AppDir, "api")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return relative(root, dir), nil
	}); err != nil {
		return nil, err
	}

	if err := o.step(ctx, StepFetch, KindFetch, withSpinner("Fetching Bucket CMS dependencies", func() (string, error) {
		remote, err := o.deps.Fetcher.FetchManifest(ctx, o.opts.ManifestURL)
		if err != nil {
			return "", err
		}
		res.Packages = fetch.FilterPackages(remote.Dependencies, auth.MarkerPackages)
		return fmt.Sprintf("%d packages", len(res.Packages)), nil
	})); err != nil {
		return nil, err
	}

	if len(res.Packages) == 0 {
		o.skip(StepInstall, "nothing to install")
	} else {
		msg := fmt.Sprintf("Installing %d packages with %s", len(res.Packages), install.PackageManager)
		if err := o.step(ctx, StepInstall, KindProcess, withSpinner(msg, func() (string, error) {
			cmd := provisioner.AddCommand(install.PackageManager, root, res.Packages)
			return cmd.String(), o.deps.Executor.Run(ctx, cmd)
		})); err != nil {
			return nil, err
		}
	}

	var ws *stage.Workspace
	if err := o.step(ctx, StepWorkspace, KindFileSystem, func() (string, error) {
		w, err := stage.NewWorkspace(root)
		if err != nil {
			return "", err
		}
		ws = w
		return relative(root, w.Root), nil
	}); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			logging.Error(subsystem, cerr, "workspace cleanup failed")
			ui.Warn(fmt.Sprintf("Could not remove %s, delete it manually", ws.Root))
		}
	}()

	if err := o.step(ctx, StepClone, KindProcess, withSpinner("Cloning the Bucket CMS template", func() (string, error) {
		return o.opts.RepoURL, template.Clone(ctx, o.deps.Executor, o.opts.RepoURL, ws.CloneDir())
	})); err != nil {
		return nil, err
	}

	var layout template.Layout
	if err := o.step(ctx, StepStage, KindFileSystem, func() (string, error) {
		l, err := template.NewLayout(root, res.AppDir, install.Route)
		if err != nil {
			return "", err
		}
		layout = l
		res.Profile = auth.Select(project.Manifest)
		if err := template.Materialize(ws.CloneDir(), ws.StageDir(), l, res.Profile); err != nil {
			return "", err
		}
		return "auth adapter: " + res.Profile.Description(), nil
	}); err != nil {
		return nil, err
	}

	if err := o.step(ctx, StepValidateStage, KindFileSystem, func() (string, error) {
		required := layout.Required()
		return fmt.Sprintf("%d required paths", len(required)), stage.Validate(ws.StageDir(), required)
	}); err != nil {
		return nil, err
	}

	if err := o.step(ctx, StepCommit, KindFileSystem, func() (string, error) {
		committed, err := stage.Commit(ws.StageDir(), root, ws.BackupDir())
		if err != nil {
			return "", err
		}
		res.Installed = committed.Installed
		if len(committed.Replaced) > 0 {
			ui.Warn(fmt.Sprintf("Replaced %d existing files: %s", len(committed.Replaced), strings.Join(committed.Replaced, ", ")))
		}
		return fmt.Sprintf("%d files, %d replaced", len(committed.Installed), len(committed.Replaced)), nil
	}); err != nil {
		return nil, err
	}
	ui.Success(fmt.Sprintf("Installed Bucket CMS at %s with the %s adapter", layout.UITarget(), res.Profile.Description()))

	if err := o.step(ctx, StepCleanup, KindFileSystem, func() (string, error) {
		return relative(root, ws.Root), ws.Cleanup()
	}); err != nil {
		return nil, err
	}

	var entries []secrets.Entry
	if err := o.step(ctx, StepAskEnv, KindPrompt, func() (string, error) {
		e, err := answers.AskEnvironment(ctx, o.deps.Answers, o.deps.AWSDefaults(ctx), analyzer.DefaultBucketName(project.Manifest))
		if err != nil {
			return "", err
		}
		entries = e
		return fmt.Sprintf("%d entries", len(e)), nil
	}); err != nil {
		return nil, err
	}

	res.EnvFile = filepath.Join(root, o.opts.EnvFile)
	if len(entries) == 0 {
		o.skip(StepWriteEnv, "no entries")
	} else if err := o.step(ctx, StepWriteEnv, KindFileSystem, func() (string, error) {
		return o.writeEnv(res.EnvFile, entries)
	}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		res.EnvKeys = append(res.EnvKeys, e.Key)
	}

	if err := o.step(ctx, StepPort, KindProcess, func() (string, error) {
		port, err := ports.FindAvailablePort(o.opts.StartPort)
		if err != nil {
			return "", err
		}
		res.Port = port
		res.URL = fmt.Sprintf("http://localhost:%d/%s", port, install.Route)
		if port == o.opts.StartPort {
			return fmt.Sprintf("%d", port), nil
		}
		detail := fmt.Sprintf("%d (%s)", port, ports.GetPortStatus(o.opts.StartPort))
		ui.Warn("Dev server port shifted to " + detail)
		return detail, nil
	}); err != nil {
		return nil, err
	}

	ui.PrintSteps("Installation summary", o.journal.Rows())
	ui.Box("Bucket CMS is ready", res.URL)

	if o.opts.NoDevServer {
		o.skip(StepBrowser, "dev server disabled")
		o.skip(StepDevServer, "dev server disabled")
		ui.Info(fmt.Sprintf("Start it with: PORT=%d %s run dev", res.Port, install.PackageManager))
		return res, nil
	}

	if o.opts.NoBrowser {
		o.skip(StepBrowser, "browser disabled")
	} else if berr := o.deps.Browser.Open(res.URL); berr != nil {
		// Not fatal: the URL is printed above.
		o.journal.record(StepBrowser, ui.StatusSkipped, 0, berr.Error())
		logging.Warn(subsystem, "opening browser: %v", berr)
	} else {
		o.journal.record(StepBrowser, ui.StatusDone, 0, res.URL)
	}

	// The lock only guards the installation itself.
	release()

	if err := o.step(ctx, StepDevServer, KindProcess, func() (string, error) {
		cmd := provisioner.DevCommand(install.PackageManager, root, res.Port)
		err := o.deps.Executor.Run(ctx, cmd)
		if errors.Is(err, context.Canceled) {
			return "stopped", nil
		}
		return cmd.String(), err
	}); err != nil {
		return nil, err
	}

	return res, nil
}

// writeEnv merges entries into path and reports what was written.
func (o *Orchestrator) writeEnv(path string, entries []secrets.Entry) (string, error) {
	dups, err := secrets.DuplicateKeys(path, entries)
	if err != nil {
		logging.Warn(subsystem, "checking %s for existing keys: %v", path, err)
	} else if len(dups) > 0 {
		ui.Warn(fmt.Sprintf("%s already defines %s, appending the new values anyway", filepath.Base(path), strings.Join(dups, ", ")))
	}

	if err := secrets.WriteFile(path, entries); err != nil {
		return "", err
	}
	for _, e := range entries {
		ui.Highlight(e.Key, e.Masked())
	}
	return fmt.Sprintf("%s (%d keys)", filepath.Base(path), len(entries)), nil
}

// acquireLock takes the advisory project lock. The returned release func
// is safe to call more than once.
func acquireLock(path string) (func(), error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLocked
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := lock.Unlock(); err != nil {
				logging.Warn(subsystem, "unlocking %s: %v", path, err)
			}
			_ = os.Remove(path)
		})
	}, nil
}

func relative(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
