package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnpolacek/create-bucket-cms/internal/analyzer"
	"github.com/johnpolacek/create-bucket-cms/internal/answers"
	"github.com/johnpolacek/create-bucket-cms/internal/auth"
	"github.com/johnpolacek/create-bucket-cms/internal/awscreds"
	"github.com/johnpolacek/create-bucket-cms/internal/locator"
	"github.com/johnpolacek/create-bucket-cms/internal/provisioner"
	"github.com/johnpolacek/create-bucket-cms/internal/stage"
	"github.com/johnpolacek/create-bucket-cms/internal/ui"
)

var templateFiles = map[string]string{
	"src/app/cms/page.tsx":                                "cms page",
	"src/app/api/bucket/route.ts":                         "api route",
	"src/app/api/bucket/collections/route.ts":             "collections route",
	"src/app/api/bucket/auth/index.ts":                    "placeholder",
	"src/app/api/bucket/auth/adapters/next-auth/index.ts": "next-auth adapter",
	"src/app/api/bucket/auth/adapters/clerk/index.ts":     "clerk adapter",
	"src/app/api/bucket/auth/adapters/localhost/index.ts": "localhost adapter",
	"public/bucket-cms-logo.svg":                          "<svg/>",
}

// fakeExecutor records commands and materialises the template on git clone.
type fakeExecutor struct {
	commands []provisioner.Command
	files    map[string]string
	failOn   string
}

func (f *fakeExecutor) Run(ctx context.Context, cmd provisioner.Command) error {
	f.commands = append(f.commands, cmd)
	if f.failOn != "" && cmd.Name == f.failOn {
		return &provisioner.ProcessError{Command: cmd.String(), ExitCode: 1}
	}
	if cmd.Name == "git" && len(cmd.Args) > 0 && cmd.Args[0] == "clone" {
		dest := cmd.Args[len(cmd.Args)-1]
		for rel, content := range f.files {
			path := filepath.Join(dest, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *fakeExecutor) ran(name string) []provisioner.Command {
	var out []provisioner.Command
	for _, c := range f.commands {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

type fakeFetcher struct {
	manifest analyzer.Manifest
	err      error
}

func (f fakeFetcher) FetchManifest(context.Context, string) (analyzer.Manifest, error) {
	return f.manifest, f.err
}

type fakeBrowser struct {
	opened []string
}

func (b *fakeBrowser) Open(url string) error {
	b.opened = append(b.opened, url)
	return nil
}

type fixture struct {
	root    string
	exec    *fakeExecutor
	browser *fakeBrowser
	answers *answers.Static
	opts    Options
	deps    Dependencies
}

func newHostProject(t *testing.T, manifest string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "next.config.js"), []byte("module.exports = {}"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	return root
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func newFixture(t *testing.T, manifest string) *fixture {
	t.Helper()
	ui.SetOutput(io.Discard)
	t.Cleanup(func() { ui.SetOutput(nil) })

	root := newHostProject(t, manifest)
	f := &fixture{
		root:    root,
		exec:    &fakeExecutor{files: templateFiles},
		browser: &fakeBrowser{},
		answers: answers.NewStatic(map[string]string{
			answers.KeyAccessKeyID:     "AKIAEXAMPLE",
			answers.KeySecretAccessKey: "secret-access-key",
			answers.KeyRegion:          "us-west-2",
		}),
	}
	f.opts = Options{
		ProjectDir:  root,
		RepoURL:     "https://example.com/bucket-cms.git",
		ManifestURL: "https://example.com/package.json",
		StartPort:   freePort(t),
		Locate:      locator.DefaultOptions(),
	}
	f.deps = Dependencies{
		Answers:  f.answers,
		Executor: f.exec,
		Fetcher: fakeFetcher{manifest: analyzer.Manifest{Dependencies: map[string]string{
			"@aws-sdk/client-s3": "^3.0.0",
			"zod":                "^3.22.0",
			"next-auth":          "^4.24.0",
		}}},
		Browser:     f.browser,
		Preflight:   func(provisioner.PackageManager) error { return nil },
		AWSDefaults: func(context.Context) awscreds.Defaults { return awscreds.Defaults{} },
	}
	return f
}

func (f *fixture) run(t *testing.T) (*Result, error, *Orchestrator) {
	t.Helper()
	o, err := New(f.opts, f.deps)
	require.NoError(t, err)
	res, err := o.Run(context.Background())
	return res, err, o
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func workspaces(t *testing.T, root string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(root, stage.WorkspacePrefix+"*"))
	require.NoError(t, err)
	return matches
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t, `{"name":"My Cool App!!","dependencies":{"next":"14.0.0","react":"18.2.0"}}`)

	res, err, o := f.run(t)
	require.NoError(t, err)

	// Localhost adapter in place, adapter sources gone.
	apiDir := filepath.Join(f.root, "app", "api", "bucket")
	assert.Equal(t, "localhost adapter", readFile(t, filepath.Join(apiDir, "auth", "index.ts")))
	assert.NoDirExists(t, filepath.Join(apiDir, "auth", "adapters"))
	assert.FileExists(t, filepath.Join(apiDir, "route.ts"))
	assert.FileExists(t, filepath.Join(apiDir, "collections", "route.ts"))
	assert.FileExists(t, filepath.Join(f.root, "app", "cms", "page.tsx"))
	assert.FileExists(t, filepath.Join(f.root, "public", "bucket-cms-logo.svg"))
	assert.Equal(t, auth.LocalhostBypass, res.Profile)

	// Exactly the four prompted keys, in prompt order.
	assert.Equal(t,
		"AWS_ACCESS_KEY_ID=AKIAEXAMPLE\nAWS_SECRET_ACCESS_KEY=secret-access-key\nAWS_REGION=us-west-2\nAWS_S3_BUCKET_NAME=my-cool-app-bucket-cms",
		readFile(t, filepath.Join(f.root, ".env.local")))
	assert.Equal(t, []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_REGION", "AWS_S3_BUCKET_NAME"}, res.EnvKeys)

	// Auth markers are never installed; the rest is sorted.
	installs := f.exec.ran("npm")
	require.Len(t, installs, 2)
	assert.Equal(t, "npm install @aws-sdk/client-s3 zod", installs[0].String())
	assert.Equal(t, f.root, installs[0].Dir)
	assert.Equal(t, "npm run dev", installs[1].String())
	assert.True(t, installs[1].Interactive)

	clones := f.exec.ran("git")
	require.Len(t, clones, 1)
	assert.Equal(t, []string{"clone", "--depth", "1", f.opts.RepoURL}, clones[0].Args[:4])

	// Browser pointed at the mounted route on the probed port.
	assert.Equal(t, f.opts.StartPort, res.Port)
	assert.Equal(t, []string{res.URL}, f.browser.opened)
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/cms", res.Port), res.URL)
	assert.Equal(t, []string{fmt.Sprintf("PORT=%d", res.Port)}, installs[1].Env)

	// Scratch space and lock are gone.
	assert.Empty(t, workspaces(t, f.root))
	assert.NoFileExists(t, filepath.Join(f.root, LockFile))

	assert.Equal(t, []string{
		StepValidate, StepLocate, StepLock, StepAskInstall, StepPreflight, StepEnsureAPI,
		StepFetch, StepInstall, StepWorkspace, StepClone, StepStage, StepValidateStage,
		StepCommit, StepCleanup, StepAskEnv, StepWriteEnv, StepPort, StepBrowser, StepDevServer,
	}, o.Journal().Completed())
}

func TestRun_SelectsAdapterFromDependencies(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     auth.Profile
	}{
		{"next-auth", `{"name":"a","dependencies":{"next-auth":"4"}}`, auth.NextAuth},
		{"clerk", `{"name":"a","dependencies":{"@clerk/nextjs":"4"}}`, auth.Clerk},
		{"both prefers next-auth", `{"name":"a","dependencies":{"@clerk/nextjs":"4","next-auth":"4"}}`, auth.NextAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.manifest)
			f.opts.NoDevServer = true

			res, err, _ := f.run(t)
			require.NoError(t, err)

			assert.Equal(t, tt.want, res.Profile)
			adapter := readFile(t, filepath.Join(f.root, "app", "api", "bucket", "auth", "index.ts"))
			assert.Equal(t, string(tt.want)+" adapter", adapter)
		})
	}
}

func TestRun_DerivedBucketNameIsValid(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     string
	}{
		{"underscores", `{"name":"my_site"}`, "my-site-bucket-cms"},
		{"long name", `{"name":"` + strings.Repeat("a", 60) + `"}`, strings.Repeat("a", 52) + "-bucket-cms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.manifest)
			f.opts.NoDevServer = true

			_, err, _ := f.run(t)
			require.NoError(t, err)

			env := readFile(t, filepath.Join(f.root, ".env.local"))
			assert.Contains(t, env, "AWS_S3_BUCKET_NAME="+tt.want)
		})
	}
}

func TestRun_PortShiftNamesBusyPort(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	f.opts.NoDevServer = true

	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	f.opts.StartPort = ln.Addr().(*net.TCPAddr).Port

	res, err, o := f.run(t)
	require.NoError(t, err)
	assert.Greater(t, res.Port, f.opts.StartPort)

	var detail string
	for _, row := range o.Journal().Rows() {
		if row.Name == StepPort {
			detail = row.Detail
		}
	}
	assert.Contains(t, detail, fmt.Sprintf("port %d is in use", f.opts.StartPort))
}

func TestRun_SecretValuesHiddenInOutput(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	f.opts.NoDevServer = true
	var out bytes.Buffer
	ui.SetOutput(&out)

	_, err, _ := f.run(t)
	require.NoError(t, err)

	printed := out.String()
	assert.Contains(t, printed, strings.Repeat("*", len("secret-access-key")))
	assert.NotContains(t, printed, "secr*")
	assert.NotContains(t, printed, "secret-access-key")
	assert.Contains(t, printed, "us-west-2")
}

func TestRun_NoDevServer(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	f.opts.NoDevServer = true
	f.answers.Answers[answers.KeyRoute] = "admin/content"
	f.answers.Answers[answers.KeyPackageManager] = "pnpm"

	res, err, _ := f.run(t)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(f.root, "app", "admin", "content", "page.tsx"))
	assert.Empty(t, f.browser.opened)
	assert.Len(t, f.exec.ran("pnpm"), 1, "only the install runs")
	assert.True(t, strings.HasSuffix(res.URL, "/admin/content"))
}

func TestRun_NotHostProject(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	require.NoError(t, os.Remove(filepath.Join(f.root, "next.config.js")))

	_, err, o := f.run(t)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, KindValidation, stepErr.Kind)
	assert.Equal(t, StepValidate, stepErr.Step)
	assert.ErrorIs(t, err, analyzer.ErrNotHostProject)
	assert.Empty(t, f.exec.commands)
	assert.Empty(t, o.Journal().Completed())
}

func TestRun_NoAppDirectory(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	require.NoError(t, os.Remove(filepath.Join(f.root, "app")))

	_, err, _ := f.run(t)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, KindValidation, stepErr.Kind)
	assert.ErrorIs(t, err, locator.ErrNotFound)
}

func TestRun_FetchFailure(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	f.deps.Fetcher = fakeFetcher{err: errors.New("connection refused")}

	_, err, o := f.run(t)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, KindFetch, stepErr.Kind)
	assert.Empty(t, f.exec.commands)
	assert.NoFileExists(t, filepath.Join(f.root, LockFile))
	assert.Contains(t, o.Journal().Completed(), StepEnsureAPI)
}

func TestRun_CloneFailureCleansWorkspace(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	f.exec.failOn = "git"

	_, err, _ := f.run(t)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, KindProcess, stepErr.Kind)
	assert.Equal(t, StepClone, stepErr.Step)
	var pErr *provisioner.ProcessError
	assert.ErrorAs(t, err, &pErr)

	assert.Empty(t, workspaces(t, f.root))
	assert.NoDirExists(t, filepath.Join(f.root, "app", "cms"))
}

func TestRun_IncompleteTemplateLeavesProjectUntouched(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	files := map[string]string{}
	for k, v := range templateFiles {
		if k != "public/bucket-cms-logo.svg" {
			files[k] = v
		}
	}
	f.exec.files = files

	_, err, _ := f.run(t)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, KindFileSystem, stepErr.Kind)
	assert.Equal(t, StepStage, stepErr.Step)

	assert.NoDirExists(t, filepath.Join(f.root, "app", "cms"))
	assert.NoDirExists(t, filepath.Join(f.root, "app", "api", "bucket"))
	assert.Empty(t, workspaces(t, f.root))
}

func TestRun_CommitFailureRollsBack(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	// public is a file, so the logo cannot be committed after the app files.
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "public"), []byte("not a dir"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "app", "cms"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "app", "cms", "page.tsx"), []byte("user page"), 0o644))

	_, err, _ := f.run(t)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepCommit, stepErr.Step)
	assert.Equal(t, KindFileSystem, stepErr.Kind)

	assert.Equal(t, "user page", readFile(t, filepath.Join(f.root, "app", "cms", "page.tsx")))
	assert.NoDirExists(t, filepath.Join(f.root, "app", "api", "bucket"))
	assert.Empty(t, workspaces(t, f.root))
	assert.NoFileExists(t, filepath.Join(f.root, ".env.local"))
}

func TestRun_PromptCancelled(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	f.answers.Answers[answers.KeyRegion] = "not a region"

	_, err, _ := f.run(t)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, KindPrompt, stepErr.Kind)
	assert.Equal(t, StepAskEnv, stepErr.Step)
	// Files are committed before the environment questions.
	assert.FileExists(t, filepath.Join(f.root, "app", "cms", "page.tsx"))
	assert.NoFileExists(t, filepath.Join(f.root, ".env.local"))
}

func TestRun_PreflightFailure(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	f.deps.Preflight = func(pm provisioner.PackageManager) error {
		return errors.New("git is not installed")
	}

	_, err, _ := f.run(t)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepPreflight, stepErr.Step)
	assert.Equal(t, KindValidation, stepErr.Kind)
	assert.NoDirExists(t, filepath.Join(f.root, "app", "api"))
}

func TestRun_Locked(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)

	release, err := acquireLock(filepath.Join(f.root, LockFile))
	require.NoError(t, err)
	defer release()

	_, err, _ = f.run(t)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	o, err := New(f.opts, f.deps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_AppendsToExistingEnvFile(t *testing.T) {
	f := newFixture(t, `{"name":"site"}`)
	f.opts.NoDevServer = true
	envPath := filepath.Join(f.root, ".env.local")
	require.NoError(t, os.WriteFile(envPath, []byte("DATABASE_URL=postgres://localhost\nAWS_REGION=eu-west-1"), 0o644))

	_, err, _ := f.run(t)
	require.NoError(t, err)

	content := readFile(t, envPath)
	assert.True(t, strings.HasPrefix(content, "DATABASE_URL=postgres://localhost\nAWS_REGION=eu-west-1\nAWS_ACCESS_KEY_ID="))
	assert.Len(t, strings.Split(content, "\n"), 6)
}

func TestNew_RequiresAnswers(t *testing.T) {
	_, err := New(Options{}, Dependencies{})
	assert.Error(t, err)
}
