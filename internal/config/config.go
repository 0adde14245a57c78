package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultRepoURL      = "https://github.com/johnpolacek/bucket-cms.git"
	DefaultManifestURL  = "https://raw.githubusercontent.com/johnpolacek/bucket-cms/main/package.json"
	DefaultMountRoute   = "cms"
	DefaultEnvFile      = ".env.local"
	DefaultStartPort    = 3000
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxDepth     = 8
	DefaultMaxDirs      = 10000
)

// Config holds every tunable of an installation run.
type Config struct {
	// ProjectDir is the host project root.
	ProjectDir string
	// RepoURL is the template source cloned into the workspace.
	RepoURL string
	// ManifestURL points at the remote package.json whose dependencies get installed.
	ManifestURL string
	// EnvFile is the configuration file name written into ProjectDir.
	EnvFile string
	// StartPort is where the dev-server port probe begins.
	StartPort int
	// FetchTimeout bounds the remote manifest request. Zero disables it.
	FetchTimeout time.Duration
	// MaxDepth and MaxDirs bound the app directory search.
	MaxDepth int
	MaxDirs  int
	// AnswersFile, when set, replaces interactive prompts.
	AnswersFile string
	// NoDevServer skips opening the browser and launching the dev server.
	NoDevServer bool
	// NoBrowser only skips opening the browser.
	NoBrowser bool
	// Verbose lowers the log level to debug.
	Verbose bool
}

// Load returns the defaults overlaid with BUCKET_CMS_* environment variables.
// Flags are applied by the caller afterwards.
func Load() (*Config, error) {
	cfg := &Config{
		RepoURL:      firstNonEmpty(strings.TrimSpace(os.Getenv("BUCKET_CMS_REPO_URL")), DefaultRepoURL),
		ManifestURL:  firstNonEmpty(strings.TrimSpace(os.Getenv("BUCKET_CMS_MANIFEST_URL")), DefaultManifestURL),
		EnvFile:      DefaultEnvFile,
		StartPort:    DefaultStartPort,
		FetchTimeout: DefaultFetchTimeout,
		MaxDepth:     DefaultMaxDepth,
		MaxDirs:      DefaultMaxDirs,
	}

	if raw := strings.TrimSpace(os.Getenv("BUCKET_CMS_START_PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("BUCKET_CMS_START_PORT: %w", err)
		}
		cfg.StartPort = port
	}
	if raw := strings.TrimSpace(os.Getenv("BUCKET_CMS_FETCH_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("BUCKET_CMS_FETCH_TIMEOUT: %w", err)
		}
		cfg.FetchTimeout = d
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProjectDir) == "" {
		return errors.New("project directory is required")
	}
	if strings.TrimSpace(c.RepoURL) == "" {
		return errors.New("template repository URL is required")
	}
	if strings.TrimSpace(c.ManifestURL) == "" {
		return errors.New("manifest URL is required")
	}
	if strings.TrimSpace(c.EnvFile) == "" {
		return errors.New("env file name is required")
	}
	if c.StartPort < 1 || c.StartPort > 65535 {
		return fmt.Errorf("start port %d out of range 1-65535", c.StartPort)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch timeout %s must not be negative", c.FetchTimeout)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max search depth must be positive, got %d", c.MaxDepth)
	}
	if c.MaxDirs < 1 {
		return fmt.Errorf("max searched directories must be positive, got %d", c.MaxDirs)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
