package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ManifestFile is the host project's dependency manifest.
const ManifestFile = "package.json"

// BucketSuffix is appended to the project slug to form the default bucket name.
const BucketSuffix = "-bucket-cms"

// ErrNotHostProject indicates the directory is not a Next.js project root.
var ErrNotHostProject = errors.New("not a Next.js project: package.json and next.config.* are required")

// frameworkConfigs are the Next.js configuration files that qualify a host project.
var frameworkConfigs = []string{
	"next.config.js",
	"next.config.mjs",
	"next.config.ts",
	"next.config.cjs",
}

// Manifest is the subset of package.json the installer reads.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// HasDependency reports whether name is a declared (non-dev) dependency.
func (m Manifest) HasDependency(name string) bool {
	_, ok := m.Dependencies[name]
	return ok
}

// ManifestReadError is returned when package.json is missing or unparseable.
type ManifestReadError struct {
	Path string
	Err  error
}

func (e *ManifestReadError) Error() string {
	return fmt.Sprintf("reading manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestReadError) Unwrap() error { return e.Err }

// Project is a validated host project.
type Project struct {
	// Root is the absolute project directory
	Root string
	// Manifest is the parsed package.json
	Manifest Manifest
	// FrameworkConfig is the Next.js config file name that was found
	FrameworkConfig string
}

// Validate reports whether path directly contains package.json and a
// Next.js framework config.
func Validate(path string) bool {
	if !fileExists(filepath.Join(path, ManifestFile)) {
		return false
	}
	return frameworkConfig(path) != ""
}

// Load reads and parses package.json from the project directory.
func Load(path string) (Manifest, error) {
	manifestPath := filepath.Join(path, ManifestFile)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return Manifest{}, &ManifestReadError{Path: manifestPath, Err: err}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, &ManifestReadError{Path: manifestPath, Err: err}
	}
	return m, nil
}

// Analyze validates dir as a host project and loads its manifest.
func Analyze(dir string) (Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Project{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Project{}, err
	}
	if !info.IsDir() {
		return Project{}, fmt.Errorf("%s: %w", abs, os.ErrInvalid)
	}
	if !Validate(abs) {
		return Project{}, fmt.Errorf("%s: %w", abs, ErrNotHostProject)
	}

	m, err := Load(abs)
	if err != nil {
		return Project{}, err
	}

	return Project{
		Root:            abs,
		Manifest:        m,
		FrameworkConfig: frameworkConfig(abs),
	}, nil
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonSlugChars  = regexp.MustCompile(`[^\w-]+`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
	lower         = cases.Lower(language.Und)
)

// Slugify normalises a name into a URL and file-name safe slug.
func Slugify(name string) string {
	s := lower.String(name)
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// MaxBucketNameLength is the longest name S3 accepts.
const MaxBucketNameLength = 63

// DefaultBucketName derives the suggested S3 bucket name from the manifest.
// Underscores become hyphens and the slug is cut so the whole name stays
// within MaxBucketNameLength.
func DefaultBucketName(m Manifest) string {
	slug := strings.ReplaceAll(Slugify(m.Name), "_", "-")
	slug = hyphenRun.ReplaceAllString(slug, "-")
	if limit := MaxBucketNameLength - len(BucketSuffix); len(slug) > limit {
		slug = slug[:limit]
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return strings.TrimPrefix(BucketSuffix, "-")
	}
	return slug + BucketSuffix
}

func frameworkConfig(dir string) string {
	for _, name := range frameworkConfigs {
		if fileExists(filepath.Join(dir, name)) {
			return name
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
