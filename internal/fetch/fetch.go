// Package fetch retrieves the template's remote package manifest and
// derives the list of packages to install into the host project.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/johnpolacek/create-bucket-cms/internal/analyzer"
	"github.com/johnpolacek/create-bucket-cms/internal/logging"
)

const subsystem = "Fetch"

// StatusError is returned when the manifest endpoint answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Fetcher loads a remote manifest.
type Fetcher interface {
	FetchManifest(ctx context.Context, url string) (analyzer.Manifest, error)
}

// HTTPFetcher fetches manifests over HTTP with a bounded number of retries
// for transient (5xx, 429, connection) failures.
type HTTPFetcher struct {
	client  *retryablehttp.Client
	timeout time.Duration
}

// Options tunes an HTTPFetcher.
type Options struct {
	// Timeout bounds the whole fetch including retries. Zero means no limit
	// beyond the caller's context.
	Timeout time.Duration
	// RetryMax is the number of retries after the first attempt.
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the backoff between attempts.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultOptions returns the options used by the installer.
func DefaultOptions(timeout time.Duration) Options {
	return Options{
		Timeout:      timeout,
		RetryMax:     2,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
	}
}

// NewHTTPFetcher builds a fetcher from opts.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = opts.RetryWaitMin
	client.RetryWaitMax = opts.RetryWaitMax
	client.Logger = leveledLogger{}
	// Hand the final response back so non-2xx statuses surface as StatusError.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPFetcher{client: client, timeout: opts.Timeout}
}

// FetchManifest GETs url and decodes it as a package manifest.
func (f *HTTPFetcher) FetchManifest(ctx context.Context, url string) (analyzer.Manifest, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return analyzer.Manifest{}, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	logging.Debug(subsystem, "GET %s", url)
	resp, err := f.client.Do(req)
	if err != nil {
		return analyzer.Manifest{}, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return analyzer.Manifest{}, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	var manifest analyzer.Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return analyzer.Manifest{}, fmt.Errorf("decoding manifest from %s: %w", url, err)
	}
	return manifest, nil
}

// FilterPackages returns the dependency names to install: every key of deps
// except the excluded ones, sorted so the install command is deterministic.
func FilterPackages(deps map[string]string, excluded []string) []string {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}

	pkgs := make([]string, 0, len(deps))
	for name := range deps {
		if skip[name] {
			continue
		}
		pkgs = append(pkgs, name)
	}
	sort.Strings(pkgs)
	return pkgs
}

// leveledLogger routes retry chatter into the debug log.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) {
	logging.Debug(subsystem, "%s", format(msg, kv))
}
func (leveledLogger) Info(msg string, kv ...interface{}) {
	logging.Debug(subsystem, "%s", format(msg, kv))
}
func (leveledLogger) Debug(msg string, kv ...interface{}) {
	logging.Debug(subsystem, "%s", format(msg, kv))
}
func (leveledLogger) Warn(msg string, kv ...interface{}) {
	logging.Debug(subsystem, "%s", format(msg, kv))
}

func format(msg string, kv []interface{}) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
