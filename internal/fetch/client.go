// Package fetch downloads source documents over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/pdflayout/internal/sources"
	"github.com/dgallion1/pdflayout/internal/store"
)

// ErrInvalidSource marks a URL or filename rejected before any I/O.
var ErrInvalidSource = errors.New("invalid source")

// NetworkError is returned when a source is invalid or cannot be fetched.
// StatusCode is zero when no response was received. Failures writing to
// the downloads directory are *store.IOError instead.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	Dir        string
	Timeout    time.Duration
	UserAgent  string
	MaxRetries int
	Logger     *slog.Logger
}

// Client downloads files into a single directory.
type Client struct {
	dir        string
	userAgent  string
	maxRetries int
	httpClient *http.Client
	log        *slog.Logger
	backoff    func(attempt int) time.Duration
}

func NewClient(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		dir:        opts.Dir,
		userAgent:  opts.UserAgent,
		maxRetries: max(opts.MaxRetries, 0),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		log:     log,
		backoff: Backoff,
	}
}

// Dir returns the downloads directory.
func (c *Client) Dir() string { return c.dir }

// Download fetches rawURL into <dir>/<filename>, overwriting any existing
// file, and returns the destination path. The body goes to a temp file that
// is renamed into place only once fully read.
func (c *Client) Download(ctx context.Context, rawURL, filename string) (string, error) {
	if err := (sources.Source{URL: rawURL, Filename: filename}).Validate(); err != nil {
		return "", &NetworkError{URL: rawURL, Err: fmt.Errorf("%w: %w", ErrInvalidSource, err)}
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", &store.IOError{Op: "mkdir", Path: c.dir, Err: err}
	}
	dest := filepath.Join(c.dir, filename)

	var err error
	for attempt := 0; ; attempt++ {
		err = c.downloadOnce(ctx, rawURL, dest)
		if err == nil {
			return dest, nil
		}
		if attempt >= c.maxRetries || !IsRetryable(err) {
			return "", err
		}
		wait := c.backoff(attempt)
		c.log.Warn("download failed, retrying", "url", rawURL, "attempt", attempt+1, "backoff", wait.String(), "error", err)
		select {
		case <-ctx.Done():
			return "", &NetworkError{URL: rawURL, Err: ctx.Err()}
		case <-time.After(wait):
		}
	}
}

func (c *Client) downloadOnce(ctx context.Context, rawURL, dest string) error {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return &store.IOError{Op: "create", Path: dest, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return &NetworkError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &store.IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return &store.IOError{Op: "rename", Path: dest, Err: err}
	}
	return nil
}

// get performs a GET and returns the response only for 2xx statuses.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &NetworkError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", string(body)),
		}
	}
	return resp, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
