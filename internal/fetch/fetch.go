// Package fetch retrieves playlist and guide documents over HTTP or from the
// local filesystem.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"iptv/internal/logging"
)

// ErrTooLarge is returned when a document exceeds the configured size cap.
var ErrTooLarge = errors.New("document exceeds size limit")

// SourceFetchError reports a failed retrieval of one source.
type SourceFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *SourceFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves one document.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// Pacer is implemented by fetchers that throttle requests. Wait blocks until
// source may be requested and returns a context under which the following
// Fetch of source does not wait again.
type Pacer interface {
	Wait(ctx context.Context, source string) (context.Context, error)
}

type pacedKey struct{}

// Options configures an HTTPFetcher.
type Options struct {
	Timeout       time.Duration
	UserAgent     string
	MaxBytes      int64
	RatePerSecond float64
	Client        *http.Client
	Logger        *slog.Logger
}

// HTTPFetcher fetches http(s) URLs and reads file:// URLs or bare paths from
// disk. Requests to one host are paced by a per-host token bucket when a
// rate is configured.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	limit     rate.Limit
	logger    *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds an HTTPFetcher.
func New(opts Options) *HTTPFetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &HTTPFetcher{
		client:    client,
		userAgent: strings.TrimSpace(opts.UserAgent),
		maxBytes:  opts.MaxBytes,
		limit:     limit,
		logger:    logging.NewComponentLogger(opts.Logger, "fetch"),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Fetch returns the full body of source. Every failure is a
// *SourceFetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	start := time.Now()
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return nil, &SourceFetchError{URL: source, Err: err}
	}

	var data []byte
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		data, err = f.fetchHTTP(ctx, source, u.Host)
	case "file":
		data, err = f.readFile(u.Path)
	case "":
		data, err = f.readFile(source)
	default:
		err = fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		var sfe *SourceFetchError
		if errors.As(err, &sfe) {
			return nil, err
		}
		return nil, &SourceFetchError{URL: source, Err: err}
	}

	f.logger.Debug("source fetched",
		logging.String(logging.FieldSource, source),
		logging.Int("bytes", len(data)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return data, nil
}

// Wait takes the per-host token for source. Non-HTTP sources are never
// throttled.
func (f *HTTPFetcher) Wait(ctx context.Context, source string) (context.Context, error) {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return ctx, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ctx, nil
	}
	if err := f.limiter(u.Host).Wait(ctx); err != nil {
		return ctx, &SourceFetchError{URL: source, Err: err}
	}
	return context.WithValue(ctx, pacedKey{}, u.Host), nil
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, source, host string) ([]byte, error) {
	if paced, _ := ctx.Value(pacedKey{}).(string); paced != host {
		if err := f.limiter(host).Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &SourceFetchError{URL: source, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}
	return f.readAll(resp.Body)
}

func (f *HTTPFetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return f.readAll(file)
}

func (f *HTTPFetcher) readAll(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}

func (f *HTTPFetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(f.limit, 1)
		f.limiters[host] = l
	}
	return l
}
