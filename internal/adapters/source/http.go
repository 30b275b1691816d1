package source

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	crerr "github.com/cockroachdb/errors"
)

const (
	defaultHTTPTimeout     = 20 * time.Second
	defaultMaxTries        = 4
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxSheetBytes   = 32 << 20
)

// HTTPOption applies a configuration option to the HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxTries sets the total number of attempts, first one included.
func WithMaxTries(n uint) HTTPOption {
	return func(s *HTTPSource) {
		if n > 0 {
			s.maxTries = n
		}
	}
}

// WithInitialInterval sets the first retry delay.
func WithInitialInterval(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.initialInterval = d
		}
	}
}

// WithMaxBytes caps the size of an accepted export body.
func WithMaxBytes(n int64) HTTPOption {
	return func(s *HTTPSource) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// HTTPSource downloads the CSV export of a published spreadsheet.
type HTTPSource struct {
	url             string
	client          *http.Client
	timeout         time.Duration
	maxTries        uint
	initialInterval time.Duration
	maxBytes        int64
}

// NewHTTPSource creates an HTTPSource for the export URL.
func NewHTTPSource(url string, opts ...HTTPOption) (*HTTPSource, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrNoLocation
	}
	s := &HTTPSource{
		url:             url,
		client:          http.DefaultClient,
		timeout:         defaultHTTPTimeout,
		maxTries:        defaultMaxTries,
		initialInterval: defaultInitialInterval,
		maxBytes:        defaultMaxSheetBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Kind implements Source.
func (s *HTTPSource) Kind() string { return KindHTTP }

// Fetch implements Source. Network errors, 429 and 5xx responses are retried
// with exponential backoff; any other non-2xx status fails immediately.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialInterval

	raw, err := backoff.Retry(ctx, func() ([]byte, error) {
		return s.fetchOnce(ctx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.maxTries))
	if err != nil {
		return nil, crerr.Wrap(err, "fetch sheet export")
	}
	return raw, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, backoff.Permanent(crerr.Wrap(err, "build request"))
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, crerr.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, crerr.Wrap(err, "read response body")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if int64(len(raw)) > s.maxBytes {
			return nil, backoff.Permanent(crerr.Wrapf(ErrSheetTooLarge, "limit=%d", s.maxBytes))
		}
		return raw, nil
	}

	statusErr := crerr.Wrapf(ErrUnexpectedStatus, "status=%d", resp.StatusCode)
	if isRetryableStatus(resp.StatusCode) {
		return nil, statusErr
	}
	return nil, backoff.Permanent(statusErr)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
