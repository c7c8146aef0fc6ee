// Package recording downloads recorded call audio from the telephony provider.
//
// Recordings are often not available the instant the webhook fires, so every
// fetch waits before each attempt and backs off exponentially between
// failures.
package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-callflow/internal/httpc"
)

// Defaults for Policy.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 500 * time.Millisecond
	DefaultTimeout   = 2 * time.Second
	DefaultSuffix    = ".mp3"

	// DefaultMaxBytes matches the upload limit of common transcription APIs.
	DefaultMaxBytes = 25 << 20
)

// Policy bounds how hard the retriever tries.
type Policy struct {
	// Attempts is the total number of requests made before giving up.
	Attempts int

	// BaseDelay is the wait before the first attempt. It doubles after every
	// failed attempt.
	BaseDelay time.Duration

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// Suffix is appended to a provider locator to select the media format.
	Suffix string

	// MaxBytes caps the accepted body size.
	MaxBytes int64
}

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  DefaultAttempts,
		BaseDelay: DefaultBaseDelay,
		Timeout:   DefaultTimeout,
		Suffix:    DefaultSuffix,
		MaxBytes:  DefaultMaxBytes,
	}
}

// Budget is the longest a fetch can take: every backoff sleep plus every
// attempt running to its timeout.
func (p Policy) Budget() time.Duration {
	var sleeps time.Duration
	delay := p.BaseDelay
	for i := 0; i < p.Attempts; i++ {
		sleeps += delay
		delay *= 2
	}
	return sleeps + time.Duration(p.Attempts)*p.Timeout
}

// Retriever fetches recordings over HTTP.
type Retriever struct {
	policy   Policy
	client   *http.Client
	username string
	password string
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithPolicy replaces the retry policy. Zero fields keep their defaults.
func WithPolicy(p Policy) Option {
	return func(r *Retriever) {
		if p.Attempts > 0 {
			r.policy.Attempts = p.Attempts
		}
		if p.BaseDelay > 0 {
			r.policy.BaseDelay = p.BaseDelay
		}
		if p.Timeout > 0 {
			r.policy.Timeout = p.Timeout
		}
		if p.Suffix != "" {
			r.policy.Suffix = p.Suffix
		}
		if p.MaxBytes > 0 {
			r.policy.MaxBytes = p.MaxBytes
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Retriever) {
		r.client = c
	}
}

// WithBasicAuth authenticates requests, as Twilio does for protected
// recordings (account SID and auth token).
func WithBasicAuth(username, password string) Option {
	return func(r *Retriever) {
		r.username = username
		r.password = password
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) {
		r.logger = l
	}
}

// New creates a Retriever.
func New(opts ...Option) *Retriever {
	r := &Retriever{
		policy: DefaultPolicy(),
		client: httpc.NewClient(0),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "recording")
	return r
}

// Policy returns the effective policy.
func (r *Retriever) Policy() Policy {
	return r.policy
}

// FetchRecording fetches the media for a provider recording locator.
func (r *Retriever) FetchRecording(ctx context.Context, locator string) ([]byte, error) {
	if locator == "" {
		return nil, ErrEmptyLocator
	}
	return r.Fetch(ctx, locator+r.policy.Suffix)
}

// Fetch downloads url. Before each attempt it waits the current delay,
// which starts at BaseDelay and doubles after each failure. Non-2xx
// responses are retried. A successful empty body is returned as is.
func (r *Retriever) Fetch(ctx context.Context, url string) ([]byte, error) {
	delay := r.policy.BaseDelay
	var (
		lastErr  error
		got2xx   bool
		attempts int
	)

	for attempts < r.policy.Attempts {
		if err := sleep(ctx, delay); err != nil {
			// keep the last attempt's cause over the context error
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		attempts++

		body, ok, err := r.attempt(ctx, url)
		if err == nil {
			r.logger.Debug("recording fetched", "url", url, "attempt", attempts, "bytes", len(body))
			return body, nil
		}
		got2xx = got2xx || ok
		lastErr = err
		r.logger.Warn("recording fetch failed", "url", url, "attempt", attempts, "error", err)

		if ctx.Err() != nil {
			break
		}
		delay *= 2
	}

	kind := KindUnavailable
	if got2xx {
		kind = KindInvalid
	}
	return nil, &RetrievalError{URL: url, Attempts: attempts, Kind: kind, Err: lastErr}
}

// attempt performs one bounded request. ok reports whether the server
// answered with a 2xx status.
func (r *Retriever) attempt(ctx context.Context, url string) (body []byte, ok bool, err error) {
	actx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	if r.username != "" {
		req.SetBasicAuth(r.username, r.password)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, false, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, r.policy.MaxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > r.policy.MaxBytes {
		return nil, true, errors.New("recording: body exceeds size limit")
	}
	return body, true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
