package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Flynatol/canvas-downloader/internal/logging"
)

// ErrRetriesExhausted reports that a request kept being throttled after every
// allowed attempt.
var ErrRetriesExhausted = errors.New("gate: retries exhausted")

const (
	defaultLimit   = 8
	defaultRetries = 3
	defaultTimeout = 10 * time.Second
)

// Options describes gate construction parameters.
type Options struct {
	// Limit is the number of admission slots. Defaults to 8.
	Limit int
	// Retries is the number of additional attempts after the first request
	// comes back throttled. Defaults to 3.
	Retries int
	// Timeout bounds each buffered attempt, and the response-header wait for
	// streamed requests. Defaults to 10s.
	Timeout time.Duration
	// Client performs buffered requests. Defaults to a plain http.Client;
	// attempt deadlines come from the per-attempt context.
	Client *http.Client
	// Streamer performs streaming requests. It must not enforce a
	// whole-request timeout or long downloads would be cut off.
	Streamer *http.Client
	Logger   *slog.Logger
}

// Response is a fully buffered HTTP response. Callers receive the body after
// the admission slot has already been returned, so holding a Response never
// blocks other requests.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	URL    string
}

// Gate serializes access to remote hosts through a fixed pool of admission
// slots and retries throttled requests with randomized backoff. Views created
// with WithClient share the same pool, so the concurrency bound holds across
// every client in the process.
type Gate struct {
	core     *core
	client   *http.Client
	streamer *http.Client
}

// core carries the state shared by every view of a gate.
type core struct {
	slots   chan struct{}
	retries int
	timeout time.Duration
	logger  *slog.Logger
	closed  atomic.Bool

	sleep      func(context.Context, time.Duration) error
	randInt63n func(int64) int64
}

// New constructs a Gate from opts, filling in defaults for zero values.
func New(opts Options) *Gate {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	retries := opts.Retries
	if retries < 0 {
		retries = defaultRetries
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	streamer := opts.Streamer
	if streamer == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = timeout
		streamer = &http.Client{Transport: transport}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Gate{
		core: &core{
			slots:      make(chan struct{}, limit),
			retries:    retries,
			timeout:    timeout,
			logger:     logging.NewComponentLogger(logger, logging.ComponentGate),
			sleep:      sleepContext,
			randInt63n: rand.Int63n,
		},
		client:   client,
		streamer: streamer,
	}
}

// WithClient returns a view of the gate that performs buffered requests with
// client but draws from the same admission slots. Cookie-carrying flows get
// their own client per course without loosening the global bound.
func (g *Gate) WithClient(client *http.Client) *Gate {
	if client == nil {
		return g
	}
	return &Gate{core: g.core, client: client, streamer: g.streamer}
}

// Do performs req with an admission slot held for the duration of each
// attempt, buffers the body, and retries throttled responses. Statuses 403
// and 429 count as throttled; any other status is returned to the caller
// unchanged. Transport errors are never retried.
func (g *Gate) Do(ctx context.Context, req *http.Request) (*Response, error) {
	g.core.ensureOpen()

	attempts := g.core.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := g.once(ctx, req, attempt)
		if err != nil {
			return nil, err
		}
		if !throttled(resp.Status) {
			return resp, nil
		}
		if attempt == attempts-1 {
			break
		}

		delay := g.core.backoff(attempt)
		g.core.logger.Warn("request throttled",
			logging.String(logging.FieldURL, req.URL.String()),
			logging.Int(logging.FieldStatus, resp.Status),
			logging.Int(logging.FieldAttempt, attempt+1),
			logging.Duration("delay", delay))
		if err := g.core.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%s %s after %d attempts: %w", req.Method, req.URL, attempts, ErrRetriesExhausted)
}

// Stream performs req with an admission slot held until the returned body is
// closed. Streamed requests are never retried; the caller owns failure
// handling. Only the wait for response headers is bounded, the body itself
// may take as long as it needs.
func (g *Gate) Stream(ctx context.Context, req *http.Request) (*http.Response, error) {
	g.core.ensureOpen()

	if err := g.core.acquire(ctx); err != nil {
		return nil, err
	}
	resp, err := g.streamer.Do(req.WithContext(ctx))
	if err != nil {
		g.core.release()
		return nil, fmt.Errorf("gate: stream %s %s: %w", req.Method, req.URL, err)
	}
	resp.Body = &slotBody{body: resp.Body, release: g.core.release}
	return resp, nil
}

// Close marks the gate as shut down. Any later Do or Stream call, through any
// view, panics: scheduling work after quiescence means the crawl accounting
// is broken and the process must not limp on.
func (g *Gate) Close() {
	g.core.closed.Store(true)
}

func (c *core) ensureOpen() {
	if c.closed.Load() {
		panic("gate: request issued after Close")
	}
}

func (g *Gate) once(ctx context.Context, req *http.Request, attempt int) (*Response, error) {
	if err := g.core.acquire(ctx); err != nil {
		return nil, err
	}
	defer g.core.release()

	actx, cancel := context.WithTimeout(ctx, g.core.timeout)
	defer cancel()

	attemptReq, err := replayableClone(actx, req, attempt)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(attemptReq)
	if err != nil {
		return nil, fmt.Errorf("gate: %s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gate: read %s: %w", req.URL, err)
	}

	url := req.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
		URL:    url,
	}, nil
}

func (c *core) acquire(ctx context.Context) error {
	select {
	case c.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *core) release() {
	<-c.slots
}

// backoff picks a uniformly random delay from [0, 2^attempt seconds).
func (c *core) backoff(attempt int) time.Duration {
	window := time.Second << attempt
	return time.Duration(c.randInt63n(int64(window)))
}

func throttled(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

// replayableClone produces a request for one attempt. Bodies are replayed
// through GetBody so retried POSTs resend the same payload.
func replayableClone(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil {
		return clone, nil
	}
	if req.GetBody == nil {
		if attempt == 0 {
			return clone, nil
		}
		return nil, fmt.Errorf("gate: request body for %s cannot be replayed", req.URL)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("gate: replay request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// slotBody holds an admission slot until the response body is closed.
type slotBody struct {
	body    io.ReadCloser
	release func()
	once    sync.Once
}

func (b *slotBody) Read(p []byte) (int, error) {
	return b.body.Read(p)
}

func (b *slotBody) Close() error {
	err := b.body.Close()
	b.once.Do(b.release)
	return err
}
