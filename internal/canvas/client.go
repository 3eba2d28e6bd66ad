package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Flynatol/canvas-downloader/internal/gate"
	"github.com/Flynatol/canvas-downloader/internal/logging"
)

// Client issues bearer-authenticated requests against one Canvas instance.
// Every call passes through the admission gate.
type Client struct {
	base   string
	token  string
	gate   *gate.Gate
	logger *slog.Logger
}

// NewClient builds a client for the instance at base, e.g.
// "https://canvas.example.edu".
func NewClient(base, token string, g *gate.Gate, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		gate:   g,
		logger: logging.NewComponentLogger(logger, logging.ComponentCanvas),
	}
}

// BaseURL returns the instance root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

// URL builds an absolute API URL under /api/v1.
func (c *Client) URL(format string, args ...any) string {
	return c.base + "/api/v1" + fmt.Sprintf(format, args...)
}

// Gate exposes the admission gate so sibling clients (the external tool
// launcher) can share its slot pool.
func (c *Client) Gate() *gate.Gate {
	return c.gate
}

// Get performs one authenticated GET. Non-2xx responses are returned to the
// caller undecoded; Canvas reports most refusals inside the body.
func (c *Client) Get(ctx context.Context, rawurl string) (*gate.Response, error) {
	return c.do(ctx, http.MethodGet, rawurl)
}

// Head performs one authenticated HEAD, used to name embedded images from
// their response headers without fetching them.
func (c *Client) Head(ctx context.Context, rawurl string) (*gate.Response, error) {
	return c.do(ctx, http.MethodHead, rawurl)
}

// GetJSON performs an authenticated GET and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, rawurl string, v any) error {
	resp, err := c.Get(ctx, rawurl)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("canvas: decode %s (status %d): %w", rawurl, resp.Status, err)
	}
	return nil
}

// GetAll walks a paginated endpoint, following rel="next" Link headers until
// the listing reports its last page, and returns every page response in
// order.
func (c *Client) GetAll(ctx context.Context, rawurl string) ([]*gate.Response, error) {
	var pages []*gate.Response
	next := rawurl
	for {
		resp, err := c.Get(ctx, next)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp)

		n, ok := nextPage(resp.Header)
		if !ok {
			return pages, nil
		}
		next = n
	}
}

func (c *Client) do(ctx context.Context, method, rawurl string) (*gate.Response, error) {
	req, err := http.NewRequest(method, rawurl, nil)
	if err != nil {
		return nil, fmt.Errorf("canvas: build %s %s: %w", method, rawurl, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.gate.Do(ctx, req)
}
