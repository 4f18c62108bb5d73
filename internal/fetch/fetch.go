// Package fetch retrieves JSON payloads from content endpoints.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	logx "contentwatch/pkg/logx"
)

var (
	ErrStatus   = errors.New("HTTP status code not ok")
	ErrTooLarge = errors.New("response body too large")
)

type Config struct {
	// Timeout bounds one request, including reading the body.
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// Client fetches endpoints. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, hc *http.Client, log logx.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	if hc == nil {
		hc = &http.Client{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, http: hc, log: log}
}

// Fetch GETs endpoint and decodes the JSON body. Numbers are kept as
// json.Number so markers round-trip as written.
func (c *Client) Fetch(ctx context.Context, endpoint string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("fetch %s: status %d: %w", endpoint, resp.StatusCode, ErrStatus)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", endpoint, err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("fetch %s: %w (limit %d bytes)", endpoint, ErrTooLarge, c.cfg.MaxBodyBytes)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("fetch %s: decode json: %w", endpoint, err)
	}
	return v, nil
}

// FetchAll fetches every endpoint concurrently. A failing endpoint is logged
// and left out of the result; it never affects the others.
func (c *Client) FetchAll(ctx context.Context, endpoints []string) map[string]any {
	var (
		mu  sync.Mutex
		out = make(map[string]any, len(endpoints))
	)
	// Workers never return an error, so the group context is never canceled
	// by a sibling failure.
	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range endpoints {
		ep := ep
		g.Go(func() error {
			start := time.Now()
			v, err := c.Fetch(gctx, ep)
			if err != nil {
				c.log.Warn("fetch failed", logx.Endpoint(ep), logx.Duration("took", time.Since(start)), logx.Err(err))
				return nil
			}
			c.log.Debug("fetched", logx.Endpoint(ep), logx.Duration("took", time.Since(start)))
			mu.Lock()
			out[ep] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
