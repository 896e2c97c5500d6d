// Package api talks to the BTW Buddy HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"btw-buddy/internal/config"
	"btw-buddy/internal/metrics"

	"github.com/go-resty/resty/v2"
)

// TokenSource supplies the bearer token and recovers from 401 responses.
// session.Manager implements it.
type TokenSource interface {
	AccessToken() string
	RefreshAccessToken(ctx context.Context) (string, error)
	ForceLogout(reason error)
}

// Client sends authenticated requests. A 401 is answered with one token refresh
// and one retry of the same request; a second 401 ends the session.
type Client struct {
	http   *resty.Client
	tokens TokenSource
}

func newResty(cfg *config.Config) *resty.Client {
	return resty.New().
		SetBaseURL(cfg.API.BaseURL).
		SetTimeout(cfg.Timeout()).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.API.UserAgent)
}

func New(cfg *config.Config, tokens TokenSource) *Client {
	c := &Client{http: newResty(cfg), tokens: tokens}
	c.http.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if token := c.tokens.AccessToken(); token != "" {
			r.SetAuthToken(token)
		}
		return nil
	})
	return c
}

// call describes one API request. build is run for every attempt so bodies
// backed by readers can be replayed.
type call struct {
	method string
	path   string
	build  func(r *resty.Request)
	out    any
	raw    *[]byte // receives the body of non-JSON downloads
}

func (c *Client) do(ctx context.Context, cl call) error {
	retried := false
	for {
		r := c.http.R().SetContext(ctx)
		if cl.build != nil {
			cl.build(r)
		}
		if cl.out != nil {
			r.SetResult(cl.out)
		}

		resp, err := r.Execute(cl.method, cl.path)
		if err != nil {
			metrics.APIRequestsTotal.WithLabelValues(cl.method, cl.path, "error").Inc()
			return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
		}
		observe(cl.method, cl.path, resp)

		if resp.StatusCode() == http.StatusUnauthorized {
			if retried {
				log.Printf("[API] %s %s rejected after token refresh", cl.method, cl.path)
				apiErr := parseError(resp)
				c.tokens.ForceLogout(apiErr)
				return apiErr
			}
			retried = true
			if _, err := c.tokens.RefreshAccessToken(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
				}
				return fmt.Errorf("%w: %v", ErrUnauthorized, err)
			}
			continue
		}

		if resp.IsError() {
			return parseError(resp)
		}
		if cl.raw != nil {
			*cl.raw = resp.Body()
		}
		return nil
	}
}

func observe(method, path string, resp *resty.Response) {
	metrics.APIRequestsTotal.WithLabelValues(method, path, strconv.Itoa(resp.StatusCode())).Inc()
	metrics.APIRequestDuration.WithLabelValues(method, path).Observe(resp.Time().Seconds())
}

func (c *Client) get(ctx context.Context, path string, build func(*resty.Request), out any) error {
	return c.do(ctx, call{method: resty.MethodGet, path: path, build: build, out: out})
}

func (c *Client) post(ctx context.Context, path string, build func(*resty.Request), out any) error {
	return c.do(ctx, call{method: resty.MethodPost, path: path, build: build, out: out})
}

func (c *Client) download(ctx context.Context, path string, build func(*resty.Request)) ([]byte, error) {
	var body []byte
	err := c.do(ctx, call{method: resty.MethodGet, path: path, build: build, raw: &body})
	return body, err
}

func jsonBody(body any) func(*resty.Request) {
	return func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}
}

func pathID(id int) func(*resty.Request) {
	return func(r *resty.Request) {
		r.SetPathParam("id", strconv.Itoa(id))
	}
}
