package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/repository"
)

// SimpleJWT-compatible error code a backend sends for an expired or invalid
// access token. A 401 carrying any other non-empty code is retry-exempt.
const codeTokenNotValid = "token_not_valid"

// Request is a replayable description of an HTTP call: the body is held as
// bytes, never as a consumed reader, so a retry re-dispatches the identical
// request. The Authorization header is never part of a Request; it is stamped
// from the credential store immediately before each dispatch.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is a completed 2xx exchange.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Client dispatches requests against one backend. Send stamps the current
// access credential; SendUnauthenticated is the bare path login and refresh
// exchanges use before any credential exists.
type Client struct {
	base  *url.URL
	http  *http.Client
	store repository.CredentialStore
}

// New creates a transport client for baseURL. The store supplies the access
// credential stamped on authenticated dispatches.
func New(baseURL string, store repository.CredentialStore, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:  base,
		http:  &http.Client{Timeout: timeout},
		store: store,
	}, nil
}

// Send dispatches an authenticated request. The access credential is read
// from the store immediately before dispatch, never earlier, so a request
// issued after a refresh always carries the refreshed token. When the store
// is empty it fails fast with repository.ErrNoCredentials and no network
// call is made.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	access, err := c.store.Current(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoCredentials) {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, repository.ErrNoCredentials)
		}
		return nil, fmt.Errorf("failed to read access credential: %w", err)
	}

	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+access)

	resp, err := c.do(httpReq, req)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized {
		var body models.ErrorBody
		_ = json.Unmarshal(resp.Body, &body)
		if body.Code != "" && body.Code != codeTokenNotValid {
			// Authorization failed for a reason other than token expiry;
			// refreshing cannot help, so this stays a terminal API error.
			return nil, &APIError{Status: resp.Status, Code: body.Code, Detail: body.Detail}
		}
		return nil, &UnauthorizedError{Credential: access, Code: body.Code, Detail: body.Detail}
	}

	return c.check(resp)
}

// SendUnauthenticated dispatches without stamping a credential. A 401 on this
// path is a plain API error, never an UnauthorizedError: credential exchanges
// must not re-enter the refresh path.
func (c *Client) SendUnauthenticated(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(httpReq, req)
	if err != nil {
		return nil, err
	}
	return c.check(resp)
}

func (c *Client) build(ctx context.Context, req *Request) (*http.Request, error) {
	u := c.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		if http.CanonicalHeaderKey(key) == "Authorization" {
			continue
		}
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func (c *Client) do(httpReq *http.Request, req *Request) (*Response, error) {
	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("dispatched request")

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// check maps non-2xx statuses to *APIError.
func (c *Client) check(resp *Response) (*Response, error) {
	if resp.Status >= 200 && resp.Status < 300 {
		return resp, nil
	}

	apiErr := &APIError{Status: resp.Status}
	var body models.ErrorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil && body.Detail != "" {
		apiErr.Code = body.Code
		apiErr.Detail = body.Detail
	} else if len(resp.Body) > 0 {
		apiErr.Detail = truncate(string(resp.Body), 200)
	}
	return nil, apiErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
