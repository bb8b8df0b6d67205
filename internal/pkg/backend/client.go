// Package backend talks to the remote REST backend on behalf of one viewer.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodyBytes = 4 << 20

// Envelope is the wrapper the backend puts around every JSON response.
type Envelope struct {
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Status    int             `json:"status"`
	Message   string          `json:"message"`
	Path      string          `json:"path"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// AuthorizationHook is told about every 401/403 on a non-exempt path.
// RequestIssued is called when the request leaves, so the hook can order the
// failure against auth actions that happened while it was in flight.
type AuthorizationHook interface {
	RequestIssued() uint64
	AuthorizationFailed(ctx context.Context, path string, ticket uint64)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Transport is the innermost transport; defaults to a clone of http.DefaultTransport.
	Transport http.RoundTripper
	// Exempt lists paths whose 401/403 answers are handled by the caller.
	Exempt []string
}

// Client is bound to one backend and one cookie jar. It is safe for
// concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	jar    *sessionJar
	exempt map[string]struct{}
	hook   atomic.Pointer[hookRef]
}

type hookRef struct{ AuthorizationHook }

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	inner := cfg.Transport
	if inner == nil {
		inner = http.DefaultTransport.(*http.Transport).Clone()
	}
	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}

	c := &Client{
		base:   base,
		jar:    jar,
		exempt: make(map[string]struct{}, len(cfg.Exempt)),
	}
	for _, p := range cfg.Exempt {
		c.exempt[p] = struct{}{}
	}
	c.http = &http.Client{
		Timeout: timeout,
		Jar:     jar,
		Transport: &interceptor{
			client: c,
			next: otelhttp.NewTransport(inner,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "backend " + r.Method + " " + r.URL.Path
				}),
			),
		},
	}
	return c, nil
}

// SetAuthorizationHook installs the receiver of authorization failures.
func (c *Client) SetAuthorizationHook(h AuthorizationHook) {
	if h == nil {
		c.hook.Store(nil)
		return
	}
	c.hook.Store(&hookRef{h})
}

// ResetSession drops every cookie the backend has set for this client.
func (c *Client) ResetSession() {
	c.jar.reset()
}

func (c *Client) url(path, rawQuery string) string {
	u := c.base.JoinPath(path)
	u.RawQuery = rawQuery
	return u.String()
}

// Do sends body as JSON and decodes the envelope's data into out. It fails
// when the transport fails, the HTTP status is not 2xx or the envelope status
// is not 200. An empty 2xx body is a success with a nil envelope.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) (*Envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindDecode, Path: path, Message: "encode request body", Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, ""), reader)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Path: path, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, StatusCode: resp.StatusCode, Path: path, Message: "read response", Err: err}
	}
	env, decodeErr := decodeEnvelope(raw)

	if isAuthorizationStatus(resp.StatusCode) {
		return env, &Error{Kind: KindAuthorization, StatusCode: resp.StatusCode, Path: path, Message: env.message()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return env, &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Path: path, Message: env.message()}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if decodeErr != nil {
		return nil, &Error{Kind: KindDecode, StatusCode: resp.StatusCode, Path: path, Err: decodeErr}
	}
	if isAuthorizationStatus(env.Status) {
		return env, &Error{Kind: KindAuthorization, StatusCode: env.Status, Path: path, Message: env.Message}
	}
	if env.Status != http.StatusOK {
		return env, &Error{Kind: KindStatus, StatusCode: env.Status, Path: path, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env, &Error{Kind: KindDecode, StatusCode: env.Status, Path: path, Message: "decode data", Err: err}
		}
	}
	return env, nil
}

// Forward sends a raw request and returns the backend response unchanged.
// The caller closes the body. Only transport failures are errors.
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, rawQuery), body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Path: path, Message: "build request", Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Path: path, Err: err}
	}
	return resp, nil
}

func decodeEnvelope(raw []byte) (*Envelope, error) {
	env := &Envelope{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(raw, env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

func (e *Envelope) message() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// interceptor reports authorization failures to the client's hook.
type interceptor struct {
	client *Client
	next   http.RoundTripper
}

func (t *interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	path := t.client.relativePath(req.URL.Path)
	ref := t.client.hook.Load()
	watch := ref != nil && !t.client.isExempt(path)

	var ticket uint64
	if watch {
		ticket = ref.RequestIssued()
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if watch && isAuthorizationStatus(resp.StatusCode) {
		ref.AuthorizationFailed(context.WithoutCancel(req.Context()), path, ticket)
	}
	return resp, nil
}

func (c *Client) relativePath(p string) string {
	rel := strings.TrimPrefix(p, strings.TrimRight(c.base.Path, "/"))
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return rel
}

func (c *Client) isExempt(path string) bool {
	_, ok := c.exempt[path]
	return ok
}
