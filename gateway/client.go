package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/resinkit/resinkit-go/core"
)

const (
	defaultAPIVersion = "v1"
	defaultRowFormat  = "JSON"
	defaultUserAgent  = "resinkit-go"

	// error bodies are kept for diagnostics only
	maxErrorBody = 4 << 10
)

var (
	_ core.Gateway       = (*Client)(nil)
	_ core.SessionKeeper = (*Client)(nil)
)

// Info describes the gateway product.
type Info struct {
	ProductName string `json:"productName"`
	Version     string `json:"version"`
}

// Client talks to a sql gateway over its REST api.
type Client struct {
	base *url.URL
	cfg  *clientConfig
}

// NewClient returns a client for the gateway at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("url.Parse: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid gateway url %q: scheme and host are required", baseURL)
	}

	cfg := &clientConfig{
		httpClient: cleanhttp.DefaultPooledClient(),
		headers:    http.Header{},
		apiVersion: defaultAPIVersion,
		rowFormat:  defaultRowFormat,
		userAgent:  defaultUserAgent,
		log:        core.NopLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		base: base,
		cfg:  cfg,
	}, nil
}

func (c *Client) OpenSession(ctx context.Context, req *core.OpenSessionRequest) (core.SessionHandle, error) {
	body := &openSessionRequest{
		Properties:  req.Properties,
		SessionName: req.SessionName,
	}
	if body.Properties == nil {
		body.Properties = map[string]string{}
	}

	var resp openSessionResponse
	if err := c.call(ctx, http.MethodPost, c.path("sessions"), body, &resp); err != nil {
		return "", err
	}

	handle, ok := resp.SessionHandle.Get()
	if !ok || handle == "" {
		return "", malformed("missing sessionHandle")
	}
	return core.SessionHandle(handle), nil
}

func (c *Client) CloseSession(ctx context.Context, session core.SessionHandle) error {
	return c.call(ctx, http.MethodDelete, c.path("sessions", string(session)), nil, nil)
}

func (c *Client) Heartbeat(ctx context.Context, session core.SessionHandle) error {
	return c.call(ctx, http.MethodPost, c.path("sessions", string(session), "heartbeat"), nil, nil)
}

func (c *Client) SessionConfig(ctx context.Context, session core.SessionHandle) (map[string]string, error) {
	var resp sessionConfigResponse
	if err := c.call(ctx, http.MethodGet, c.path("sessions", string(session)), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Properties.OrElse(map[string]string{}), nil
}

func (c *Client) ExecuteStatement(ctx context.Context, session core.SessionHandle, req *core.ExecuteStatementRequest) (core.OperationHandle, error) {
	body := &executeStatementRequest{
		Statement:        req.Statement,
		Properties:       req.Properties,
		ExecutionTimeout: req.ExecutionTimeout,
	}

	var resp executeStatementResponse
	if err := c.call(ctx, http.MethodPost, c.path("sessions", string(session), "statements"), body, &resp); err != nil {
		return "", err
	}

	handle, ok := resp.OperationHandle.Get()
	if !ok || handle == "" {
		return "", malformed("missing operationHandle")
	}
	return core.OperationHandle(handle), nil
}

func (c *Client) CompleteStatement(ctx context.Context, session core.SessionHandle, position int, statement string) ([]string, error) {
	body := &completeStatementRequest{
		Statement: statement,
		Position:  position,
	}

	var resp completeStatementResponse
	if err := c.call(ctx, http.MethodPost, c.path("sessions", string(session), "complete-statement"), body, &resp); err != nil {
		return nil, err
	}
	return resp.Candidates.OrElse([]string{}), nil
}

func (c *Client) OperationStatus(ctx context.Context, session core.SessionHandle, operation core.OperationHandle) (string, error) {
	return c.status(ctx, http.MethodGet, c.operationPath(session, operation, "status"))
}

func (c *Client) CancelOperation(ctx context.Context, session core.SessionHandle, operation core.OperationHandle) (string, error) {
	return c.status(ctx, http.MethodPut, c.operationPath(session, operation, "cancel"))
}

func (c *Client) CloseOperation(ctx context.Context, session core.SessionHandle, operation core.OperationHandle) (string, error) {
	return c.status(ctx, http.MethodDelete, c.operationPath(session, operation, "close"))
}

func (c *Client) FetchResults(ctx context.Context, session core.SessionHandle, operation core.OperationHandle, token int64) (*core.Page, error) {
	u := c.path("sessions", string(session), "operations", string(operation), "result", strconv.FormatInt(token, 10))
	return c.fetch(ctx, u)
}

func (c *Client) FetchNext(ctx context.Context, cursor string) (*core.Page, error) {
	ref, err := url.Parse(cursor)
	if err != nil {
		return nil, malformed("invalid nextResultUri %q: %s", cursor, err)
	}
	return c.fetch(ctx, c.resolve(ref))
}

// resolve places a cursor without scheme or host under the base path, the
// gateway may sit behind a proxy serving it from a prefix.
func (c *Client) resolve(ref *url.URL) *url.URL {
	if ref.IsAbs() || ref.Host != "" {
		return c.base.ResolveReference(ref)
	}

	prefix := strings.TrimSuffix(c.base.EscapedPath(), "/")
	if prefix != "" && (ref.EscapedPath() == prefix || strings.HasPrefix(ref.EscapedPath(), prefix+"/")) {
		return c.base.ResolveReference(ref)
	}

	u := c.base.JoinPath(ref.EscapedPath())
	u.RawQuery = ref.RawQuery
	return u
}

// Info returns the product name and version of the gateway.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var resp infoResponse
	if err := c.call(ctx, http.MethodGet, c.path("info"), nil, &resp); err != nil {
		return nil, err
	}
	return &Info{
		ProductName: resp.ProductName.OrElse(""),
		Version:     resp.Version.OrElse(""),
	}, nil
}

// APIVersions lists the api versions the gateway serves.
func (c *Client) APIVersions(ctx context.Context) ([]string, error) {
	var resp apiVersionsResponse
	if err := c.call(ctx, http.MethodGet, c.path("api_versions"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Versions.OrElse([]string{}), nil
}

func (c *Client) status(ctx context.Context, method string, u *url.URL) (string, error) {
	var resp statusResponse
	if err := c.call(ctx, method, u, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status.OrElse(""), nil
}

func (c *Client) fetch(ctx context.Context, u *url.URL) (*core.Page, error) {
	q := u.Query()
	q.Set("rowFormat", c.cfg.rowFormat)
	u.RawQuery = q.Encode()

	var resp fetchResultsResponse
	err := c.call(ctx, http.MethodGet, u, nil, &resp)
	if err != nil {
		if c.cfg.suppressStatuses && errors.Is(err, core.ErrUnexpectedStatus) {
			c.cfg.log.Warnf("suppressed fetch error for %s: %s", u, err)
			return nil, nil
		}
		return nil, err
	}

	return resp.toPage()
}

// call sends one request. A nil out discards the response body, which is
// then allowed to be empty.
func (c *Client) call(ctx context.Context, method string, u *url.URL, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("json.Marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	for key, values := range c.cfg.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for _, cookie := range c.cfg.cookies {
		req.AddCookie(cookie)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.userAgent != "" {
		req.Header.Set("User-Agent", c.cfg.userAgent)
	}

	c.cfg.log.Debugf("%s %s", method, u)

	resp, err := c.cfg.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %s", core.ErrConnectionFailure, method, u.Path, err)
	}
	defer resp.Body.Close()

	if !documentedStatus(resp.StatusCode, out == nil) {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &core.UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Body:       bytes.TrimSpace(b),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %s", core.ErrMalformedResponse, method, u.Path, err)
	}
	return nil
}

func documentedStatus(code int, allowEmpty bool) bool {
	if code == http.StatusOK {
		return true
	}
	return allowEmpty && code == http.StatusNoContent
}

func (c *Client) path(segments ...string) *url.URL {
	return c.base.JoinPath(append([]string{c.cfg.apiVersion}, segments...)...)
}

func (c *Client) operationPath(session core.SessionHandle, operation core.OperationHandle, action string) *url.URL {
	return c.path("sessions", string(session), "operations", string(operation), action)
}
