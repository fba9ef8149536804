package gateway

import (
	"net/http"
	"strings"

	"github.com/resinkit/resinkit-go/core"
)

type (
	clientConfig struct {
		httpClient       *http.Client
		headers          http.Header
		cookies          []*http.Cookie
		apiVersion       string
		rowFormat        string
		userAgent        string
		suppressStatuses bool
		log              core.Logger
	}

	// Option is a functional option for NewClient.
	Option func(*clientConfig)
)

func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *clientConfig) {
		c.headers.Add(key, value)
	}
}

// WithCookie adds a cookie sent with every request.
func WithCookie(name, value string) Option {
	return func(c *clientConfig) {
		c.cookies = append(c.cookies, &http.Cookie{Name: name, Value: value})
	}
}

// WithAPIVersion sets the path prefix of every endpoint, "v1" by default.
func WithAPIVersion(version string) Option {
	return func(c *clientConfig) {
		version = strings.Trim(version, "/")
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithRowFormat sets the rowFormat query of result fetches, "JSON" by default.
func WithRowFormat(format string) Option {
	return func(c *clientConfig) {
		if format != "" {
			c.rowFormat = format
		}
	}
}

// WithSuppressUnexpectedStatus makes result fetches answer undocumented
// statuses with a nil page instead of an error.
func WithSuppressUnexpectedStatus(suppress bool) Option {
	return func(c *clientConfig) {
		c.suppressStatuses = suppress
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *clientConfig) {
		if logger != nil {
			c.log = logger
		}
	}
}

func WithUserAgent(agent string) Option {
	return func(c *clientConfig) {
		c.userAgent = agent
	}
}
