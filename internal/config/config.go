// Package config loads the yaml configuration of the resinkit command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"gopkg.in/yaml.v3"

	"github.com/resinkit/resinkit-go/core"
	"github.com/resinkit/resinkit-go/gateway"
)

// EnvGatewayURL overrides gateway.url from the file.
const EnvGatewayURL = "RESINKIT_GATEWAY_URL"

const DefaultGatewayURL = "http://localhost:8083"

type (
	Config struct {
		Gateway Gateway `yaml:"gateway"`
		Session Session `yaml:"session"`
		Fetch   Fetch   `yaml:"fetch"`
		Log     Log     `yaml:"log"`
	}

	Gateway struct {
		URL                      string            `yaml:"url"`
		APIVersion               string            `yaml:"api_version"`
		RowFormat                string            `yaml:"row_format"`
		Headers                  map[string]string `yaml:"headers"`
		Cookies                  map[string]string `yaml:"cookies"`
		SuppressUnexpectedStatus bool              `yaml:"suppress_unexpected_status"`
		Timeout                  time.Duration     `yaml:"timeout"`
	}

	Session struct {
		Name       string            `yaml:"name"`
		Properties map[string]string `yaml:"properties"`
	}

	// Fetch mirrors core.FetchOptions in seconds. Nil values keep the defaults.
	Fetch struct {
		PollIntervalSecs   *float64 `yaml:"poll_interval_secs"`
		MaxPollSecs        *float64 `yaml:"max_poll_secs"`
		NoMaxPoll          bool     `yaml:"no_max_poll"`
		RowLimit           *int     `yaml:"row_limit"`
		NoRowLimit         bool     `yaml:"no_row_limit"`
		MaxNotReadyRetries int      `yaml:"max_not_ready_retries"`
		RowKinds           string   `yaml:"row_kinds"`
	}

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	}
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Gateway: Gateway{
			URL:        DefaultGatewayURL,
			Headers:    map[string]string{},
			Cookies:    map[string]string{},
			APIVersion: "v1",
			RowFormat:  "JSON",
		},
		Session: Session{
			Properties: map[string]string{},
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads the file at path over the defaults. An empty path or a missing
// file yields the defaults. String values are expanded and the gateway url
// env override is applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("os.ReadFile: %w", err)
		default:
			if err := cfg.decode(bytes.NewReader(b)); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	if err := cfg.expand(); err != nil {
		return nil, err
	}

	if url := os.Getenv(EnvGatewayURL); url != "" {
		cfg.Gateway.URL = url
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("dec.Decode: %w", err)
	}
	return nil
}

func (c *Config) expand() error {
	var err error
	for _, field := range []*string{&c.Gateway.URL, &c.Session.Name} {
		if *field, err = expand(*field); err != nil {
			return fmt.Errorf("expand: %w", err)
		}
	}

	for _, m := range []map[string]string{c.Gateway.Headers, c.Gateway.Cookies, c.Session.Properties} {
		if err := expandMap(m); err != nil {
			return fmt.Errorf("expand: %w", err)
		}
	}
	return nil
}

// Validate checks the values that can't be checked by their consumers lazily.
func (c *Config) Validate() error {
	if c.Gateway.URL == "" {
		return errors.New("gateway.url is required")
	}
	if _, err := c.FetchOptions(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

// FetchOptions converts the fetch section into validated core options.
func (c *Config) FetchOptions(extra ...core.FetchOption) (*core.FetchOptions, error) {
	policy, err := core.RowKindPolicyFromString(c.Fetch.RowKinds)
	if err != nil {
		return nil, err
	}

	opts := []core.FetchOption{
		core.WithRowKindPolicy(policy),
		core.WithMaxNotReadyRetries(c.Fetch.MaxNotReadyRetries),
	}
	if c.Fetch.NoMaxPoll {
		opts = append(opts, core.WithoutMaxPoll())
	}
	if c.Fetch.NoRowLimit {
		opts = append(opts, core.WithoutRowLimit())
	}

	pollInterval, maxPoll, rowLimit := c.Fetch.PollIntervalSecs, c.Fetch.MaxPollSecs, c.Fetch.RowLimit
	if c.Fetch.NoMaxPoll {
		maxPoll = nil
	}
	if c.Fetch.NoRowLimit {
		rowLimit = nil
	}

	return core.FetchOptionsFromSeconds(pollInterval, maxPoll, rowLimit, append(opts, extra...)...)
}

// ClientOptions converts the gateway section into client options.
func (c *Config) ClientOptions(logger core.Logger) []gateway.Option {
	opts := []gateway.Option{
		gateway.WithAPIVersion(c.Gateway.APIVersion),
		gateway.WithRowFormat(c.Gateway.RowFormat),
		gateway.WithSuppressUnexpectedStatus(c.Gateway.SuppressUnexpectedStatus),
		gateway.WithLogger(logger),
	}
	if c.Gateway.Timeout > 0 {
		client := cleanhttp.DefaultPooledClient()
		client.Timeout = c.Gateway.Timeout
		opts = append(opts, gateway.WithHTTPClient(client))
	}
	for key, value := range c.Gateway.Headers {
		opts = append(opts, gateway.WithHeader(key, value))
	}
	for name, value := range c.Gateway.Cookies {
		opts = append(opts, gateway.WithCookie(name, value))
	}
	return opts
}

// SessionOptions converts the session section into session options.
func (c *Config) SessionOptions(logger core.Logger) []core.SessionOption {
	return []core.SessionOption{
		core.WithSessionName(c.Session.Name),
		core.WithProperties(c.Session.Properties),
		core.WithSessionLogger(logger),
	}
}
