// Package cli implements the resinkit command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/resinkit/resinkit-go/core"
	"github.com/resinkit/resinkit-go/gateway"
	"github.com/resinkit/resinkit-go/internal/config"
	"github.com/resinkit/resinkit-go/logging"
)

// RootOptions holds global flags and the state shared by subcommands.
type RootOptions struct {
	ConfigPath string
	GatewayURL string
	Verbose    bool
	LogJSON    bool

	// NewGateway replaces the http client, used by tests.
	NewGateway func(cfg *config.Config, logger core.Logger) (core.Gateway, error)

	cfg *config.Config
	log *logging.Logger
	gw  core.Gateway
}

// NewRootCommand creates the root command of the resinkit cli.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resinkit",
		Short: "Run statements against a SQL gateway",
		Long: `resinkit opens sessions on a SQL gateway, executes statements and
pages through their results.

The gateway is taken from --gateway, the RESINKIT_GATEWAY_URL environment
variable or the config file, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath(), "path to the config file")
	cmd.PersistentFlags().StringVar(&opts.GatewayURL, "gateway", "", "gateway url, overrides the config")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVar(&opts.LogJSON, "log-json", false, "log as json")

	cmd.AddCommand(newQueryCommand(opts))
	cmd.AddCommand(newDescribeCommand(opts))
	cmd.AddCommand(newCompleteCommand(opts))
	cmd.AddCommand(newSessionCommand(opts))
	cmd.AddCommand(newInfoCommand(opts))

	return cmd
}

func (o *RootOptions) setup(logOutput io.Writer) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	if o.GatewayURL != "" {
		cfg.Gateway.URL = o.GatewayURL
	}
	o.cfg = cfg

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("logging.ParseLevel: %w", err)
	}
	if o.Verbose {
		level = logrus.DebugLevel
	}

	logOpts := []logging.Option{logging.WithOutput(logOutput), logging.WithLevel(level)}
	if o.LogJSON || cfg.Log.JSON {
		logOpts = append(logOpts, logging.WithJSON())
	}
	o.log = logging.New(logOpts...)

	newGateway := o.NewGateway
	if newGateway == nil {
		newGateway = newHTTPGateway
	}
	gw, err := newGateway(cfg, o.log.With("component", "gateway"))
	if err != nil {
		return err
	}
	o.gw = gw

	return nil
}

func newHTTPGateway(cfg *config.Config, logger core.Logger) (core.Gateway, error) {
	client, err := gateway.NewClient(cfg.Gateway.URL, cfg.ClientOptions(logger)...)
	if err != nil {
		return nil, fmt.Errorf("gateway.NewClient: %w", err)
	}
	return client, nil
}

func (o *RootOptions) sessionOptions() []core.SessionOption {
	return o.cfg.SessionOptions(o.log.With("component", "session"))
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "resinkit", "config.yaml")
}
