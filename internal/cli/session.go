package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/resinkit/resinkit-go/core"
)

func newSessionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Open a session and print its configuration",
		Long: `Open a session with the configured properties, check it with a heartbeat
and print the properties the gateway resolved for it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, rootOpts)
		},
	}
}

type sessionReport struct {
	Name       string            `yaml:"name"`
	Handle     string            `yaml:"handle"`
	Alive      bool              `yaml:"alive"`
	Properties map[string]string `yaml:"properties"`
}

func runSession(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()

	return core.Use(ctx, opts.gw, func(s *core.Session) error {
		properties, err := s.Config(ctx)
		if err != nil {
			return err
		}

		b, err := yaml.Marshal(&sessionReport{
			Name:       s.Name(),
			Handle:     string(s.Handle()),
			Alive:      s.IsAlive(ctx),
			Properties: properties,
		})
		if err != nil {
			return fmt.Errorf("yaml.Marshal: %w", err)
		}

		_, err = cmd.OutOrStdout().Write(b)
		return err
	}, opts.sessionOptions()...)
}
