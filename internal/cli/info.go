package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resinkit/resinkit-go/gateway"
)

type infoSource interface {
	Info(ctx context.Context) (*gateway.Info, error)
	APIVersions(ctx context.Context) ([]string, error)
}

func newInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "info",
		Short:         "Print the gateway version and api versions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInfo(cmd, rootOpts)
		},
	}
}

func runInfo(cmd *cobra.Command, opts *RootOptions) error {
	src, ok := opts.gw.(infoSource)
	if !ok {
		return errors.New("gateway does not report info")
	}

	ctx := cmd.Context()
	info, err := src.Info(ctx)
	if err != nil {
		return fmt.Errorf("src.Info: %w", err)
	}
	versions, err := src.APIVersions(ctx)
	if err != nil {
		return fmt.Errorf("src.APIVersions: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\napi versions: %v\n", info.ProductName, info.Version, versions)
	return nil
}
