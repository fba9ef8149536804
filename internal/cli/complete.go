package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resinkit/resinkit-go/core"
)

type CompleteOptions struct {
	*RootOptions
	Position int
}

func newCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "complete <statement>",
		Short:         "Print completion candidates for a statement",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Position, "position", -1, "cursor position, defaults to the end of the statement")

	return cmd
}

func runComplete(cmd *cobra.Command, opts *CompleteOptions, statement string) error {
	position := opts.Position
	if position < 0 || position > len(statement) {
		position = len(statement)
	}

	ctx := cmd.Context()
	return core.Use(ctx, opts.gw, func(s *core.Session) error {
		candidates, err := s.CompleteStatement(ctx, position, statement)
		if err != nil {
			return err
		}

		for _, c := range candidates {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	}, opts.sessionOptions()...)
}
