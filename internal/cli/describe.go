package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/resinkit/resinkit-go/core"
	"github.com/resinkit/resinkit-go/core/builders"
)

type DescribeOptions struct {
	*RootOptions
	Format string
}

func newDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "describe <table>",
		Short:         "Print the columns of a table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "table", fmt.Sprintf("output format %v", Formats))

	return cmd
}

func runDescribe(cmd *cobra.Command, opts *DescribeOptions, table string) error {
	formatter, err := newFormatter(opts.Format, "")
	if err != nil {
		return err
	}

	fetchOpts, err := opts.cfg.FetchOptions(core.WithoutRowLimit())
	if err != nil {
		return fmt.Errorf("cfg.FetchOptions: %w", err)
	}

	ctx := cmd.Context()
	var columns []*core.Column

	err = core.Use(ctx, opts.gw, func(s *core.Session) error {
		return s.Execute("DESCRIBE "+quoteIdentifier(table)).Sync(ctx, func(op *core.Operation) error {
			rows := builders.StreamOperation(ctx, op, fetchOpts, opts.log)
			defer rows.Close()

			cols, err := builders.ColumnsFromResultStream(rows)
			columns = cols
			return err
		})
	}, opts.sessionOptions()...)
	if err != nil {
		return err
	}

	rows := make([]core.Row, 0, len(columns))
	for _, col := range columns {
		rows = append(rows, core.Row{col.Name, col.SQLType(), col.Nullable})
	}

	b, err := formatter.Format(core.Header{"name", "type", "nullable"}, rows, &core.FormatterOptions{})
	if err != nil {
		return fmt.Errorf("formatter.Format: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(b)
	return err
}

// quoteIdentifier quotes every part of a dotted name with backticks.
func quoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		p = strings.Trim(p, "`")
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}
