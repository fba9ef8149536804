package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/resinkit/resinkit-go/core"
	"github.com/resinkit/resinkit-go/core/builders"
	"github.com/resinkit/resinkit-go/core/format"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions

	File      string
	Format    string
	Output    string
	Null      string
	Parallel  int
	Stream    bool
	ChunkSize int
	Async     bool
	CallLog   string

	PollInterval       float64
	MaxPoll            float64
	NoMaxPoll          bool
	RowLimit           int
	NoRowLimit         bool
	MaxNotReadyRetries int
	RowKinds           string

	StatementProperties map[string]string
	SessionProperties   map[string]string
	ExecutionTimeout    time.Duration
}

func newQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [statement...]",
		Short: "Execute statements and print their results",
		Long: `Execute statements in a fresh session and print their results.

Statements are taken from the arguments, or from --file split on semicolons.
All statements run in the same session, which is closed afterwards.

Example:
  resinkit query "SELECT * FROM orders"
  resinkit query -f etl.sql --format csv -o out.csv
  resinkit query --parallel 4 "SELECT 1" "SELECT 2"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.File, "file", "f", "", "read statements from a file, - for stdin")
	f.StringVar(&opts.Format, "format", "table", fmt.Sprintf("output format %v", Formats))
	f.StringVarP(&opts.Output, "output", "o", "", "write results to a file instead of stdout")
	f.StringVar(&opts.Null, "null", "NULL", "text printed for null values in tables")
	f.IntVar(&opts.Parallel, "parallel", 0, "fetch up to n results concurrently, 0 fetches one after another")
	f.BoolVar(&opts.Stream, "stream", false, "print rows while pages arrive")
	f.IntVar(&opts.ChunkSize, "chunk-size", 100, "rows per printed chunk with --stream")
	f.BoolVar(&opts.Async, "async", false, "fetch every result as a tracked call")
	f.StringVar(&opts.CallLog, "call-log", "", "write the tracked calls as json to a file, implies --async")

	f.Float64Var(&opts.PollInterval, "poll-interval", core.DefaultPollInterval.Seconds(), "seconds between polls of a result that is not ready")
	f.Float64Var(&opts.MaxPoll, "max-poll", core.DefaultMaxPoll.Seconds(), "seconds to keep paging")
	f.BoolVar(&opts.NoMaxPoll, "no-max-poll", false, "page without a time budget")
	f.IntVar(&opts.RowLimit, "row-limit", core.DefaultRowLimit, "stop after this many rows")
	f.BoolVar(&opts.NoRowLimit, "no-row-limit", false, "page without a row limit")
	f.IntVar(&opts.MaxNotReadyRetries, "max-not-ready-retries", 0, "give up after this many not ready pages in a row, 0 picks a default")
	f.StringVar(&opts.RowKinds, "row-kinds", "insert_only", "handling of non insert rows (insert_only|keep_all|strict)")

	f.StringToStringVar(&opts.StatementProperties, "property", nil, "statement property key=value")
	f.StringToStringVar(&opts.SessionProperties, "session-property", nil, "session property key=value")
	f.DurationVar(&opts.ExecutionTimeout, "execution-timeout", 0, "server side execution timeout")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, args []string) error {
	statements, err := opts.statements(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	fetchOpts, err := opts.fetchOptions(cmd)
	if err != nil {
		return err
	}

	if opts.Stream && strings.EqualFold(opts.Format, "arrow") {
		return errors.New("arrow output needs the complete result, drop --stream")
	}
	formatter, err := newFormatter(opts.Format, opts.Null)
	if err != nil {
		return err
	}
	chunkFormatter := formatter
	if opts.Stream {
		if strings.EqualFold(opts.Format, "json") {
			formatter = format.NewJSON(format.JSONWithLines())
		}
		chunkFormatter = newChunkFormatter(opts.Format, formatter)
	}

	out, err := newSink(opts.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer out.Close()

	if opts.cfg.Session.Properties == nil {
		opts.cfg.Session.Properties = map[string]string{}
	}
	for k, v := range opts.SessionProperties {
		opts.cfg.Session.Properties[k] = v
	}

	var stmtOpts []core.StatementOption
	if len(opts.StatementProperties) > 0 {
		stmtOpts = append(stmtOpts, core.WithStatementProperties(opts.StatementProperties))
	}
	if opts.ExecutionTimeout > 0 {
		stmtOpts = append(stmtOpts, core.WithExecutionTimeout(opts.ExecutionTimeout.Milliseconds()))
	}

	q := &query{
		opts:           opts,
		fetchOpts:      fetchOpts,
		formatter:      formatter,
		chunkFormatter: chunkFormatter,
		out:            out,
	}

	ctx := cmd.Context()
	return core.Use(ctx, opts.gw, func(s *core.Session) error {
		return s.ExecuteAll(statements, stmtOpts...).Sync(ctx, func(c *core.CompositeOperation) error {
			return q.run(ctx, c)
		})
	}, opts.sessionOptions()...)
}

func (o *QueryOptions) statements(args []string, stdin io.Reader) ([]string, error) {
	if o.File == "" {
		if len(args) == 0 {
			return nil, errors.New("no statements given")
		}
		return args, nil
	}
	if len(args) > 0 {
		return nil, errors.New("statements are given both as arguments and with --file")
	}

	var (
		b   []byte
		err error
	)
	if o.File == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(o.File)
	}
	if err != nil {
		return nil, fmt.Errorf("reading statements: %w", err)
	}

	statements := splitStatements(string(b))
	if len(statements) == 0 {
		return nil, fmt.Errorf("no statements in %s", o.File)
	}
	return statements, nil
}

// fetchOptions applies changed flags over the fetch section of the config.
func (o *QueryOptions) fetchOptions(cmd *cobra.Command) (*core.FetchOptions, error) {
	f := cmd.Flags()
	fetch := &o.cfg.Fetch

	if f.Changed("poll-interval") {
		fetch.PollIntervalSecs = &o.PollInterval
	}
	if f.Changed("max-poll") {
		fetch.MaxPollSecs = &o.MaxPoll
	}
	if f.Changed("no-max-poll") {
		fetch.NoMaxPoll = o.NoMaxPoll
	}
	if f.Changed("row-limit") {
		fetch.RowLimit = &o.RowLimit
	}
	if f.Changed("no-row-limit") {
		fetch.NoRowLimit = o.NoRowLimit
	}
	if f.Changed("max-not-ready-retries") {
		fetch.MaxNotReadyRetries = o.MaxNotReadyRetries
	}
	if f.Changed("row-kinds") {
		fetch.RowKinds = o.RowKinds
	}

	opts, err := o.cfg.FetchOptions()
	if err != nil {
		return nil, fmt.Errorf("cfg.FetchOptions: %w", err)
	}
	return opts, nil
}

// query runs the operations of one composite dispatch.
type query struct {
	opts           *QueryOptions
	fetchOpts      *core.FetchOptions
	formatter      core.Formatter
	chunkFormatter core.Formatter
	out            io.Writer
}

func (q *query) run(ctx context.Context, c *core.CompositeOperation) error {
	switch {
	case q.opts.Stream:
		return q.stream(ctx, c)
	case q.opts.Async || q.opts.CallLog != "":
		return q.calls(ctx, c)
	case q.opts.Parallel > 0:
		tables, err := q.parallel(ctx, c)
		if err != nil {
			return err
		}
		return q.write(tables)
	default:
		tables, err := c.FetchAll(ctx, q.fetchOpts)
		if err != nil {
			return fmt.Errorf("c.FetchAll: %w", err)
		}
		return q.write(tables)
	}
}

func (q *query) parallel(ctx context.Context, c *core.CompositeOperation) ([]*core.Table, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(q.opts.Parallel)

	tables := make([]*core.Table, c.Len())
	for i, op := range c.Operations() {
		g.Go(func() error {
			table, err := op.Fetch(ctx, q.fetchOpts)
			if err != nil {
				return fmt.Errorf("operation %d: %w", i, err)
			}
			tables[i] = table
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

func (q *query) calls(ctx context.Context, c *core.CompositeOperation) error {
	log := q.opts.log

	calls := make([]*core.Call, 0, c.Len())
	for _, op := range c.Operations() {
		calls = append(calls, op.FetchAsync(ctx, q.fetchOpts, func(state core.CallState, call *core.Call) {
			log.Debugf("call %s: %s", call.GetID(), state)
		}))
	}

	var errs []error
	for i, call := range calls {
		if _, err := call.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("operation %d: %w", i, err))
			continue
		}

		result, err := call.GetResult()
		if err != nil {
			return fmt.Errorf("call.GetResult: %w", err)
		}
		log.Info(summary(i, result.Table()))
		if err := writeResult(q.out, q.formatter, result, 0, -1); err != nil {
			return err
		}
	}

	if q.opts.CallLog != "" {
		if err := storeCallLog(q.opts.CallLog, calls); err != nil {
			log.Warnf("storing call log: %s", err)
		}
	}

	return errors.Join(errs...)
}

func (q *query) write(tables []*core.Table) error {
	for i, table := range tables {
		q.opts.log.Info(summary(i, table))

		result := new(core.Result)
		result.SetTable(table)
		if err := writeResult(q.out, q.formatter, result, 0, -1); err != nil {
			return err
		}
	}
	return nil
}

func (q *query) stream(ctx context.Context, c *core.CompositeOperation) error {
	for i, op := range c.Operations() {
		if err := q.streamOne(ctx, i, op); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

func (q *query) streamOne(ctx context.Context, index int, op *core.Operation) error {
	rows := builders.StreamOperation(ctx, op, q.fetchOpts, q.opts.log)
	defer rows.Close()

	chunkSize := q.opts.ChunkSize
	if chunkSize < 1 {
		chunkSize = 1
	}

	written := 0
	chunk := make([]core.Row, 0, chunkSize)
	flush := func() error {
		formatter := q.formatter
		if written > 0 {
			formatter = q.chunkFormatter
		}
		b, err := formatter.Format(rows.Header(), chunk, &core.FormatterOptions{
			Columns:    rows.Columns(),
			ChunkStart: written,
		})
		if err != nil {
			return fmt.Errorf("formatter.Format: %w", err)
		}
		if _, err := q.out.Write(b); err != nil {
			return fmt.Errorf("out.Write: %w", err)
		}
		written += len(chunk)
		chunk = chunk[:0]
		return nil
	}

	for rows.HasNext() {
		row, err := rows.Next()
		if err != nil {
			return err
		}
		chunk = append(chunk, row)
		if len(chunk) == chunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if len(chunk) > 0 || written == 0 {
		if err := flush(); err != nil {
			return err
		}
	}

	meta := rows.Meta()
	q.opts.log.Infof("statement %d: %d rows streamed, %d pages, stopped on %s, %d conversion warnings",
		index, written, meta.Pages, meta.Termination, len(rows.Warnings()))
	return nil
}
