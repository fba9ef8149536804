package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/resinkit/resinkit-go/core"
	"github.com/resinkit/resinkit-go/core/format"
)

// Formats lists the values accepted by --format.
var Formats = []string{"table", "json", "csv", "msgpack", "arrow"}

func newFormatter(name, null string) (core.Formatter, error) {
	switch strings.ToLower(name) {
	case "table":
		return format.NewTable(format.TableWithNull(null)), nil
	case "json":
		return format.NewJSON(), nil
	case "csv":
		return format.NewCSV(), nil
	case "msgpack":
		return format.NewMsgPack(), nil
	case "arrow":
		return format.NewArrow(), nil
	default:
		return nil, fmt.Errorf("invalid format %q: must be one of %v", name, Formats)
	}
}

// newChunkFormatter returns the formatter for chunks after the first one
// of a streamed result, so the chunks join into one document.
func newChunkFormatter(name string, first core.Formatter) core.Formatter {
	switch strings.ToLower(name) {
	case "csv":
		return format.NewCSV(format.CSVWithoutHeader())
	case "json":
		return format.NewJSON(format.JSONWithLines())
	default:
		return first
	}
}

// sink is where formatted results go: stdout or a file.
type sink struct {
	w     io.Writer
	close func() error
	name  string
}

func newSink(path string, stdout io.Writer) (*sink, error) {
	if path == "" || path == "-" {
		return &sink{
			w:     stdout,
			close: func() error { return nil },
			name:  "stdout",
		}, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("os.Create: %w", err)
	}
	return &sink{
		w:     file,
		close: file.Close,
		name:  path,
	}, nil
}

func (s *sink) Write(b []byte) (int, error) {
	return s.w.Write(b)
}

func (s *sink) Close() error {
	return s.close()
}

// writeResult formats the rows of result between from and to.
func writeResult(w io.Writer, formatter core.Formatter, result *core.Result, from, to int) error {
	b, err := result.Format(formatter, from, to)
	if err != nil {
		return fmt.Errorf("result.Format: %w", err)
	}

	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("w.Write: %w", err)
	}
	return nil
}

// summary is the one line written to the log after each statement.
func summary(index int, table *core.Table) string {
	meta := table.Meta
	if meta == nil {
		meta = &core.Meta{}
	}

	s := fmt.Sprintf("statement %d: %d rows, %d pages, stopped on %s after %s",
		index, table.Len(), meta.Pages, meta.Termination, meta.Elapsed)
	if meta.NotReadyRetries > 0 {
		s += fmt.Sprintf(", %d not ready retries", meta.NotReadyRetries)
	}
	for kind, n := range meta.Dropped {
		s += fmt.Sprintf(", dropped %d %s", n, kind)
	}
	if len(table.Warnings) > 0 {
		s += fmt.Sprintf(", %d conversion warnings", len(table.Warnings))
	}
	return s
}
