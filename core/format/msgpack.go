package format

import (
	"bytes"
	"fmt"

	"github.com/neovim/go-client/msgpack"

	"github.com/resinkit/resinkit-go/core"
)

var _ core.Formatter = (*MsgPack)(nil)

// MsgPack encodes a chunk of rows with its header and column types.
type MsgPack struct{}

func NewMsgPack() *MsgPack {
	return &MsgPack{}
}

type msgpackColumn struct {
	Name        string `msgpack:"name"`
	LogicalType string `msgpack:"logical_type"`
	Nullable    bool   `msgpack:"nullable"`
}

type msgpackChunk struct {
	Header     []string        `msgpack:"header"`
	Columns    []msgpackColumn `msgpack:"columns"`
	ChunkStart int             `msgpack:"chunk_start"`
	Rows       [][]any         `msgpack:"rows"`
}

func (mf *MsgPack) Format(header core.Header, rows []core.Row, opts *core.FormatterOptions) ([]byte, error) {
	chunk := &msgpackChunk{
		Header:  header,
		Columns: []msgpackColumn{},
		Rows:    make([][]any, 0, len(rows)),
	}
	if opts != nil {
		chunk.ChunkStart = opts.ChunkStart
		for _, col := range opts.Columns {
			chunk.Columns = append(chunk.Columns, msgpackColumn{
				Name:        col.Name,
				LogicalType: col.LogicalType,
				Nullable:    col.Nullable,
			})
		}
	}

	for _, row := range rows {
		values := make([]any, len(row))
		for i, val := range row {
			values[i] = plain(val)
		}
		chunk.Rows = append(chunk.Rows, values)
	}

	var b bytes.Buffer
	if err := msgpack.NewEncoder(&b).Encode(chunk); err != nil {
		return nil, fmt.Errorf("enc.Encode: %w", err)
	}

	return b.Bytes(), nil
}
