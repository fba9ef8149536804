package core_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resinkit/resinkit-go/core"
)

type chunkFormatter struct{}

func (chunkFormatter) Format(header core.Header, rows []core.Row, opts *core.FormatterOptions) ([]byte, error) {
	return []byte(strconv.Itoa(opts.ChunkStart) + ":" + strconv.Itoa(len(rows)) + ":" + header[0]), nil
}

func newRows(from, to int) []core.Row {
	var rows []core.Row
	for i := from; i < to; i++ {
		rows = append(rows, core.Row{i, strconv.Itoa(i)})
	}
	return rows
}

func TestResult(t *testing.T) {
	numOfRows := 10

	result := new(core.Result)
	result.SetTable(&core.Table{
		Columns: []*core.Column{{Name: "n"}, {Name: "s"}},
		Rows:    newRows(0, numOfRows),
	})

	testCases := []struct {
		name          string
		from          int
		to            int
		expectedRows  []core.Row
		expectedError error
	}{
		{
			name:         "get all",
			from:         0,
			to:           -1,
			expectedRows: newRows(0, numOfRows),
		},
		{
			name:         "get basic range",
			from:         0,
			to:           3,
			expectedRows: newRows(0, 3),
		},
		{
			name:         "get last 2",
			from:         -3,
			to:           -1,
			expectedRows: newRows(numOfRows-2, numOfRows),
		},
		{
			name:         "get only one",
			from:         0,
			to:           1,
			expectedRows: newRows(0, 1),
		},
		{
			name:         "range past the end",
			from:         8,
			to:           20,
			expectedRows: newRows(8, numOfRows),
		},
		{
			name:          "invalid range",
			from:          5,
			to:            1,
			expectedError: core.ErrInvalidRange(5, 1),
		},
		{
			name:          "invalid range (even if 10 can be higher than -1, its undefined and should fail)",
			from:          -5,
			to:            10,
			expectedError: core.ErrInvalidRange(-5, 10),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)

			rows, err := result.Rows(tc.from, tc.to)
			if tc.expectedError != nil {
				r.EqualError(err, tc.expectedError.Error())
				return
			}
			r.NoError(err)
			r.Equal(tc.expectedRows, rows)
		})
	}
}

func TestResult_SetOnce(t *testing.T) {
	r := require.New(t)

	result := new(core.Result)
	r.True(result.IsEmpty())
	r.Equal(core.Header{}, result.Header())

	first := &core.Table{Rows: newRows(0, 2)}
	result.SetTable(first)
	result.SetTable(&core.Table{Rows: newRows(0, 5)})

	r.Equal(first, result.Table())
	r.Equal(2, result.Len())

	result.Wipe()
	r.True(result.IsEmpty())
	r.Equal(0, result.Len())
}

func TestResult_Format(t *testing.T) {
	r := require.New(t)

	result := new(core.Result)
	result.SetTable(&core.Table{
		Columns: []*core.Column{{Name: "n"}},
		Rows:    newRows(0, 10),
	})

	out, err := result.Format(chunkFormatter{}, -4, -1)
	r.NoError(err)
	r.Equal("7:3:n", string(out))
}
