package core

import (
	"fmt"
	"sync"
)

var ErrInvalidRange = func(from, to int) error { return fmt.Errorf("invalid selection range: %d ... %d", from, to) }

// Result is the cached form of a fetched table with range access.
type Result struct {
	table *Table
	mu    sync.RWMutex
}

// SetTable sets the table to result.
// This can be done only once!
func (cr *Result) SetTable(table *Table) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.table != nil {
		return
	}
	cr.table = table
}

func (cr *Result) Wipe() {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	cr.table = nil
}

func (cr *Result) Format(formatter Formatter, from, to int) ([]byte, error) {
	rows, fromAdjusted, _, err := cr.getRows(from, to)
	if err != nil {
		return nil, fmt.Errorf("cr.getRows: %w", err)
	}

	opts := &FormatterOptions{
		Columns:    cr.Columns(),
		ChunkStart: fromAdjusted,
	}

	f, err := formatter.Format(cr.Header(), rows, opts)
	if err != nil {
		return nil, fmt.Errorf("formatter.Format: %w", err)
	}

	return f, nil
}

func (cr *Result) Len() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.table == nil {
		return 0
	}
	return len(cr.table.Rows)
}

func (cr *Result) IsEmpty() bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	return cr.table == nil
}

func (cr *Result) Table() *Table {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	return cr.table
}

func (cr *Result) Header() Header {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.table == nil {
		return Header{}
	}
	return cr.table.Header()
}

func (cr *Result) Columns() []*Column {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.table == nil {
		return nil
	}
	return cr.table.Columns
}

func (cr *Result) Meta() *Meta {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.table == nil {
		return &Meta{}
	}
	return cr.table.Meta
}

func (cr *Result) Rows(from, to int) ([]Row, error) {
	rows, _, _, err := cr.getRows(from, to)
	return rows, err
}

// getRows returns the row range and adjusted from-to values.
// Negative indexes count from the end, -1 being one past the last row.
func (cr *Result) getRows(from, to int) (rows []Row, rangeFrom, rangeTo int, err error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	// validation
	if (from < 0 && to < 0) || (from >= 0 && to >= 0) {
		if from > to {
			return nil, 0, 0, ErrInvalidRange(from, to)
		}
	}
	// undefined -> error
	if from < 0 && to >= 0 {
		return nil, 0, 0, ErrInvalidRange(from, to)
	}

	var all []Row
	if cr.table != nil {
		all = cr.table.Rows
	}

	// calculate range
	length := len(all)
	if from < 0 {
		from += length + 1
		if from < 0 {
			from = 0
		}
	}
	if to < 0 {
		to += length + 1
		if to < 0 {
			to = 0
		}
	}

	if from > length {
		from = length
	}
	if to > length {
		to = length
	}

	return all[from:to], from, to, nil
}
