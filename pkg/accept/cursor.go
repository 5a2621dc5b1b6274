package accept

import (
	"fmt"

	"github.com/leapstack-labs/leapdplyr/pkg/host"
)

// BatchSize is the number of rows fetched from the host per batch.
const BatchSize = 2048

// Collection holds a fully materialized result in fixed-size batches.
type Collection struct {
	batches [][][]any
	rows    int
}

// Append adds one row.
func (c *Collection) Append(row []any) {
	n := len(c.batches)
	if n == 0 || len(c.batches[n-1]) == BatchSize {
		c.batches = append(c.batches, make([][]any, 0, BatchSize))
		n++
	}
	c.batches[n-1] = append(c.batches[n-1], row)
	c.rows++
}

// Len returns the number of rows.
func (c *Collection) Len() int {
	return c.rows
}

// collect drains rows into a Collection and closes them.
func collect(rows *host.Rows) (_ *Collection, err error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	coll := &Collection{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		coll.Append(values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return coll, nil
}

// Cursor is a single forward scan over a Collection.
type Cursor struct {
	schema *host.Schema
	coll   *Collection
	batch  int
	offset int

	onDone func()
	done   bool
}

func newCursor(schema *host.Schema, coll *Collection, onDone func()) *Cursor {
	return &Cursor{schema: schema, coll: coll, onDone: onDone}
}

// Schema returns the column layout of the rows.
func (c *Cursor) Schema() *host.Schema {
	return c.schema
}

// Next returns up to limit rows (BatchSize when limit <= 0). It returns false
// once the collection is exhausted.
func (c *Cursor) Next(limit int) ([][]any, bool) {
	if limit <= 0 {
		limit = BatchSize
	}
	var out [][]any
	for len(out) < limit && c.batch < len(c.coll.batches) {
		b := c.coll.batches[c.batch]
		n := min(limit-len(out), len(b)-c.offset)
		out = append(out, b[c.offset:c.offset+n]...)
		c.offset += n
		if c.offset == len(b) {
			c.batch++
			c.offset = 0
		}
	}
	if len(out) == 0 {
		c.finish()
		return nil, false
	}
	return out, true
}

// All drains the remaining rows.
func (c *Cursor) All() [][]any {
	rows := make([][]any, 0, c.coll.Len())
	for {
		batch, ok := c.Next(BatchSize)
		if !ok {
			return rows
		}
		rows = append(rows, batch...)
	}
}

func (c *Cursor) finish() {
	if c.done {
		return
	}
	c.done = true
	if c.onDone != nil {
		c.onDone()
	}
}
