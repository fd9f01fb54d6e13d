package dbtest

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rows is a pgx.Rows over in-memory values.
type rows struct {
	fields []pgconn.FieldDescription
	values [][]any
	tag    pgconn.CommandTag
	pos    int
	closed bool
}

func newRows(columns []string, values [][]any, tag string) *rows {
	fields := make([]pgconn.FieldDescription, len(columns))
	for i, name := range columns {
		fields[i] = pgconn.FieldDescription{Name: name}
	}
	return &rows{fields: fields, values: values, tag: pgconn.NewCommandTag(tag), pos: -1}
}

func (r *rows) Close() { r.closed = true }

func (r *rows) Err() error { return nil }

func (r *rows) CommandTag() pgconn.CommandTag { return r.tag }

func (r *rows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }

func (r *rows) Next() bool {
	if r.closed || r.pos+1 >= len(r.values) {
		r.closed = true
		return false
	}
	r.pos++
	return true
}

func (r *rows) Scan(dest ...any) error {
	return errors.New("dbtest: Scan is not supported, use Values")
}

func (r *rows) Values() ([]any, error) {
	if r.pos < 0 || r.pos >= len(r.values) {
		return nil, errors.New("dbtest: no current row")
	}
	return r.values[r.pos], nil
}

func (r *rows) RawValues() [][]byte { return nil }

func (r *rows) Conn() *pgx.Conn { return nil }
