package database

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Statement is a parameterized SQL statement. Every value goes in Args and is
// bound to a $n placeholder; SQL never contains caller data.
type Statement struct {
	// Intent names the operation in logs and errors.
	Intent string
	SQL    string
	Args   []any
}

// RowSet is the uniform result of a statement: ordered rows of column values.
type RowSet struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64

	index map[string]int
}

// NewRowSet builds a RowSet from column names and row values.
func NewRowSet(columns []string, rows ...[]any) *RowSet {
	if rows == nil {
		rows = make([][]any, 0)
	}
	rs := &RowSet{Columns: columns, Rows: rows}
	rs.buildIndex()
	return rs
}

func (rs *RowSet) buildIndex() {
	rs.index = make(map[string]int, len(rs.Columns))
	for i, name := range rs.Columns {
		// First occurrence wins for duplicated names.
		if _, ok := rs.index[name]; !ok {
			rs.index[name] = i
		}
	}
}

// Len returns the number of rows.
func (rs *RowSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// HasColumn reports whether the result has a column named name.
func (rs *RowSet) HasColumn(name string) bool {
	if rs.index == nil {
		rs.buildIndex()
	}
	_, ok := rs.index[name]
	return ok
}

// Record returns an accessor for row i.
func (rs *RowSet) Record(i int) *Record {
	if rs.index == nil {
		rs.buildIndex()
	}
	return &Record{rs: rs, values: rs.Rows[i]}
}

// Record reads typed column values from one row. The first conversion error
// is kept and reported by Err; later reads return zero values.
type Record struct {
	rs     *RowSet
	values []any
	err    error
}

// Err returns the first error encountered while reading the record.
func (r *Record) Err() error {
	return r.err
}

// Value returns the raw value of column, nil for NULL or a missing column.
func (r *Record) Value(column string) any {
	i, ok := r.rs.index[column]
	if !ok {
		return nil
	}
	return r.values[i]
}

// IsNull reports whether column is NULL or absent.
func (r *Record) IsNull(column string) bool {
	i, ok := r.rs.index[column]
	return !ok || r.values[i] == nil
}

// Int64 reads an integer column.
func (r *Record) Int64(column string) int64 {
	v, ok := r.lookup(column)
	if !ok {
		return 0
	}
	n, err := toInt64(v)
	if err != nil {
		r.setErr(column, err)
	}
	return n
}

// Int reads an integer column into an int.
func (r *Record) Int(column string) int {
	return int(r.Int64(column))
}

// Float64 reads a floating point or numeric column.
func (r *Record) Float64(column string) float64 {
	v, ok := r.lookup(column)
	if !ok {
		return 0
	}
	f, err := toFloat64(v)
	if err != nil {
		r.setErr(column, err)
	}
	return f
}

// String reads a text column.
func (r *Record) String(column string) string {
	v, ok := r.lookup(column)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		r.setErr(column, fmt.Errorf("cannot read %T as string", v))
		return ""
	}
}

// Bool reads a boolean column.
func (r *Record) Bool(column string) bool {
	v, ok := r.lookup(column)
	if !ok {
		return false
	}
	b, isBool := v.(bool)
	if !isBool {
		r.setErr(column, fmt.Errorf("cannot read %T as bool", v))
	}
	return b
}

// Time reads a timestamp column.
func (r *Record) Time(column string) time.Time {
	v, ok := r.lookup(column)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case pgtype.Timestamptz:
		return t.Time
	case pgtype.Timestamp:
		return t.Time
	default:
		r.setErr(column, fmt.Errorf("cannot read %T as time", v))
		return time.Time{}
	}
}

// lookup returns the non-NULL value of column. A missing column or NULL
// value sets the record error.
func (r *Record) lookup(column string) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	i, ok := r.rs.index[column]
	if !ok {
		r.err = fmt.Errorf("column %q not in result", column)
		return nil, false
	}
	if r.values[i] == nil {
		r.err = fmt.Errorf("column %q is null", column)
		return nil, false
	}
	return r.values[i], true
}

func (r *Record) setErr(column string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("column %q: %w", column, err)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case pgtype.Numeric:
		i, err := n.Int64Value()
		if err != nil {
			return 0, err
		}
		return i.Int64, nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("cannot read %T as integer", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case pgtype.Numeric:
		f, err := n.Float64Value()
		if err != nil {
			return 0, err
		}
		return f.Float64, nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, fmt.Errorf("cannot read %T as float", v)
		}
		return float64(i), nil
	}
}
