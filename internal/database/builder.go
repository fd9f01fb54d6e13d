package database

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Field is one candidate column value. Absent fields leave the column alone.
type Field struct {
	Column  string
	Value   any
	Present bool
}

// Set returns a present field.
func Set(column string, value any) Field {
	return Field{Column: column, Value: value, Present: true}
}

// Optional returns a field that is present only when value is non-nil.
func Optional[T any](column string, value *T) Field {
	if value == nil {
		return Field{Column: column}
	}
	return Field{Column: column, Value: *value, Present: true}
}

// UpdateBuilder builds UPDATE statements over a fixed, ordered set of
// updatable columns. Assignments and arguments follow the declared column
// order, whatever order the fields arrive in, and the row key is always the
// last argument.
type UpdateBuilder struct {
	table     string
	key       string
	returning string
	columns   []string
	declared  map[string]struct{}
}

// NewUpdateBuilder declares the updatable columns of table. returning may be
// empty.
func NewUpdateBuilder(table, key, returning string, columns ...string) *UpdateBuilder {
	declared := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		declared[c] = struct{}{}
	}
	return &UpdateBuilder{
		table:     table,
		key:       key,
		returning: returning,
		columns:   columns,
		declared:  declared,
	}
}

// Columns returns the declared columns in order.
func (b *UpdateBuilder) Columns() []string {
	return append([]string(nil), b.columns...)
}

// Build returns the UPDATE statement for the present fields. It fails with
// ErrNoFieldsProvided, without producing a statement, when none is present.
func (b *UpdateBuilder) Build(key any, fields ...Field) (Statement, error) {
	present := make(map[string]any, len(fields))
	for _, f := range fields {
		if _, ok := b.declared[f.Column]; !ok {
			return Statement{}, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, b.table, f.Column)
		}
		if f.Present {
			present[f.Column] = f.Value
		}
	}
	if len(present) == 0 {
		return Statement{}, ErrNoFieldsProvided
	}

	assignments := make([]string, 0, len(present))
	args := make([]any, 0, len(present)+1)
	for _, column := range b.columns {
		value, ok := present[column]
		if !ok {
			continue
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", quote(column), len(args)))
	}
	args = append(args, key)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quote(b.table), strings.Join(assignments, ", "), quote(b.key), len(args))
	if b.returning != "" {
		sql += " RETURNING " + b.returning
	}

	return Statement{
		Intent: "update " + b.table,
		SQL:    sql,
		Args:   args,
	}, nil
}

// BuildInsert returns an INSERT for the present fields, in the order given,
// leaving absent columns to their store defaults.
func BuildInsert(table, returning string, fields ...Field) Statement {
	columns := make([]string, 0, len(fields))
	placeholders := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		if !f.Present {
			continue
		}
		args = append(args, f.Value)
		columns = append(columns, quote(f.Column))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	var sql string
	if len(columns) == 0 {
		sql = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quote(table))
	} else {
		sql = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(table), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	}
	if returning != "" {
		sql += " RETURNING " + returning
	}

	return Statement{
		Intent: "insert " + table,
		SQL:    sql,
		Args:   args,
	}
}

func quote(identifier string) string {
	return pgx.Identifier{identifier}.Sanitize()
}
