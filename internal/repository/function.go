package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
)

// ErrInvalidFunctionName is returned for an empty or malformed function name.
var ErrInvalidFunctionName = errors.New("invalid function name")

// CallFunction calls a stored function and returns its result rows. name may
// be schema qualified ("public.contar_pedidos"); it is quoted as an
// identifier and every argument is bound.
func (r *Repository) CallFunction(ctx context.Context, name string, args ...any) (*database.RowSet, error) {
	stmt, err := functionCall(name, args)
	if err != nil {
		return nil, err
	}

	rs, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return nil, wrap("call "+name, err)
	}
	return rs, nil
}

func functionCall(name string, args []any) (database.Statement, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return database.Statement{}, fmt.Errorf("%w: %q", ErrInvalidFunctionName, name)
	}
	for _, p := range parts {
		if p == "" {
			return database.Statement{}, fmt.Errorf("%w: %q", ErrInvalidFunctionName, name)
		}
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return database.Statement{
		Intent: "call " + name,
		SQL: fmt.Sprintf("SELECT * FROM %s(%s)",
			pgx.Identifier(parts).Sanitize(), strings.Join(placeholders, ", ")),
		Args: args,
	}, nil
}
