// Package repository provides database access layer.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/events"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/metrics"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
)

// Relations and the column lists echoed by RETURNING.
const (
	usersTable  = "usuarios"
	ordersTable = "pedidos"

	userColumns  = "id, nombre, email, edad, activo, fecha_registro"
	orderColumns = "id, usuario_id, producto, cantidad, precio, fecha_pedido"
)

// Repository provides database access methods.
type Repository struct {
	db      *database.Pool
	changes *events.Forwarder
	logger  *slog.Logger
	metrics metrics.Recorder
}

// New creates a Repository on db. A nil changes forwarder disables change
// forwarding.
func New(db *database.Pool, changes *events.Forwarder, logger *slog.Logger, recorder metrics.Recorder) *Repository {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:      db,
		changes: changes,
		logger:  logger.With("component", "repository"),
		metrics: recorder,
	}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// ServerVersion reports the version string of the connected server.
func (r *Repository) ServerVersion(ctx context.Context) (string, error) {
	v, err := r.db.ServerVersion(ctx)
	if err != nil {
		return "", wrap("server version", err)
	}
	return v, nil
}

// forward emits a change event for a committed write.
func (r *Repository) forward(table string, op model.ChangeOp, id int64) {
	if r.changes == nil {
		return
	}
	r.changes.Forward(events.NewChange(table, op, id))
}

// single returns the only record of rs. Zero rows is notFound; more than one
// is an integrity fault reported as a QueryError.
func single(rs *database.RowSet, intent string, notFound error) (*database.Record, error) {
	switch n := rs.Len(); n {
	case 0:
		return nil, notFound
	case 1:
		return rs.Record(0), nil
	default:
		return nil, &database.QueryError{
			Intent:  intent,
			Message: "expected at most one row, got " + strconv.Itoa(n),
		}
	}
}

func wrap(op string, err error) error {
	return fmt.Errorf("failed to %s: %w", op, err)
}
