package repository

import (
	"context"
	"fmt"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
)

const (
	userWithOrdersSelect = `
		SELECT u.id, u.nombre, u.email, u.edad, u.activo, u.fecha_registro,
		       p.id AS pedido_id, p.producto, p.cantidad, p.precio, p.fecha_pedido
		FROM usuarios u
		LEFT JOIN pedidos p ON p.usuario_id = u.id`

	getUserWithOrdersSQL = userWithOrdersSelect + `
		WHERE u.id = $1
		ORDER BY p.id`

	listUsersWithOrdersSQL = userWithOrdersSelect + `
		ORDER BY u.id, p.id`
)

// userOrders nests a usuarios LEFT JOIN pedidos row-set.
var userOrders = database.Hydrator[model.User, model.Order]{
	ParentKey: "id",
	ChildKey:  "pedido_id",
	Parent:    scanUser,
	Child:     scanJoinedOrder,
}

// GetUserWithOrders returns a user with all of its orders. A user without
// orders has an empty Orders slice.
func (r *Repository) GetUserWithOrders(ctx context.Context, id int64) (*model.UserWithOrders, error) {
	rs, err := r.db.Execute(ctx, database.Statement{
		Intent: "get user with orders",
		SQL:    getUserWithOrdersSQL,
		Args:   []any{id},
	})
	if err != nil {
		return nil, wrap("get user with orders", err)
	}

	nested, err := userOrders.Hydrate(rs)
	if err != nil {
		return nil, wrap("get user with orders", err)
	}
	if len(nested) == 0 {
		return nil, ErrUserNotFound
	}

	return &model.UserWithOrders{User: nested[0].Parent, Orders: nested[0].Children}, nil
}

// ListUsersWithOrders returns every user with its orders, ordered by user id.
func (r *Repository) ListUsersWithOrders(ctx context.Context) ([]model.UserWithOrders, error) {
	rs, err := r.db.Execute(ctx, database.Statement{
		Intent: "list users with orders",
		SQL:    listUsersWithOrdersSQL,
	})
	if err != nil {
		return nil, wrap("list users with orders", err)
	}

	nested, err := userOrders.Hydrate(rs)
	if err != nil {
		return nil, wrap("list users with orders", err)
	}

	out := make([]model.UserWithOrders, 0, len(nested))
	for _, n := range nested {
		out = append(out, model.UserWithOrders{User: n.Parent, Orders: n.Children})
	}
	return out, nil
}

// scanJoinedOrder reads the pedidos side of a joined row.
func scanJoinedOrder(rec *database.Record) (model.Order, error) {
	order := model.Order{
		ID:        rec.Int64("pedido_id"),
		UserID:    rec.Int64("id"),
		Product:   rec.String("producto"),
		Quantity:  rec.Int("cantidad"),
		Price:     rec.Float64("precio"),
		OrderedAt: rec.Time("fecha_pedido"),
	}
	if err := rec.Err(); err != nil {
		return model.Order{}, fmt.Errorf("scan order: %w", err)
	}
	return order, nil
}
