package repository

import (
	"context"
	"fmt"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
)

// ErrOrderNotFound is returned when no order has the requested id.
var ErrOrderNotFound = fmt.Errorf("order %w", database.ErrNotFound)

var orderUpdates = database.NewUpdateBuilder(ordersTable, "id", orderColumns,
	"producto", "cantidad", "precio")

const (
	getOrderSQL = `
		SELECT ` + orderColumns + `
		FROM pedidos
		WHERE id = $1`

	listOrdersByUserSQL = `
		SELECT ` + orderColumns + `
		FROM pedidos
		WHERE usuario_id = $1
		ORDER BY id`

	deleteOrderSQL = `DELETE FROM pedidos WHERE id = $1`
)

// CreateOrder inserts an order for an existing user. A missing user is a
// foreign key violation, see database.IsForeignKeyViolation.
func (r *Repository) CreateOrder(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	stmt := createOrderStatement(in)

	rs, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return nil, wrap("create order", err)
	}
	rec, err := single(rs, stmt.Intent, ErrOrderNotFound)
	if err != nil {
		return nil, wrap("create order", err)
	}
	order, err := scanOrder(rec)
	if err != nil {
		return nil, wrap("create order", err)
	}

	r.metrics.IncOrderCreated()
	r.forward(ordersTable, model.ChangeInsert, order.ID)
	return &order, nil
}

func createOrderStatement(in model.NewOrder) database.Statement {
	return database.BuildInsert(ordersTable, orderColumns,
		database.Set("usuario_id", in.UserID),
		database.Set("producto", in.Product),
		database.Set("cantidad", in.EffectiveQuantity()),
		database.Set("precio", in.Price),
	)
}

// GetOrder retrieves an order by id.
func (r *Repository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	stmt := database.Statement{Intent: "get order", SQL: getOrderSQL, Args: []any{id}}

	rs, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return nil, wrap("get order", err)
	}
	rec, err := single(rs, stmt.Intent, ErrOrderNotFound)
	if err != nil {
		return nil, err
	}
	order, err := scanOrder(rec)
	if err != nil {
		return nil, wrap("get order", err)
	}
	return &order, nil
}

// ListOrdersByUser returns the orders of a user ordered by id. A user
// without orders, or no such user, gives an empty slice.
func (r *Repository) ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rs, err := r.db.Execute(ctx, database.Statement{
		Intent: "list orders by user",
		SQL:    listOrdersByUserSQL,
		Args:   []any{userID},
	})
	if err != nil {
		return nil, wrap("list orders by user", err)
	}

	orders := make([]model.Order, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		order, err := scanOrder(rs.Record(i))
		if err != nil {
			return nil, wrap("list orders by user", fmt.Errorf("row %d: %w", i, err))
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// UpdateOrder applies the non-nil fields of patch and returns the updated row.
func (r *Repository) UpdateOrder(ctx context.Context, id int64, patch model.OrderPatch) (*model.Order, error) {
	stmt, err := orderUpdates.Build(id,
		database.Optional("producto", patch.Product),
		database.Optional("cantidad", patch.Quantity),
		database.Optional("precio", patch.Price),
	)
	if err != nil {
		return nil, err
	}

	rs, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return nil, wrap("update order", err)
	}
	rec, err := single(rs, stmt.Intent, ErrOrderNotFound)
	if err != nil {
		return nil, err
	}
	order, err := scanOrder(rec)
	if err != nil {
		return nil, wrap("update order", err)
	}

	r.forward(ordersTable, model.ChangeUpdate, order.ID)
	return &order, nil
}

// DeleteOrder removes an order. A missing order is not an error.
func (r *Repository) DeleteOrder(ctx context.Context, id int64) (bool, error) {
	rs, err := r.db.Execute(ctx, database.Statement{
		Intent: "delete order",
		SQL:    deleteOrderSQL,
		Args:   []any{id},
	})
	if err != nil {
		return false, wrap("delete order", err)
	}

	if rs.RowsAffected > 0 {
		r.forward(ordersTable, model.ChangeDelete, id)
	}
	return true, nil
}

func scanOrder(rec *database.Record) (model.Order, error) {
	order := model.Order{
		ID:        rec.Int64("id"),
		UserID:    rec.Int64("usuario_id"),
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
