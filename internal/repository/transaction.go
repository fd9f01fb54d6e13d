package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
)

// CreateUserWithOrder inserts a user and its first order atomically. The
// order is always attached to the new user; order.UserID is ignored. If
// either insert fails neither is kept and the error is a
// *database.TransactionError naming the failed step.
func (r *Repository) CreateUserWithOrder(ctx context.Context, user model.NewUser, order model.NewOrder) (*model.UserOrder, error) {
	insertUser := createUserStatement(user)
	insertOrder := createOrderStatement(order)

	results, err := r.db.RunTransaction(ctx,
		database.Step{Statement: insertUser},
		database.Step{
			Statement: insertOrder,
			Bind: func(prior []*database.RowSet) ([]any, error) {
				userID, err := returnedID(prior[0])
				if err != nil {
					return nil, err
				}
				args := append([]any(nil), insertOrder.Args...)
				args[0] = userID
				return args, nil
			},
		},
	)
	if err != nil {
		return nil, wrap("create user with order", err)
	}

	created, err := scanUser(results[0].Record(0))
	if err != nil {
		return nil, wrap("create user with order", err)
	}
	first, err := scanOrder(results[1].Record(0))
	if err != nil {
		return nil, wrap("create user with order", err)
	}

	r.metrics.IncUserCreated()
	r.metrics.IncOrderCreated()
	r.forward(usersTable, model.ChangeInsert, created.ID)
	r.forward(ordersTable, model.ChangeInsert, first.ID)

	return &model.UserOrder{User: created, Order: first}, nil
}

// returnedID reads the id echoed by an INSERT ... RETURNING.
func returnedID(rs *database.RowSet) (int64, error) {
	if rs.Len() != 1 {
		return 0, fmt.Errorf("expected one returned row, got %d", rs.Len())
	}
	rec := rs.Record(0)
	id := rec.Int64("id")
	if err := rec.Err(); err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("returned id is zero")
	}
	return id, nil
}
