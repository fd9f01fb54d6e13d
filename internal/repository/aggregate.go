package repository

import (
	"context"
	"fmt"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
)

// CountUsersByAge returns how many users there are of each age, youngest first.
func (r *Repository) CountUsersByAge(ctx context.Context) ([]model.AgeCount, error) {
	rs, err := r.db.Execute(ctx, database.Statement{
		Intent: "count users by age",
		SQL:    `SELECT edad FROM usuarios`,
	})
	if err != nil {
		return nil, wrap("count users by age", err)
	}

	counts, err := database.CountBy(rs, "edad")
	if err != nil {
		return nil, wrap("count users by age", err)
	}

	out := make([]model.AgeCount, 0, len(counts))
	for _, kc := range counts {
		age, ok := kc.Key.(int64)
		if !ok {
			return nil, fmt.Errorf("failed to count users by age: unexpected age %v (%T)", kc.Key, kc.Key)
		}
		out = append(out, model.AgeCount{Age: int(age), Count: kc.Count})
	}
	return out, nil
}

// CountOrdersByUser returns how many orders each user owns, by user id.
// Users without orders are not listed.
func (r *Repository) CountOrdersByUser(ctx context.Context) ([]model.OrderCount, error) {
	rs, err := r.db.Execute(ctx, database.Statement{
		Intent: "count orders by user",
		SQL:    `SELECT usuario_id FROM pedidos`,
	})
	if err != nil {
		return nil, wrap("count orders by user", err)
	}

	counts, err := database.CountBy(rs, "usuario_id")
	if err != nil {
		return nil, wrap("count orders by user", err)
	}

	out := make([]model.OrderCount, 0, len(counts))
	for _, kc := range counts {
		userID, ok := kc.Key.(int64)
		if !ok {
			return nil, fmt.Errorf("failed to count orders by user: unexpected user id %v (%T)", kc.Key, kc.Key)
		}
		out = append(out, model.OrderCount{UserID: userID, Count: kc.Count})
	}
	return out, nil
}
