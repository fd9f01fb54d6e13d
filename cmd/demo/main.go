// Package main walks through every repository operation against the
// database named by the environment. The schema must already exist. With
// REDIS_URL set, every write is forwarded to the change stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/config"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/events"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/metrics"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/repository"
)

// flushTimeout bounds the wait for changes still being published at exit.
const flushTimeout = 5 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := run(context.Background(), logger); err != nil {
		logger.Error("demo failed", "error", err)
		os.Exit(1)
	}
	logger.Info("demo completed")
}

// changeForwarder publishes the demo's writes to the change stream when
// REDIS_URL is set, so a running cmd/api logs them. The returned stop
// flushes pending changes and closes the client.
func changeForwarder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*events.Forwarder, func(), error) {
	if !cfg.ChangeForwardingEnabled() {
		logger.Info("change forwarding disabled")
		return nil, func() {}, nil
	}

	client, err := events.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	forwarder := events.NewForwarder(events.NewStreamPublisher(client, cfg.ChangeStream), logger, nil)
	logger.Info("forwarding changes", "stream", cfg.ChangeStream)

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := forwarder.Shutdown(shutdownCtx); err != nil {
			logger.Warn("pending changes not flushed", "error", err)
		}
		_ = client.Close()
	}
	return forwarder, stop, nil
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := database.Open(ctx, database.Options{
		URL:              cfg.ConnString(),
		MaxConns:         cfg.DB.MaxConns,
		MinConns:         cfg.DB.MinConns,
		AcquireTimeout:   cfg.DB.AcquireTimeout,
		StatementTimeout: cfg.DB.StatementTimeout,
	}, logger, metrics.NewNoop())
	if err != nil {
		return err
	}
	defer pool.Close()

	forwarder, stop, err := changeForwarder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stop()

	repo := repository.New(pool, forwarder, logger, nil)

	version, err := repo.ServerVersion(ctx)
	if err != nil {
		return err
	}
	logger.Info("connected", "version", version)

	// Emails are unique in the schema, so every run gets its own.
	suffix := time.Now().UnixNano()

	user, err := repo.CreateUser(ctx, model.NewUser{
		Name:  "María García",
		Email: fmt.Sprintf("maria+%d@email.com", suffix),
		Age:   30,
	})
	if err != nil {
		return err
	}
	logger.Info("created user", "id", user.ID, "registered_at", user.RegisteredAt)

	users, err := repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users[:min(3, len(users))] {
		logger.Info("user", "name", u.Name, "email", u.Email)
	}

	fetched, err := repo.GetUser(ctx, user.ID)
	if err != nil {
		return err
	}
	logger.Info("fetched user", "id", fetched.ID, "name", fetched.Name)

	active, err := repo.ListActiveUsers(ctx, repository.DefaultMinimumAge)
	if err != nil {
		return err
	}
	logger.Info("active adult users", "count", len(active))

	name := "María Fernanda García"
	updated, err := repo.UpdateUser(ctx, user.ID, model.UserPatch{Name: &name})
	if err != nil {
		return err
	}
	logger.Info("updated user", "id", updated.ID, "name", updated.Name)

	if _, err := repo.CreateOrder(ctx, model.NewOrder{UserID: user.ID, Product: "Mouse", Price: 25.5}); err != nil {
		return err
	}

	withOrders, err := repo.GetUserWithOrders(ctx, user.ID)
	if err != nil {
		return err
	}
	for _, o := range withOrders.Orders {
		logger.Info("order", "user", withOrders.Name, "product", o.Product, "quantity", o.Quantity, "price", o.Price)
	}

	byAge, err := repo.CountUsersByAge(ctx)
	if err != nil {
		return err
	}
	for _, c := range byAge {
		logger.Info("users by age", "age", c.Age, "count", c.Count)
	}

	created, err := repo.CreateUserWithOrder(ctx,
		model.NewUser{Name: "Carlos López", Email: fmt.Sprintf("carlos+%d@email.com", suffix), Age: 28},
		model.NewOrder{Product: "Laptop", Price: 1500},
	)
	if err != nil {
		return err
	}
	logger.Info("created user with order", "user_id", created.User.ID, "order_id", created.Order.ID)

	orders, err := repo.CallFunction(ctx, "contar_pedidos", created.User.ID)
	if err != nil {
		return err
	}
	logger.Info("called function", "name", "contar_pedidos", "rows", orders.Len())

	for _, id := range []int64{user.ID, user.ID, created.User.ID} {
		deleted, err := repo.DeleteUser(ctx, id)
		if err != nil {
			return err
		}
		logger.Info("deleted user", "id", id, "removed", deleted)
	}

	if _, err := repo.GetUser(ctx, user.ID); !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("expected deleted user to be gone, got %v", err)
	}
	logger.Info("deleted user is gone", "id", user.ID)

	return nil
}
