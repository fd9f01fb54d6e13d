//go:build integration

package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/testutil"
)

func newIntegrationRepo(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	sqlDB := testutil.OpenSQL(t, dbURL)
	unlock, err := testutil.AcquireDBLock(ctx, sqlDB)
	require.NoError(t, err, "acquire db lock")
	t.Cleanup(func() { _ = unlock() })

	require.NoError(t, testutil.ResetSchema(sqlDB))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool, err := database.Open(ctx, database.Options{
		URL:            dbURL,
		MaxConns:       4,
		AcquireTimeout: 5 * time.Second,
	}, logger, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return ctx, New(pool, nil, logger, nil)
}

func TestIntegration_CreateThenGet(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)

	created, err := repo.CreateUser(ctx, testutil.NewTestUser(t, "ana", 28))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.RegisteredAt.IsZero())
	assert.True(t, created.Active, "activo defaults to true")

	got, err := repo.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Email, got.Email)
	assert.True(t, created.RegisteredAt.Equal(got.RegisteredAt))
}

func TestIntegration_DeleteScenario(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)

	ana, err := repo.CreateUser(ctx, model.NewUser{Name: "Ana", Email: "ana@example.com", Age: 28})
	require.NoError(t, err)

	ok, err := repo.DeleteUser(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeleteUser(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, ok, "deleting again still succeeds")

	_, err = repo.GetUser(ctx, ana.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestIntegration_UpdateUser(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)

	u, err := repo.CreateUser(ctx, testutil.NewTestUser(t, "luis", 17))
	require.NoError(t, err)

	age := 18
	updated, err := repo.UpdateUser(ctx, u.ID, model.UserPatch{Age: &age})
	require.NoError(t, err)
	assert.Equal(t, 18, updated.Age)
	assert.Equal(t, u.Name, updated.Name)

	_, err = repo.UpdateUser(ctx, u.ID, model.UserPatch{})
	assert.ErrorIs(t, err, database.ErrNoFieldsProvided)

	_, err = repo.UpdateUser(ctx, u.ID+1000, model.UserPatch{Age: &age})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestIntegration_ListActiveUsers(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)

	inactive := false
	_, err := repo.CreateUser(ctx, testutil.NewTestUser(t, "menor", 16))
	require.NoError(t, err)
	off := testutil.NewTestUser(t, "inactivo", 40)
	off.Active = &inactive
	_, err = repo.CreateUser(ctx, off)
	require.NoError(t, err)
	adult, err := repo.CreateUser(ctx, testutil.NewTestUser(t, "adulta", 30))
	require.NoError(t, err)

	users, err := repo.ListActiveUsers(ctx, DefaultMinimumAge)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, adult.ID, users[0].ID)
}

func TestIntegration_UniqueEmail(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)

	in := testutil.NewTestUser(t, "dup", 30)
	_, err := repo.CreateUser(ctx, in)
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, in)
	assert.ErrorIs(t, err, database.ErrQueryFailure)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestIntegration_TransactionAtomicity(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)

	before, err := repo.ListUsers(ctx)
	require.NoError(t, err)

	// A negative price violates the pedidos check constraint in step two.
	_, err = repo.CreateUserWithOrder(ctx,
		testutil.NewTestUser(t, "atomica", 25),
		model.NewOrder{Product: "Libro", Quantity: 1, Price: -5},
	)
	require.Error(t, err)

	var txErr *database.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, 1, txErr.StepIndex)

	after, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "the user insert must not survive")

	created, err := repo.CreateUserWithOrder(ctx,
		testutil.NewTestUser(t, "atomica", 25),
		model.NewOrder{Product: "Libro", Price: 12.5},
	)
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, created.Order.UserID)
	assert.Equal(t, 1, created.Order.Quantity)
	assert.InDelta(t, 12.5, created.Order.Price, 1e-9)
}

func TestIntegration_Hydration(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)

	lonely, err := repo.CreateUser(ctx, testutil.NewTestUser(t, "sin-pedidos", 22))
	require.NoError(t, err)

	got, err := repo.GetUserWithOrders(ctx, lonely.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Orders)
	assert.Empty(t, got.Orders)

	buyer, err := repo.CreateUser(ctx, testutil.NewTestUser(t, "compradora", 33))
	require.NoError(t, err)
	for _, product := range []string{"Mesa", "Silla", "Lámpara"} {
		_, err := repo.CreateOrder(ctx, testutil.NewTestOrder(t, buyer.ID, product))
		require.NoError(t, err)
	}

	got, err = repo.GetUserWithOrders(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, got.Orders, 3)
	assert.Equal(t, "Mesa", got.Orders[0].Product)

	all, err := repo.ListUsersWithOrders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Empty(t, all[0].Orders)
	assert.Len(t, all[1].Orders, 3)

	_, err = repo.GetUserWithOrders(ctx, buyer.ID+1000)
	assert.ErrorIs(t, err, ErrUserNotFound)

	n, err := repo.CallFunction(ctx, "contar_pedidos", buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n.Record(0).Int64("contar_pedidos"))

	counts, err := repo.CountOrdersByUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.OrderCount{{UserID: buyer.ID, Count: 3}}, counts)

	ok, err := repo.DeleteUser(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	orders, err := repo.ListOrdersByUser(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, orders, "orders are removed with their user")
}

func TestIntegration_CountUsersByAge(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)

	for _, age := range []int{20, 20, 25, 30, 30} {
		_, err := repo.CreateUser(ctx, testutil.NewTestUser(t, "edad", age))
		require.NoError(t, err)
	}

	got, err := repo.CountUsersByAge(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.AgeCount{{Age: 20, Count: 2}, {Age: 25, Count: 1}, {Age: 30, Count: 2}}, got)
}

func TestIntegration_GetUsersByIDs(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)

	a, err := repo.CreateUser(ctx, testutil.NewTestUser(t, "a", 20))
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, testutil.NewTestUser(t, "b", 21))
	require.NoError(t, err)
	c, err := repo.CreateUser(ctx, testutil.NewTestUser(t, "c", 22))
	require.NoError(t, err)

	users, err := repo.GetUsersByIDs(ctx, []int64{c.ID, a.ID, 999999})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a.ID, users[0].ID)
	assert.Equal(t, c.ID, users[1].ID)
}

func TestIntegration_ServerVersion(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)

	v, err := repo.ServerVersion(ctx)
	require.NoError(t, err)
	assert.Contains(t, v, "PostgreSQL")
}
