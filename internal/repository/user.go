package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
)

// DefaultMinimumAge is the adult threshold callers usually pass to
// ListActiveUsers.
const DefaultMinimumAge = 18

// ErrUserNotFound is returned when no user has the requested id.
var ErrUserNotFound = fmt.Errorf("user %w", database.ErrNotFound)

var userUpdates = database.NewUpdateBuilder(usersTable, "id", userColumns,
	"nombre", "email", "edad", "activo")

const (
	listUsersSQL = `
		SELECT ` + userColumns + `
		FROM usuarios
		ORDER BY id`

	getUserSQL = `
		SELECT ` + userColumns + `
		FROM usuarios
		WHERE id = $1`

	listActiveUsersSQL = `
		SELECT ` + userColumns + `
		FROM usuarios
		WHERE activo = TRUE AND edad >= $1
		ORDER BY fecha_registro DESC`

	getUsersByIDsSQL = `
		SELECT ` + userColumns + `
		FROM usuarios
		WHERE id = ANY($1)
		ORDER BY id`

	deleteUserSQL = `DELETE FROM usuarios WHERE id = $1`
)

// CreateUser inserts a user and returns the stored row. An unset Active is
// left to the column default.
func (r *Repository) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	stmt := createUserStatement(in)

	rs, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return nil, wrap("create user", err)
	}
	rec, err := single(rs, stmt.Intent, ErrUserNotFound)
	if err != nil {
		return nil, wrap("create user", err)
	}
	user, err := scanUser(rec)
	if err != nil {
		return nil, wrap("create user", err)
	}

	r.metrics.IncUserCreated()
	r.forward(usersTable, model.ChangeInsert, user.ID)
	return &user, nil
}

func createUserStatement(in model.NewUser) database.Statement {
	return database.BuildInsert(usersTable, userColumns,
		database.Set("nombre", in.Name),
		database.Set("email", in.Email),
		database.Set("edad", in.Age),
		database.Optional("activo", in.Active),
	)
}

// ListUsers returns every user ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]model.User, error) {
	rs, err := r.db.Execute(ctx, database.Statement{Intent: "list users", SQL: listUsersSQL})
	if err != nil {
		return nil, wrap("list users", err)
	}
	return scanUsers(rs)
}

// GetUser retrieves a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	stmt := database.Statement{Intent: "get user", SQL: getUserSQL, Args: []any{id}}

	rs, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return nil, wrap("get user", err)
	}
	rec, err := single(rs, stmt.Intent, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	user, err := scanUser(rec)
	if err != nil {
		return nil, wrap("get user", err)
	}
	return &user, nil
}

// ListActiveUsers returns active users at least minAge years old, most
// recently registered first.
func (r *Repository) ListActiveUsers(ctx context.Context, minAge int) ([]model.User, error) {
	rs, err := r.db.Execute(ctx, database.Statement{
		Intent: "list active users",
		SQL:    listActiveUsersSQL,
		Args:   []any{minAge},
	})
	if err != nil {
		return nil, wrap("list active users", err)
	}
	return scanUsers(rs)
}

// GetUsersByIDs returns the users whose id is in ids, ordered by id. Unknown
// ids are ignored.
func (r *Repository) GetUsersByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	if len(ids) == 0 {
		return make([]model.User, 0), nil
	}

	rs, err := r.db.Execute(ctx, database.Statement{
		Intent: "get users by ids",
		SQL:    getUsersByIDsSQL,
		Args:   []any{pq.Array(ids)},
	})
	if err != nil {
		return nil, wrap("get users by ids", err)
	}
	return scanUsers(rs)
}

// UpdateUser applies the non-nil fields of patch and returns the updated
// row. An empty patch fails with database.ErrNoFieldsProvided before any
// statement is issued.
func (r *Repository) UpdateUser(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	stmt, err := userUpdates.Build(id,
		database.Optional("nombre", patch.Name),
		database.Optional("email", patch.Email),
		database.Optional("edad", patch.Age),
		database.Optional("activo", patch.Active),
	)
	if err != nil {
		return nil, err
	}

	rs, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return nil, wrap("update user", err)
	}
	rec, err := single(rs, stmt.Intent, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	user, err := scanUser(rec)
	if err != nil {
		return nil, wrap("update user", err)
	}

	r.metrics.IncUserUpdated()
	r.forward(usersTable, model.ChangeUpdate, user.ID)
	return &user, nil
}

// DeleteUser removes a user and its orders. Deleting a user that does not
// exist also succeeds, so the result is always true when err is nil.
func (r *Repository) DeleteUser(ctx context.Context, id int64) (bool, error) {
	rs, err := r.db.Execute(ctx, database.Statement{
		Intent: "delete user",
		SQL:    deleteUserSQL,
		Args:   []any{id},
	})
	if err != nil {
		return false, wrap("delete user", err)
	}

	if rs.RowsAffected > 0 {
		r.metrics.IncUserDeleted()
		r.forward(usersTable, model.ChangeDelete, id)
	} else {
		r.logger.Debug("delete matched no user", "user_id", id)
	}
	return true, nil
}

func scanUsers(rs *database.RowSet) ([]model.User, error) {
	users := make([]model.User, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		user, err := scanUser(rs.Record(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func scanUser(rec *database.Record) (model.User, error) {
	user := model.User{
		ID:           rec.Int64("id"),
		Name:         rec.String("nombre"),
		Email:        rec.String("email"),
		Age:          rec.Int("edad"),
		Active:       rec.Bool("activo"),
		RegisteredAt: rec.Time("fecha_registro"),
	}
	if err := rec.Err(); err != nil {
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}
