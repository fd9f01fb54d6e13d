package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateBuilder_Build(t *testing.T) {
	b := NewUpdateBuilder("usuarios", "id", "id, nombre", "nombre", "email", "edad", "activo")

	tests := []struct {
		name     string
		fields   []Field
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "single field",
			fields:   []Field{Set("email", "a@example.com")},
			wantSQL:  `UPDATE "usuarios" SET "email" = $1 WHERE "id" = $2 RETURNING id, nombre`,
			wantArgs: []any{"a@example.com", int64(9)},
		},
		{
			name:     "declared order wins over argument order",
			fields:   []Field{Set("activo", false), Set("nombre", "Ana")},
			wantSQL:  `UPDATE "usuarios" SET "nombre" = $1, "activo" = $2 WHERE "id" = $3 RETURNING id, nombre`,
			wantArgs: []any{"Ana", false, int64(9)},
		},
		{
			name: "absent fields are skipped",
			fields: []Field{
				Optional[string]("nombre", nil),
				Optional("edad", ptr(31)),
			},
			wantSQL:  `UPDATE "usuarios" SET "edad" = $1 WHERE "id" = $2 RETURNING id, nombre`,
			wantArgs: []any{31, int64(9)},
		},
		{
			name: "all fields",
			fields: []Field{
				Set("nombre", "Ana"), Set("email", "a@example.com"), Set("edad", 30), Set("activo", true),
			},
			wantSQL:  `UPDATE "usuarios" SET "nombre" = $1, "email" = $2, "edad" = $3, "activo" = $4 WHERE "id" = $5 RETURNING id, nombre`,
			wantArgs: []any{"Ana", "a@example.com", 30, true, int64(9)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := b.Build(int64(9), tt.fields...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, stmt.SQL)
			assert.Equal(t, tt.wantArgs, stmt.Args)
			assert.Equal(t, "update usuarios", stmt.Intent)
		})
	}
}

func TestUpdateBuilder_ArgumentCount(t *testing.T) {
	b := NewUpdateBuilder("pedidos", "id", "", "producto", "cantidad", "precio")

	present := []Field{Set("producto", "x"), Set("precio", 2.5)}
	stmt, err := b.Build(int64(1), present...)
	require.NoError(t, err)

	assert.Len(t, stmt.Args, len(present)+1)
	assert.Equal(t, int64(1), stmt.Args[len(stmt.Args)-1], "key is the last argument")
	assert.NotContains(t, stmt.SQL, "RETURNING")
}

func TestUpdateBuilder_NoFields(t *testing.T) {
	b := NewUpdateBuilder("usuarios", "id", "", "nombre")

	_, err := b.Build(int64(1))
	assert.ErrorIs(t, err, ErrNoFieldsProvided)

	_, err = b.Build(int64(1), Optional[string]("nombre", nil))
	assert.ErrorIs(t, err, ErrNoFieldsProvided)
}

func TestUpdateBuilder_UnknownColumn(t *testing.T) {
	b := NewUpdateBuilder("usuarios", "id", "", "nombre")

	_, err := b.Build(int64(1), Set("id", 2))
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = b.Build(int64(1), Set(`nombre" = 'x'; --`, "y"))
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestUpdateBuilder_ColumnsIsACopy(t *testing.T) {
	b := NewUpdateBuilder("usuarios", "id", "", "nombre", "email")

	cols := b.Columns()
	cols[0] = "id"
	assert.Equal(t, []string{"nombre", "email"}, b.Columns())
}

func TestBuildInsert(t *testing.T) {
	stmt := BuildInsert("usuarios", "id",
		Set("nombre", "Ana"),
		Optional[bool]("activo", nil),
		Set("edad", 28),
	)
	assert.Equal(t, `INSERT INTO "usuarios" ("nombre", "edad") VALUES ($1, $2) RETURNING id`, stmt.SQL)
	assert.Equal(t, []any{"Ana", 28}, stmt.Args)
	assert.Equal(t, "insert usuarios", stmt.Intent)

	empty := BuildInsert("usuarios", "")
	assert.Equal(t, `INSERT INTO "usuarios" DEFAULT VALUES`, empty.SQL)
	assert.Empty(t, empty.Args)
}

func ptr[T any](v T) *T { return &v }
