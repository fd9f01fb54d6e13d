package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_FindsEmbeddedMigrations(t *testing.T) {
	migrations, err := Source().FindMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, "0001_usuarios.sql", migrations[0].Id)
	assert.Equal(t, "0002_pedidos.sql", migrations[1].Id)
	assert.Equal(t, "0003_contar_pedidos.sql", migrations[2].Id)

	for _, m := range migrations {
		assert.NotEmpty(t, m.Up, "%s has no up statements", m.Id)
		assert.NotEmpty(t, m.Down, "%s has no down statements", m.Id)
	}
}
