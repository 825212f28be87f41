package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrateUp_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, MigrateUp(ctx, db, DialectSQLite, zap.NewNop()))
	require.NoError(t, MigrateUp(ctx, db, DialectSQLite, zap.NewNop()), "second run is a no-op")

	for _, table := range []string{"tickets", "ticket_messages", "agents", "queues"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestMigrateDown_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, MigrateUp(ctx, db, DialectSQLite, zap.NewNop()))
	require.NoError(t, MigrateDown(ctx, db, DialectSQLite))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tickets'").Scan(&count))
	assert.Equal(t, 0, count)
}
