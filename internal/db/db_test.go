package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInMemoryCreatesSchema(t *testing.T) {
	ctx := context.Background()
	pool, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer pool.Close()

	var tables []string
	require.NoError(t, pool.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'matches') ORDER BY name`))
	assert.Equal(t, []string{"matches", "users"}, tables)

	// Migrating again is harmless.
	assert.NoError(t, Migrate(ctx, pool))
}
