package infra

import (
	"context"
	"io/fs"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huonghan/storefront/internal/infra/migrations"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/shop", migrateURL("postgres://u:p@db:5432/shop"))
	assert.Equal(t, "pgx5://db/shop?sslmode=disable", migrateURL("postgresql://db/shop?sslmode=disable"))
	assert.Equal(t, "pgx5://db/shop", migrateURL("pgx5://db/shop"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrations.Files, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrations.Files, "*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestConstructorsRejectEmptyURLs(t *testing.T) {
	ctx := context.Background()

	_, err := NewPostgresPool(ctx, "")
	require.Error(t, err)
	_, err = NewRedisClient(ctx, "")
	require.Error(t, err)
	_, err = NewMongoDatabase(ctx, "", "storefront")
	require.Error(t, err)
	_, err = Migrate("")
	require.Error(t, err)
}

func TestNewRedisClientPings(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
