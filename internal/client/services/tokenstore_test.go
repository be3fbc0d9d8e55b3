package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/writedesk/internal/client/client"
	"github.com/dmitrijs2005/writedesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/writedesk/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) (*SQLiteTokenStore, *metadata.SQLiteRepository) {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteTokenStore(db), metadata.NewSQLiteRepository(db)
}

func TestTokenStores(t *testing.T) {
	sqliteStore, _ := newSQLiteStore(t)
	stores := map[string]TokenStore{
		"sqlite": sqliteStore,
		"memory": NewMemoryTokenStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			access, refresh, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, access)
			assert.Empty(t, refresh)

			require.NoError(t, store.Save(ctx, "a1", "r1"))
			require.NoError(t, store.Save(ctx, "a2", "r2"))
			access, refresh, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "a2", access)
			assert.Equal(t, "r2", refresh)

			require.NoError(t, store.Clear(ctx))
			access, refresh, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, access)
			assert.Empty(t, refresh)
		})
	}
}

func TestSQLiteTokenStore_UsesMetadataKeys(t *testing.T) {
	store, repo := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "unrelated", []byte("keep")))
	require.NoError(t, store.Save(ctx, "acc", "ref"))

	v, err := repo.Get(ctx, common.AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("acc"), v)
	v, err = repo.Get(ctx, common.RefreshTokenKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("ref"), v)

	require.NoError(t, store.Clear(ctx))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"unrelated": []byte("keep")}, all)
}
