package keychain

import (
	"context"
	"testing"
	"time"

	"github.com/hungwahenry/instagram-auto-poster/lib/testutil"
	"github.com/hungwahenry/instagram-auto-poster/services/keychain/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestService(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/keychain",
		DbSchema: db.Schema,
	})
	defer cleanup()
	service := NewService(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		require.Nil(t, service.GetSession(ctx, "nobody"))
	}
	{
		err := service.SetSession(ctx, "bot1", []byte(`{"cookies":[]}`))
		require.NoError(t, err)
		require.Equal(t, []byte(`{"cookies":[]}`), service.GetSession(ctx, "bot1"))
	}
	{
		// overwrites replace the previous blob
		err := service.SetSession(ctx, "bot1", []byte(`{"cookies":["x"]}`))
		require.NoError(t, err)
		require.Equal(t, []byte(`{"cookies":["x"]}`), service.GetSession(ctx, "bot1"))
	}
	{
		err := service.DeleteSession(ctx, "bot1")
		require.NoError(t, err)
		require.Nil(t, service.GetSession(ctx, "bot1"))

		// deleting a missing row is a no-op
		require.NoError(t, service.DeleteSession(ctx, "bot1"))
	}
}
