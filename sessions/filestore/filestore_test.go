package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/jrsteele09/go-vtiger/sessions/filestore"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := filestore.New(dir)
	require.NoError(t, err)

	key := "vtiger_session:admin@crm.example.com"

	t.Run("load nonexistent", func(t *testing.T) {
		_, err := s.Get(ctx, key)
		require.ErrorIs(t, err, ierrors.ErrNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, key, []byte(`{"token":"abc","expireTime":10}`), 0))

		data, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.JSONEq(t, `{"token":"abc","expireTime":10}`, string(data))

		require.Equal(t, filepath.Join(dir, "vtiger_session_admin_crm.example.com.json"), s.Path(key))
		if runtime.GOOS != "windows" {
			info, err := os.Stat(s.Path(key))
			require.NoError(t, err)
			require.Equal(t, os.FileMode(0600), info.Mode().Perm())
		}
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, key))
		require.NoError(t, s.Delete(ctx, key))
		_, err := s.Get(ctx, key)
		require.ErrorIs(t, err, ierrors.ErrNotFound)
	})

	t.Run("ttl unsupported", func(t *testing.T) {
		err := s.Set(ctx, key, []byte("{}"), 1)
		require.ErrorIs(t, err, ierrors.ErrUnsupported)
	})
}

func TestStore_RegisteredDriver(t *testing.T) {
	repo, err := sessions.NewRepo(sessions.DriverConfig{
		Driver:   sessions.DriverFile,
		FilePath: t.TempDir(),
	})
	require.NoError(t, err)
	require.IsType(t, &filestore.Store{}, repo)
}
