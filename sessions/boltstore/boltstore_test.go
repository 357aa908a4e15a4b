package boltstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/jrsteele09/go-vtiger/sessions/boltstore"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*boltstore.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "session.db")
	s, err := boltstore.New(path)
	require.NoError(t, err)
	return s, path
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	defer s.Close()

	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, ierrors.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte(`{"token":"abc"}`), 0))
	data, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"token":"abc"}`, string(data))

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, ierrors.ErrNotFound)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t)
	require.NoError(t, s.Set(ctx, "k", []byte("persisted"), 0))
	require.NoError(t, s.Close())

	reopened, err := boltstore.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "persisted", string(data))
}

func TestStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s, _ := newStore(t)
	defer s.Close()
	s.WithNowFunc(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, ierrors.ErrNotFound)
}

func TestStore_RegisteredDriver(t *testing.T) {
	repo, err := sessions.NewRepo(sessions.DriverConfig{
		Driver:   sessions.DriverBolt,
		BoltPath: filepath.Join(t.TempDir(), "session.db"),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())
}
