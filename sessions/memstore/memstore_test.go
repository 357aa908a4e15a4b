package memstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/jrsteele09/go-vtiger/sessions/memstore"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ierrors.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte(`{"token":"abc"}`), 0))
	data, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"token":"abc"}`, string(data))

	require.NoError(t, s.Set(ctx, "k", []byte(`{"token":"def"}`), 0))
	data, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"token":"def"}`, string(data))

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, ierrors.ErrNotFound)
}

func TestStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s := memstore.New().WithNowFunc(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, ierrors.ErrNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	in := []byte("value")
	require.NoError(t, s.Set(ctx, "k", in, 0))
	in[0] = 'X'

	out, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "value", string(out))
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Set(ctx, "k", nil, 0), ierrors.ErrStoreClosed)
	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, ierrors.ErrStoreClosed)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Set(ctx, "k", []byte("v"), 0)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Get(ctx, "k")
		}()
	}
	wg.Wait()
	data, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", string(data))
}
