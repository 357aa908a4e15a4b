package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-vtiger/crmmodel"
	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/jrsteele09/go-vtiger/sessions/memstore"
	"github.com/stretchr/testify/require"
)

const testKey = "vtiger_session:admin@crm.example.com"

// failingRepo fails every call with err.
type failingRepo struct {
	err error
}

func (f failingRepo) Get(context.Context, string) ([]byte, error) {
	return nil, f.err
}

func (f failingRepo) Set(context.Context, string, []byte, time.Duration) error {
	return f.err
}

func (f failingRepo) Delete(context.Context, string) error {
	return f.err
}

func (f failingRepo) Close() error {
	return nil
}

func newTokenStore(t *testing.T) (*sessions.TokenStore, *memstore.Store) {
	t.Helper()
	repo := memstore.New()
	ts, err := sessions.NewTokenStore(repo, testKey)
	require.NoError(t, err)
	return ts, repo
}

func TestTokenStore_AbsentIsNotAnError(t *testing.T) {
	ts, _ := newTokenStore(t)
	record, err := ts.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestTokenStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	ts, repo := newTokenStore(t)

	in := &sessions.Record{Token: "abc", ExpireTime: 1_700_000_300, SessionID: "sid-1"}
	require.NoError(t, ts.Put(ctx, in))

	raw, err := repo.Get(ctx, testKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"token":"abc","expireTime":1700000300,"sessionid":"sid-1"}`, string(raw))

	out, err := ts.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, in, out)

	require.NoError(t, ts.Delete(ctx))
	out, err = ts.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestTokenStore_SessionIDOmittedWhenEmpty(t *testing.T) {
	ctx := context.Background()
	ts, repo := newTokenStore(t)

	require.NoError(t, ts.Put(ctx, &sessions.Record{Token: "abc", ExpireTime: 5}))
	raw, err := repo.Get(ctx, testKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"token":"abc","expireTime":5}`, string(raw))
}

func TestTokenStore_UndecodableTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	ts, repo := newTokenStore(t)

	require.NoError(t, repo.Set(ctx, testKey, []byte("{not json"), 0))
	record, err := ts.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestTokenStore_BackendFailureIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	ts, err := sessions.NewTokenStore(failingRepo{err: ierrors.ErrStoreClosed}, testKey)
	require.NoError(t, err)

	_, err = ts.Get(ctx)
	require.ErrorIs(t, err, crmmodel.ErrPersistence)
	require.ErrorIs(t, err, ierrors.ErrStoreClosed)

	require.ErrorIs(t, ts.Put(ctx, &sessions.Record{Token: "abc"}), crmmodel.ErrPersistence)
	require.ErrorIs(t, ts.Delete(ctx), crmmodel.ErrPersistence)
}

func TestTokenStore_WithKeyIsolatesIdentities(t *testing.T) {
	ctx := context.Background()
	ts, _ := newTokenStore(t)
	other, err := ts.WithKey(sessions.KeyFor("https://crm.example.com", "someone-else"))
	require.NoError(t, err)

	require.NoError(t, ts.Put(ctx, &sessions.Record{Token: "abc", ExpireTime: 5}))
	record, err := other.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestNewTokenStore_Validation(t *testing.T) {
	_, err := sessions.NewTokenStore(nil, testKey)
	require.Error(t, err)
	_, err = sessions.NewTokenStore(memstore.New(), " ")
	require.Error(t, err)
}

func TestKeyFor(t *testing.T) {
	require.Equal(t, "vtiger_session:admin@crm.example.com/webservice.php",
		sessions.KeyFor("https://crm.example.com/webservice.php", "admin"))
	require.Equal(t, "vtiger_session:admin@not a url",
		sessions.KeyFor("not a url", "admin"))
}

func TestRecord_Usable(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name   string
		record *sessions.Record
		want   bool
	}{
		{"nil", nil, false},
		{"empty token", &sessions.Record{ExpireTime: now.Unix() + 60}, false},
		{"missing expiry", &sessions.Record{Token: "abc"}, false},
		{"expired", &sessions.Record{Token: "abc", ExpireTime: now.Unix() - 1}, false},
		{"expires now", &sessions.Record{Token: "abc", ExpireTime: now.Unix()}, false},
		{"valid", &sessions.Record{Token: "abc", ExpireTime: now.Unix() + 1}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.record.Usable(now))
		})
	}
}

func TestRecord_WithSession(t *testing.T) {
	base := sessions.Record{Token: "abc", ExpireTime: 10}
	withSession := base.WithSession("sid-1")
	require.Equal(t, "sid-1", withSession.SessionID)
	require.Equal(t, "abc", withSession.Token)
	require.Empty(t, base.SessionID)
	require.True(t, withSession.HasSession())

	cleared := withSession.WithoutSession()
	require.False(t, cleared.HasSession())
	require.Equal(t, int64(10), cleared.ExpireTime)
	require.Equal(t, time.Unix(10, 0), cleared.ExpiresAt())
}

func TestNewRepo_UnknownDriver(t *testing.T) {
	_, err := sessions.NewRepo(sessions.DriverConfig{Driver: "carrier-pigeon"})
	require.ErrorIs(t, err, ierrors.ErrUnknownDriver)
	require.Contains(t, err.Error(), "carrier-pigeon")
}

func TestNewRepo_Memory(t *testing.T) {
	repo, err := sessions.NewRepo(sessions.DriverConfig{Driver: sessions.DriverMemory})
	require.NoError(t, err)
	require.Contains(t, sessions.Drivers(), "memory")
	require.NoError(t, repo.Close())
}
