package auth

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/jrsteele09/go-vtiger/transport"
	"github.com/pkg/errors"
)

// SessionManager hands out a valid session id, renewing the challenge token and
// logging in only when the cached record cannot be reused.
//
// The read, check, renew and write sequence runs under one lock, so concurrent
// callers sharing a manager perform at most one handshake between them.
type SessionManager struct {
	doer       transport.Doer
	creds      Credentials
	store      *sessions.TokenStore
	challenger *ChallengeClient
	login      *LoginClient
	options    []Option
	settings
	lock sync.Mutex
}

// NewSessionManager wires a challenge client and a login client around store.
func NewSessionManager(doer transport.Doer, store *sessions.TokenStore, creds Credentials, options ...Option) (*SessionManager, error) {
	if store == nil {
		return nil, errors.New("[NewSessionManager] token store is required")
	}
	challenger, err := NewChallengeClient(doer, creds, options...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewSessionManager]")
	}
	login, err := NewLoginClient(doer, creds, store, challenger, options...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewSessionManager]")
	}
	return &SessionManager{
		doer:       doer,
		creds:      creds,
		store:      store,
		challenger: challenger,
		login:      login,
		options:    options,
		settings:   newSettings(options),
	}, nil
}

// Credentials returns the identity the manager logs in as.
func (m *SessionManager) Credentials() Credentials {
	return m.creds
}

// Store returns the token store the manager caches into.
func (m *SessionManager) Store() *sessions.TokenStore {
	return m.store
}

// WithCredentials returns a manager for another identity. It shares the
// transport and the underlying repo but caches under its own key.
func (m *SessionManager) WithCredentials(creds Credentials) (*SessionManager, error) {
	store, err := m.store.WithKey(sessions.KeyFor(creds.URL, creds.Username))
	if err != nil {
		return nil, errors.Wrap(err, "[SessionManager.WithCredentials]")
	}
	return NewSessionManager(m.doer, store, creds, m.options...)
}

// SessionID returns a session id, reusing the cached one when its token has not
// expired. Otherwise it fetches and persists a new token and logs in.
func (m *SessionManager) SessionID(ctx context.Context) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	record, err := m.store.Get(ctx)
	if err != nil {
		return "", err
	}

	if !record.Usable(m.nowTime()) {
		record, err = m.challenger.GetToken(ctx)
		if err != nil {
			return "", err
		}
		if err := m.store.Put(ctx, record); err != nil {
			return "", err
		}
	}

	if record.HasSession() {
		m.logger.Debug().Str("username", m.creds.Username).Msg("reusing cached session")
		return record.SessionID, nil
	}
	return m.login.Login(ctx, record)
}

// Record returns the cached record, or nil when none exists.
func (m *SessionManager) Record(ctx context.Context) (*sessions.Record, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.store.Get(ctx)
}

// Invalidate discards the cached record so that the next call starts a new handshake.
func (m *SessionManager) Invalidate(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.logger.Debug().Str("username", m.creds.Username).Msg("invalidating cached session")
	return m.store.Delete(ctx)
}

// InvalidateSession discards the cached record only while it still holds
// sessionID. A newer session stored by another caller is kept.
func (m *SessionManager) InvalidateSession(ctx context.Context, sessionID string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	record, err := m.store.Get(ctx)
	if err != nil || record == nil || record.SessionID != sessionID {
		return err
	}
	m.logger.Debug().Str("username", m.creds.Username).Msg("invalidating rejected session")
	return m.store.Delete(ctx)
}

// Release forgets sessionID after the server has logged it out. The token is kept,
// so the next call logs in again without a new challenge. A record holding a
// different session id is left alone.
func (m *SessionManager) Release(ctx context.Context, sessionID string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	record, err := m.store.Get(ctx)
	if err != nil || record == nil || record.SessionID != sessionID {
		return err
	}
	return m.store.Put(ctx, record.WithoutSession())
}
