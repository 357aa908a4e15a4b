// Package memstore is an in-process sessions.Repo. Records do not survive a restart.
package memstore

import (
	"context"
	"sync"
	"time"

	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/pkg/errors"
)

func init() {
	sessions.RegisterDriver(sessions.DriverMemory, func(sessions.DriverConfig) (sessions.Repo, error) {
		return New(), nil
	})
}

var _ sessions.Repo = (*Store)(nil)

type entry struct {
	data      []byte
	expiresAt time.Time // Zero means never
}

// Store keeps blobs in a map guarded by a RWMutex.
type Store struct {
	entries map[string]entry
	lock    sync.RWMutex
	closed  bool
	nowFunc func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		nowFunc: time.Now,
	}
}

// WithNowFunc replaces the clock used for ttl expiry.
func (s *Store) WithNowFunc(now func() time.Time) *Store {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.nowFunc = now
	return s
}

func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return nil, ierrors.ErrStoreClosed
	}
	e, ok := s.entries[name]
	if !ok {
		return nil, errors.Wrapf(ierrors.ErrNotFound, "[memstore.Get] %s", name)
	}
	if !e.expiresAt.IsZero() && !s.nowFunc().Before(e.expiresAt) {
		return nil, errors.Wrapf(ierrors.ErrNotFound, "[memstore.Get] %s expired", name)
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

func (s *Store) Set(_ context.Context, name string, data []byte, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return ierrors.ErrStoreClosed
	}
	e := entry{data: make([]byte, len(data))}
	copy(e.data, data)
	if ttl > 0 {
		e.expiresAt = s.nowFunc().Add(ttl)
	}
	s.entries[name] = e
	return nil
}

func (s *Store) Delete(_ context.Context, name string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return ierrors.ErrStoreClosed
	}
	delete(s.entries, name)
	return nil
}

// Close drops every entry; later calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
