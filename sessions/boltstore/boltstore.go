// Package boltstore keeps session blobs in an embedded bbolt database file.
package boltstore

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const (
	sessionsBucket = "sessions"
	headerSize     = 8

	// DefaultPath is used when no database path is configured.
	DefaultPath = "./data/session.db"
)

func init() {
	sessions.RegisterDriver(sessions.DriverBolt, func(cfg sessions.DriverConfig) (sessions.Repo, error) {
		path := cfg.BoltPath
		if path == "" {
			path = DefaultPath
		}
		return New(path)
	})
}

var _ sessions.Repo = (*Store)(nil)

// Store is a sessions.Repo backed by bbolt. Each value is an 8 byte big endian
// expiry (unix nanoseconds, 0 for none) followed by the blob.
type Store struct {
	db      *bbolt.DB
	nowFunc func() time.Time
}

// New opens (or creates) the database at path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "[boltstore.New] create directory")
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[boltstore.New] open bolt db")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[boltstore.New] create sessions bucket")
	}

	return &Store{db: db, nowFunc: time.Now}, nil
}

// WithNowFunc replaces the clock used for ttl expiry.
func (s *Store) WithNowFunc(now func() time.Time) *Store {
	s.nowFunc = now
	return s
}

func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket([]byte(sessionsBucket)).Get([]byte(name))
		if value == nil {
			return errors.Wrapf(ierrors.ErrNotFound, "[boltstore.Get] %s", name)
		}
		if len(value) < headerSize {
			return errors.Errorf("[boltstore.Get] %s: corrupt value", name)
		}
		if exp := int64(binary.BigEndian.Uint64(value[:headerSize])); exp != 0 && s.nowFunc().UnixNano() >= exp {
			return errors.Wrapf(ierrors.ErrNotFound, "[boltstore.Get] %s expired", name)
		}
		// value is only valid inside the transaction
		out = append([]byte(nil), value[headerSize:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Set(_ context.Context, name string, data []byte, ttl time.Duration) error {
	value := make([]byte, headerSize+len(data))
	if ttl > 0 {
		binary.BigEndian.PutUint64(value[:headerSize], uint64(s.nowFunc().Add(ttl).UnixNano()))
	}
	copy(value[headerSize:], data)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Put([]byte(name), value)
	})
	if err != nil {
		return errors.Wrap(err, "[boltstore.Set] put")
	}
	return nil
}

func (s *Store) Delete(_ context.Context, name string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Delete([]byte(name))
	})
	if err != nil {
		return errors.Wrap(err, "[boltstore.Delete] delete")
	}
	return nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}
