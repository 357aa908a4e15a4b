// Package filestore keeps each blob in its own file under a directory, the way
// the record used to live in a local session.json.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/pkg/errors"
)

// DefaultDir is used when no directory is configured.
const DefaultDir = "./data"

func init() {
	sessions.RegisterDriver(sessions.DriverFile, func(cfg sessions.DriverConfig) (sessions.Repo, error) {
		dir := cfg.FilePath
		if dir == "" {
			dir = DefaultDir
		}
		return New(dir)
	})
}

var _ sessions.Repo = (*Store)(nil)

// Store writes blobs as files with 0600 permissions inside a 0700 directory.
type Store struct {
	dir  string
	lock sync.RWMutex
}

// New creates the directory if needed and returns a Store rooted at it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] create session directory")
	}
	return &Store{dir: dir}, nil
}

// Path returns the file that holds name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, fileName(name))
}

func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ierrors.ErrNotFound, "[filestore.Get] %s", name)
		}
		return nil, errors.Wrap(err, "[filestore.Get] read session file")
	}
	return data, nil
}

// Set writes the blob through a temporary file and a rename so readers never see
// a partial record. Files carry no expiry, so only ttl == 0 is accepted.
func (s *Store) Set(_ context.Context, name string, data []byte, ttl time.Duration) error {
	if ttl != 0 {
		return errors.Wrap(ierrors.ErrUnsupported, "[filestore.Set] ttl")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return errors.Wrap(err, "[filestore.Set] create session directory")
	}
	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "[filestore.Set] create temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "[filestore.Set] write temp file")
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "[filestore.Set] chmod temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[filestore.Set] close temp file")
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return errors.Wrap(err, "[filestore.Set] rename session file")
	}
	return nil
}

func (s *Store) Delete(_ context.Context, name string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	err := os.Remove(s.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[filestore.Delete] remove session file")
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

// fileName maps a key onto a safe file name, e.g. "vtiger_session:admin@crm.example.com"
// becomes "vtiger_session_admin_crm.example.com.json".
func fileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return fmt.Sprintf("session-%d.json", len(name))
	}
	return b.String() + ".json"
}
