package sessions

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-vtiger/crmmodel"
	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultKeyPrefix prefixes keys derived by KeyFor.
const DefaultKeyPrefix = "vtiger_session"

// KeyFor derives the storage key for one CRM identity, so that different
// credentials never share a cached record.
func KeyFor(baseURL, username string) string {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host + strings.TrimSuffix(u.Path, "/")
	}
	return DefaultKeyPrefix + ":" + username + "@" + host
}

// TokenStore reads and writes the Record for one fixed key.
// It never interprets the record beyond encoding it.
type TokenStore struct {
	repo   Repo
	key    string
	logger zerolog.Logger
}

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithLogger sets the logger used for decode warnings.
func WithLogger(logger zerolog.Logger) TokenStoreOption {
	return func(ts *TokenStore) {
		ts.logger = logger
	}
}

// NewTokenStore binds repo to key.
func NewTokenStore(repo Repo, key string, options ...TokenStoreOption) (*TokenStore, error) {
	if repo == nil {
		return nil, errors.New("[NewTokenStore] repo is required")
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("[NewTokenStore] key is required")
	}
	ts := &TokenStore{
		repo:   repo,
		key:    key,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(ts)
	}
	return ts, nil
}

// Key returns the key the store is bound to.
func (ts *TokenStore) Key() string {
	return ts.key
}

// Repo returns the underlying blob store.
func (ts *TokenStore) Repo() Repo {
	return ts.repo
}

// WithKey returns a TokenStore sharing the same repo under a different key.
func (ts *TokenStore) WithKey(key string) (*TokenStore, error) {
	return NewTokenStore(ts.repo, key, WithLogger(ts.logger))
}

// Get returns the cached record, or nil when none exists. Data that cannot be
// decoded is treated as absent so that the caller renews it.
func (ts *TokenStore) Get(ctx context.Context) (*Record, error) {
	data, err := ts.repo.Get(ctx, ts.key)
	if err != nil {
		if ierrors.Is(err, ierrors.ErrNotFound) {
			return nil, nil
		}
		return nil, persistenceError("get", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		ts.logger.Warn().Err(err).Str("key", ts.key).Msg("discarding undecodable session record")
		return nil, nil
	}
	return &record, nil
}

// Put overwrites the cached record. Records are kept until deleted; expiry is
// judged from ExpireTime, not from the store.
func (ts *TokenStore) Put(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("[TokenStore.Put] record is nil")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return persistenceError("put", errors.Wrap(err, "json.Marshal"))
	}
	if err := ts.repo.Set(ctx, ts.key, data, 0); err != nil {
		return persistenceError("put", err)
	}
	return nil
}

// Delete removes the cached record.
func (ts *TokenStore) Delete(ctx context.Context) error {
	if err := ts.repo.Delete(ctx, ts.key); err != nil {
		return persistenceError("delete", err)
	}
	return nil
}

func persistenceError(op string, err error) error {
	return crmmodel.NewError(crmmodel.ErrPersistence, "", "", "session store "+op, err)
}
