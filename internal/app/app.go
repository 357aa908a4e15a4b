// Package app builds a ready to use CRM client from configuration.
package app

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-vtiger/auth"
	"github.com/jrsteele09/go-vtiger/crm"
	"github.com/jrsteele09/go-vtiger/internal/config"
	"github.com/jrsteele09/go-vtiger/metrics"
	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/jrsteele09/go-vtiger/transport"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	// Session store drivers register themselves with the sessions package.
	_ "github.com/jrsteele09/go-vtiger/sessions/boltstore"
	_ "github.com/jrsteele09/go-vtiger/sessions/filestore"
	_ "github.com/jrsteele09/go-vtiger/sessions/memstore"
	_ "github.com/jrsteele09/go-vtiger/sessions/redisstore"
)

// maxDelayFactor caps the handshake backoff at this multiple of the base delay.
const maxDelayFactor = 10

// App holds everything built from one configuration.
type App struct {
	Config   config.Config
	Client   *crm.Client
	Registry *prometheus.Registry
	Logger   zerolog.Logger
	repo     sessions.Repo
}

type appOptions struct {
	doer   transport.Doer
	logger *zerolog.Logger
}

// Option configures New.
type Option func(*appOptions)

// WithTransport replaces the HTTP transport (primarily for testing).
func WithTransport(doer transport.Doer) Option {
	return func(o *appOptions) {
		o.doer = doer
	}
}

// WithLogger replaces the logger derived from the configuration.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *appOptions) {
		o.logger = &logger
	}
}

// New validates c and wires transport, session store, session manager and client.
func New(c config.Config, options ...Option) (*App, error) {
	if err := config.Validate(c); err != nil {
		return nil, errors.Wrap(err, "[app.New] invalid configuration")
	}

	var opts appOptions
	for _, opt := range options {
		opt(&opts)
	}

	logger := NewLogger(os.Stderr, c.GetEnv(), c.GetLogLevel())
	if opts.logger != nil {
		logger = *opts.logger
	}

	doer := opts.doer
	if doer == nil {
		doer = transport.New(
			transport.WithTimeout(c.GetHTTPTimeout()),
			transport.WithInsecureSkipVerify(c.GetInsecureTLS()),
			transport.WithLogger(logger),
		)
	}

	repo, err := sessions.NewRepo(sessions.DriverConfig{
		Driver:        sessions.Driver(c.GetSessionDriver()),
		FilePath:      c.GetSessionDir(),
		BoltPath:      c.GetBoltPath(),
		RedisAddr:     c.GetRedisAddr(),
		RedisPassword: c.GetRedisPassword(),
		RedisDB:       c.GetRedisDB(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[app.New] session store")
	}

	creds := auth.Credentials{
		URL:       c.GetURL(),
		Username:  c.GetUsername(),
		AccessKey: c.GetAccessKey(),
	}
	key := c.GetSessionKey()
	if key == "" {
		key = sessions.KeyFor(creds.URL, creds.Username)
	}
	store, err := sessions.NewTokenStore(repo, key, sessions.WithLogger(logger))
	if err != nil {
		repo.Close()
		return nil, errors.Wrap(err, "[app.New] token store")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	delay := c.GetRetryDelay()
	manager, err := auth.NewSessionManager(doer, store, creds,
		auth.WithRetryPolicy(auth.RetryPolicy{
			MaxAttempts: c.GetMaxRetries(),
			Delay:       delay,
			MaxDelay:    delay * maxDelayFactor,
		}),
		auth.WithMetrics(m),
		auth.WithLogger(logger),
	)
	if err != nil {
		repo.Close()
		return nil, errors.Wrap(err, "[app.New] session manager")
	}

	client, err := crm.NewClient(doer, manager,
		crm.WithPersistConnection(c.GetPersistConnection()),
		crm.WithOperationAttempts(c.GetOperationRetries()),
		crm.WithOperationDelay(delay, delay*maxDelayFactor),
		crm.WithMetrics(m),
		crm.WithLogger(logger),
	)
	if err != nil {
		repo.Close()
		return nil, errors.Wrap(err, "[app.New] client")
	}

	return &App{
		Config:   c,
		Client:   client,
		Registry: registry,
		Logger:   logger,
		repo:     repo,
	}, nil
}

// Close releases the session store.
func (a *App) Close() error {
	return a.repo.Close()
}

// NewLogger returns a console logger in DEV and a JSON logger elsewhere.
// An unknown level falls back to info.
func NewLogger(w io.Writer, env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if strings.EqualFold(env, "DEV") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
