package auth

import (
	"time"

	"github.com/jrsteele09/go-vtiger/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type settings struct {
	policy  RetryPolicy
	metrics *metrics.Metrics
	logger  zerolog.Logger
	nowTime func() time.Time
}

// Option configures the challenge client, the login client and the session manager.
type Option func(*settings)

// WithRetryPolicy sets the retry policy for the challenge and login steps.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *settings) {
		s.policy = policy
	}
}

// WithMetrics records handshake counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *settings) {
		s.nowTime = nowFunc
	}
}

func newSettings(options []Option) settings {
	s := settings{
		policy:  DefaultRetryPolicy(),
		logger:  log.Logger,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(&s)
	}
	s.policy = s.policy.normalized()
	return s
}
