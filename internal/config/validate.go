package config

import (
	"errors"
	"fmt"
	"slices"

	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
)

// SessionDrivers lists the accepted VTIGER_SESSION_DRIVER values.
var SessionDrivers = []string{"memory", "file", "redis", "bolt"}

// Validate reports every missing or unparsable value at once.
func Validate(c Config) error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{urlEnvVar, c.GetURL()},
		{usernameEnvVar, c.GetUsername()},
		{accessKeyEnvVar, c.GetAccessKey()},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ierrors.ErrMissingConfig, r.name))
		}
	}

	if driver := c.GetSessionDriver(); !slices.Contains(SessionDrivers, driver) {
		errs = append(errs, fmt.Errorf("%w: %s: unknown driver %q", ierrors.ErrInvalidConfig, sessionDriverEnvVar, driver))
	}

	if mc, ok := c.(mainConfig); ok {
		errs = append(errs, mc.parseErrors()...)
	}
	if c.GetMaxRetries() < 1 {
		errs = append(errs, fmt.Errorf("%w: %s must be at least 1", ierrors.ErrInvalidConfig, maxRetriesEnvVar))
	}
	if c.GetOperationRetries() < 1 {
		errs = append(errs, fmt.Errorf("%w: %s must be at least 1", ierrors.ErrInvalidConfig, operationRetriesEnvVar))
	}

	return errors.Join(errs...)
}

func (c mainConfig) parseErrors() []error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ierrors.ErrInvalidConfig, err))
		}
	}

	_, err := c.lookupBool(persistEnvVar, false)
	collect(err)
	_, err = c.lookupBool(insecureTLSEnvVar, false)
	collect(err)
	_, err = c.lookupDuration(httpTimeoutEnvVar, defaultHTTPTimeout)
	collect(err)
	_, err = c.lookupInt(maxRetriesEnvVar, defaultMaxRetries)
	collect(err)
	_, err = c.lookupDuration(retryDelayEnvVar, defaultRetryDelay)
	collect(err)
	_, err = c.lookupInt(operationRetriesEnvVar, defaultOperationRetries)
	collect(err)
	_, err = c.lookupInt(redisDBEnvVar, 0)
	collect(err)
	return errs
}
