package auth

import (
	"net/url"
	"strings"

	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/pkg/errors"
)

// Validate checks that every field is set and that URL is an absolute http(s) URL.
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.URL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		missing = append(missing, "access key")
	}
	if len(missing) > 0 {
		return errors.Wrap(ierrors.ErrMissingConfig, "[Credentials.Validate] "+strings.Join(missing, ", "))
	}
	return ValidateURL(c.URL)
}

// ValidateURL checks that raw is an absolute http or https URL with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(ErrInvalidURL, err.Error())
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(ErrInvalidURL, "%q", raw)
	}
	return nil
}
