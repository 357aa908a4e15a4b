package auth

import "errors"

var (
	ErrNoToken    = errors.New("record has no challenge token")
	ErrInvalidURL = errors.New("webservice url must be an absolute http or https url")
)
