package errors

import (
	"errors"
	"fmt"
)

// Common error types shared by the session store drivers and the client
var (
	// Storage errors
	ErrNotFound      = errors.New("not found")
	ErrStoreClosed   = errors.New("store closed")
	ErrUnsupported   = errors.New("unsupported operation")
	ErrUnknownDriver = errors.New("unknown session driver")

	// Configuration errors
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
