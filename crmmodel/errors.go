package crmmodel

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrTransport means the request could not be sent, the body could not be
	// read, or the server answered with a non-200 status.
	ErrTransport = errors.New("transport error")

	// ErrTokenAcquisitionFailed means the challenge step exhausted its retries.
	ErrTokenAcquisitionFailed = errors.New("challenge token acquisition failed")

	// ErrLoginRejected means login failed with a non-credential error code.
	ErrLoginRejected = errors.New("login rejected")

	// ErrLoginAcquisitionFailed means login kept failing with credential errors
	// until the retry budget ran out.
	ErrLoginAcquisitionFailed = errors.New("login acquisition failed")

	// ErrMalformedResponse means a response lacked the success flag where one was required.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrPersistence means the session store failed to read or write.
	ErrPersistence = errors.New("session persistence error")

	// ErrOperationFailed is a business failure reported with success == false.
	ErrOperationFailed = errors.New("operation failed")

	// ErrInvalidID means a record id is not of the form {moduleCode}x{itemId}.
	ErrInvalidID = errors.New("invalid record id")
)

// Error wraps an error kind with the operation and any server supplied code.
type Error struct {
	Kind    error         // One of the Err* kinds above
	Op      OperationType // Operation in flight
	Code    string        // Server error code, if any
	Message string        // Server or client message
	Cause   error         // Underlying error, if any
}

// NewError builds an *Error.
func NewError(kind error, op OperationType, code, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// CodeOf returns the server error code carried anywhere in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
