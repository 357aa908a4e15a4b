package crmmodel

import (
	"bytes"
	"encoding/json"

	"github.com/jrsteele09/go-vtiger/internal/utils"
	"github.com/pkg/errors"
)

// Response is the envelope every webservice call answers with:
//
//	{ "success": bool, "result"?: any, "error"?: { "code": string, "message": string } }
//
// Success is a pointer so a body without the flag can be told apart from an explicit false.
type Response struct {
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorElement   `json:"error,omitempty"`
}

// ErrorElement is the error payload of a failed call.
type ErrorElement struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChallengeResult is the result payload of a getchallenge call.
type ChallengeResult struct {
	Token      string `json:"token"`
	ServerTime int64  `json:"serverTime,omitempty"`
	ExpireTime int64  `json:"expireTime"`
}

// LoginResult is the result payload of a login call.
type LoginResult struct {
	SessionName string `json:"sessionName"`
	UserID      string `json:"userId,omitempty"`
	Version     string `json:"version,omitempty"`
	VtigerVer   string `json:"vtigerVersion,omitempty"`
}

// DecodeResponse decodes a raw body into a Response. An empty body decodes to an
// empty Response (no success flag) rather than an error.
func DecodeResponse(body []byte) (*Response, error) {
	var resp Response
	if len(bytes.TrimSpace(body)) == 0 {
		return &resp, nil
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "[DecodeResponse] json.Unmarshal")
	}
	return &resp, nil
}

// HasSuccess reports whether the body carried a success flag at all.
func (r *Response) HasSuccess() bool {
	return r != nil && r.Success != nil
}

// Succeeded reports whether the body carried success == true.
func (r *Response) Succeeded() bool {
	return r != nil && utils.Value(r.Success)
}

// ErrorCode returns the error code of a failed response, or "".
func (r *Response) ErrorCode() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// Decode unmarshals the result payload into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Result) == 0 {
		return errors.Wrap(ErrMalformedResponse, "[Response.Decode] no result")
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return errors.Wrap(err, "[Response.Decode] json.Unmarshal")
	}
	return nil
}

// Err converts a business failure into an error. It returns nil when the call succeeded.
// The dispatcher never calls this itself; failed operations are returned as data.
func (r *Response) Err(op OperationType) error {
	if r.Succeeded() {
		return nil
	}
	if !r.HasSuccess() {
		return NewError(ErrMalformedResponse, op, "", "success property not set on response", nil)
	}
	if r.Error == nil {
		return NewError(ErrMalformedResponse, op, "", "error property not set when success is false", nil)
	}
	return NewError(ErrOperationFailed, op, r.Error.Code, r.Error.Message, nil)
}
