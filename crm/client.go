// Package crm dispatches the CRM webservice operations using a session obtained
// from an auth.SessionManager.
//
// Each call asks the manager for a session id, sends the operation, and, unless the
// client persists its connection, logs the session out again. Business failures
// (success == false) are returned as data in the *crmmodel.Response; only transport,
// handshake and malformed-response failures are returned as errors.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-vtiger/auth"
	"github.com/jrsteele09/go-vtiger/crmmodel"
	"github.com/jrsteele09/go-vtiger/metrics"
	"github.com/jrsteele09/go-vtiger/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultOperationAttempts bounds how often an operation is resent while the
// server answers without a success flag.
const DefaultOperationAttempts = 10

// Client sends CRM operations for one identity.
type Client struct {
	doer              transport.Doer
	manager           *auth.SessionManager
	persistConnection bool
	policy            auth.RetryPolicy
	metrics           *metrics.Metrics
	logger            zerolog.Logger
	options           []Option
}

// Option configures a Client.
type Option func(*Client)

// WithPersistConnection keeps sessions open after each operation instead of logging out.
func WithPersistConnection(persist bool) Option {
	return func(c *Client) {
		c.persistConnection = persist
	}
}

// WithOperationAttempts sets how many times an operation is sent while the response
// carries no success flag.
func WithOperationAttempts(attempts int) Option {
	return func(c *Client) {
		c.policy.MaxAttempts = attempts
	}
}

// WithOperationDelay sets the backoff between resends.
func WithOperationDelay(delay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.policy.Delay = delay
		c.policy.MaxDelay = maxDelay
	}
}

// WithMetrics records operation and logout counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client sending requests through doer with sessions from manager.
func NewClient(doer transport.Doer, manager *auth.SessionManager, options ...Option) (*Client, error) {
	if doer == nil {
		return nil, errors.New("[NewClient] transport is required")
	}
	if manager == nil {
		return nil, errors.New("[NewClient] session manager is required")
	}
	c := &Client{
		doer:    doer,
		manager: manager,
		policy: auth.RetryPolicy{
			MaxAttempts: DefaultOperationAttempts,
			Delay:       auth.DefaultRetryDelay,
			MaxDelay:    auth.DefaultMaxDelay,
		},
		logger:  log.Logger,
		options: options,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Connection returns a Client for other credentials. It shares this client's
// transport, session repo and options but caches its session separately.
func (c *Client) Connection(creds auth.Credentials) (*Client, error) {
	manager, err := c.manager.WithCredentials(creds)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Connection]")
	}
	return NewClient(c.doer, manager, c.options...)
}

// Manager returns the session manager behind the client.
func (c *Client) Manager() *auth.SessionManager {
	return c.manager
}

// PersistConnection reports whether sessions are kept open between operations.
func (c *Client) PersistConnection() bool {
	return c.persistConnection
}

// SessionID returns a valid session id, performing the handshake if needed.
func (c *Client) SessionID(ctx context.Context) (string, error) {
	return c.manager.SessionID(ctx)
}

// Query runs a query, e.g. "SELECT * FROM Contacts WHERE lastname = 'Smith';".
func (c *Client) Query(ctx context.Context, query string) (*crmmodel.Response, error) {
	return c.dispatch(ctx, http.MethodGet, crmmodel.OperationQuery, url.Values{
		crmmodel.ParamQuery: {query},
	})
}

// Retrieve fetches the record with id ({moduleCode}x{itemId}).
func (c *Client) Retrieve(ctx context.Context, id string) (*crmmodel.Response, error) {
	if err := crmmodel.ValidateID(id); err != nil {
		return nil, err
	}
	return c.dispatch(ctx, http.MethodGet, crmmodel.OperationRetrieve, url.Values{
		crmmodel.ParamID: {id},
	})
}

// Create inserts element as a new record of elementType. Strings, byte slices and
// json.RawMessage are sent as they are; any other value is JSON encoded.
func (c *Client) Create(ctx context.Context, elementType string, element any) (*crmmodel.Response, error) {
	encoded, err := encodeElement(element, true)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Create]")
	}
	return c.dispatch(ctx, http.MethodPost, crmmodel.OperationCreate, url.Values{
		crmmodel.ParamElement:     {encoded},
		crmmodel.ParamElementType: {elementType},
	})
}

// Update replaces a record with element, which must carry the record's id.
// element is always JSON encoded.
func (c *Client) Update(ctx context.Context, element any) (*crmmodel.Response, error) {
	encoded, err := encodeElement(element, false)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Update]")
	}
	return c.dispatch(ctx, http.MethodPost, crmmodel.OperationUpdate, url.Values{
		crmmodel.ParamElement: {encoded},
	})
}

// Delete removes the record with id.
func (c *Client) Delete(ctx context.Context, id string) (*crmmodel.Response, error) {
	if err := crmmodel.ValidateID(id); err != nil {
		return nil, err
	}
	return c.dispatch(ctx, http.MethodGet, crmmodel.OperationDelete, url.Values{
		crmmodel.ParamID: {id},
	})
}

// Describe lists the fields of elementType, e.g. "Contacts".
func (c *Client) Describe(ctx context.Context, elementType string) (*crmmodel.Response, error) {
	return c.dispatch(ctx, http.MethodGet, crmmodel.OperationDescribe, url.Values{
		crmmodel.ParamElementType: {elementType},
	})
}

// Logout closes the cached session, if there is one, regardless of the
// persistent connection setting.
func (c *Client) Logout(ctx context.Context) error {
	record, err := c.manager.Record(ctx)
	if err != nil {
		return err
	}
	if !record.HasSession() {
		return nil
	}
	if err := c.logout(ctx, record.SessionID); err != nil {
		return err
	}
	return c.manager.Release(ctx, record.SessionID)
}

func encodeElement(element any, passThrough bool) (string, error) {
	if passThrough {
		switch v := element.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case json.RawMessage:
			return string(v), nil
		}
	}
	data, err := json.Marshal(element)
	if err != nil {
		return "", errors.Wrap(err, "json.Marshal")
	}
	return string(data), nil
}

func (c *Client) dispatch(ctx context.Context, method string, op crmmodel.OperationType, params url.Values) (*crmmodel.Response, error) {
	logger := c.logger.With().
		Str("request_id", uuid.NewString()).
		Str("operation", op.String()).
		Logger()

	sessionID, err := c.manager.SessionID(ctx)
	if err != nil {
		return nil, err
	}

	params.Set(crmmodel.ParamOperation, op.String())
	params.Set(crmmodel.ParamSessionName, sessionID)
	req := transport.Request{
		Method: method,
		Target: c.manager.Credentials().URL,
		Params: params,
	}

	resp, err := c.send(ctx, logger, req)
	c.metrics.RecordOperation(op.String(), err == nil && resp.Succeeded())
	switch {
	case err != nil:
		logger.Err(err).Msg("operation failed")
	case resp.ErrorCode() == crmmodel.ErrorCodeInvalidSessionID:
		logger.Info().Msg("session rejected by server, invalidating")
		if err := c.manager.InvalidateSession(ctx, sessionID); err != nil {
			logger.Err(err).Msg("failed to invalidate session")
		}
		return resp, nil
	case !resp.Succeeded():
		logger.Info().Str("code", resp.ErrorCode()).Msg("operation returned an error")
	default:
		logger.Debug().Msg("operation succeeded")
	}

	if !c.persistConnection {
		c.closeSession(ctx, logger, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// send resends req while a 200 answer carries no success flag. Any other status
// fails at once.
func (c *Client) send(ctx context.Context, logger zerolog.Logger, req transport.Request) (*crmmodel.Response, error) {
	op := req.Operation()
	var result *crmmodel.Response
	attempts, exhausted, err := auth.Retry(ctx, c.policy, logger, op, func(int) error {
		raw, err := c.doer.Do(ctx, req)
		if err != nil {
			return auth.Permanent(err)
		}
		body, decodeErr := crmmodel.DecodeResponse(raw.Body)
		if !raw.OK() {
			return auth.Permanent(crmmodel.NewError(crmmodel.ErrTransport, op, body.ErrorCode(), fmt.Sprintf("unexpected status %d", raw.StatusCode), nil))
		}
		if decodeErr != nil || !body.HasSuccess() {
			return crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", "success property not set on response", decodeErr)
		}
		result = body
		return nil
	})
	if err != nil {
		if exhausted {
			return nil, crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", fmt.Sprintf("no success flag after %d attempts", attempts), err)
		}
		return nil, err
	}
	return result, nil
}

// closeSession logs sessionID out. Failures are only logged.
func (c *Client) closeSession(ctx context.Context, logger zerolog.Logger, sessionID string) {
	if err := c.logout(ctx, sessionID); err != nil {
		logger.Warn().Err(err).Msg("logout failed")
		return
	}
	if err := c.manager.Release(ctx, sessionID); err != nil {
		logger.Warn().Err(err).Msg("failed to release session")
	}
}

func (c *Client) logout(ctx context.Context, sessionID string) error {
	op := crmmodel.OperationLogout
	raw, err := c.doer.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Target: c.manager.Credentials().URL,
		Params: url.Values{
			crmmodel.ParamOperation:   {op.String()},
			crmmodel.ParamSessionName: {sessionID},
		},
	})
	if err != nil {
		c.metrics.RecordLogout(false)
		return err
	}
	if !raw.OK() {
		c.metrics.RecordLogout(false)
		return crmmodel.NewError(crmmodel.ErrTransport, op, "", fmt.Sprintf("unexpected status %d", raw.StatusCode), nil)
	}
	body, err := crmmodel.DecodeResponse(raw.Body)
	if err != nil {
		c.metrics.RecordLogout(false)
		return crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", "undecodable body", err)
	}
	if err := body.Err(op); err != nil {
		c.metrics.RecordLogout(false)
		return err
	}
	c.metrics.RecordLogout(true)
	return nil
}
