package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-vtiger/crmmodel"
	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/jrsteele09/go-vtiger/transport"
	"github.com/pkg/errors"
)

// TokenIssuer obtains a fresh challenge token.
type TokenIssuer interface {
	GetToken(ctx context.Context) (*sessions.Record, error)
}

var _ TokenIssuer = (*ChallengeClient)(nil)

// ChallengeClient performs the getchallenge step of the handshake.
type ChallengeClient struct {
	doer  transport.Doer
	creds Credentials
	settings
}

// NewChallengeClient creates a ChallengeClient. Only the URL and username of creds are used.
func NewChallengeClient(doer transport.Doer, creds Credentials, options ...Option) (*ChallengeClient, error) {
	if doer == nil {
		return nil, errors.New("[NewChallengeClient] transport is required")
	}
	if creds.URL == "" || creds.Username == "" {
		return nil, errors.New("[NewChallengeClient] url and username are required")
	}
	return &ChallengeClient{
		doer:     doer,
		creds:    creds,
		settings: newSettings(options),
	}, nil
}

// GetToken requests a challenge token, retrying every failure up to the policy's
// attempt budget. The returned record carries no session id. Persisting it is
// the caller's job.
func (c *ChallengeClient) GetToken(ctx context.Context) (*sessions.Record, error) {
	var record *sessions.Record
	attempts, exhausted, err := Retry(ctx, c.policy, c.logger, crmmodel.OperationGetChallenge, func(int) error {
		r, err := c.requestToken(ctx)
		c.metrics.RecordChallenge(err == nil)
		if err != nil {
			return err
		}
		record = r
		return nil
	})
	if err != nil {
		if exhausted {
			return nil, crmmodel.NewError(
				crmmodel.ErrTokenAcquisitionFailed,
				crmmodel.OperationGetChallenge,
				crmmodel.CodeOf(err),
				fmt.Sprintf("no token after %d attempts", attempts),
				err,
			)
		}
		return nil, errors.Wrap(err, "[ChallengeClient.GetToken]")
	}

	c.logger.Debug().
		Str("username", c.creds.Username).
		Int64("expire_time", record.ExpireTime).
		Msg("challenge token acquired")
	return record, nil
}

func (c *ChallengeClient) requestToken(ctx context.Context) (*sessions.Record, error) {
	op := crmmodel.OperationGetChallenge
	resp, err := c.doer.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Target: c.creds.URL,
		Params: url.Values{
			crmmodel.ParamOperation: {op.String()},
			crmmodel.ParamUsername:  {c.creds.Username},
		},
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, crmmodel.NewError(crmmodel.ErrTransport, op, "", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := crmmodel.DecodeResponse(resp.Body)
	if err != nil {
		return nil, crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", "undecodable body", err)
	}
	if !body.Succeeded() {
		if err := body.Err(op); err != nil {
			return nil, err
		}
	}

	var result crmmodel.ChallengeResult
	if err := body.Decode(&result); err != nil {
		return nil, crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", "challenge result", err)
	}
	if result.Token == "" {
		return nil, crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", "empty token", nil)
	}
	return &sessions.Record{
		Token:      result.Token,
		ExpireTime: result.ExpireTime,
	}, nil
}
