package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-vtiger/crmmodel"
	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/jrsteele09/go-vtiger/transport"
	pkgerrors "github.com/pkg/errors"
)

// credentialRejection is a login failure that a fresh challenge token may cure.
type credentialRejection struct {
	code    string
	message string
}

func (r *credentialRejection) Error() string {
	return fmt.Sprintf("credentials rejected [%s]: %s", r.code, r.message)
}

// LoginClient exchanges a challenge token for a session id.
type LoginClient struct {
	doer       transport.Doer
	creds      Credentials
	store      *sessions.TokenStore
	challenger TokenIssuer
	settings
}

// NewLoginClient creates a LoginClient. challenger supplies replacement tokens when the
// server rejects the cached one.
func NewLoginClient(doer transport.Doer, creds Credentials, store *sessions.TokenStore, challenger TokenIssuer, options ...Option) (*LoginClient, error) {
	if doer == nil {
		return nil, pkgerrors.New("[NewLoginClient] transport is required")
	}
	if store == nil {
		return nil, pkgerrors.New("[NewLoginClient] token store is required")
	}
	if challenger == nil {
		return nil, pkgerrors.New("[NewLoginClient] challenger is required")
	}
	if err := creds.Validate(); err != nil {
		return nil, pkgerrors.Wrap(err, "[NewLoginClient]")
	}
	return &LoginClient{
		doer:       doer,
		creds:      creds,
		store:      store,
		challenger: challenger,
		settings:   newSettings(options),
	}, nil
}

// Login logs in with record's token and persists the session id alongside it.
//
// INVALID_USER_CREDENTIALS and INVALID_SESSIONID discard the cached record, fetch
// and persist a fresh token, and try again until the retry budget runs out
// (ErrLoginAcquisitionFailed). Any other error code fails with ErrLoginRejected at once.
func (l *LoginClient) Login(ctx context.Context, record *sessions.Record) (string, error) {
	if record == nil || record.Token == "" {
		return "", pkgerrors.Wrap(ErrNoToken, "[LoginClient.Login]")
	}

	current := record
	var sessionID string
	attempts, exhausted, err := Retry(ctx, l.policy, l.logger, crmmodel.OperationLogin, func(int) error {
		if current == nil {
			fresh, err := l.challenger.GetToken(ctx)
			if err != nil {
				return Permanent(err)
			}
			if err := l.store.Put(ctx, fresh); err != nil {
				return Permanent(err)
			}
			current = fresh
		}

		id, err := l.login(ctx, current)
		if err == nil {
			sessionID = id
			return nil
		}

		var rejection *credentialRejection
		if !errors.As(err, &rejection) {
			return Permanent(err)
		}
		l.logger.Warn().
			Str("username", l.creds.Username).
			Str("code", rejection.code).
			Msg("login rejected, renewing challenge token")
		if err := l.store.Delete(ctx); err != nil {
			return Permanent(err)
		}
		current = nil
		return err
	})
	if err != nil {
		var rejection *credentialRejection
		if exhausted && errors.As(err, &rejection) {
			return "", crmmodel.NewError(
				crmmodel.ErrLoginAcquisitionFailed,
				crmmodel.OperationLogin,
				rejection.code,
				fmt.Sprintf("%s (after %d attempts)", rejection.message, attempts),
				nil,
			)
		}
		return "", err
	}
	return sessionID, nil
}

func (l *LoginClient) login(ctx context.Context, record *sessions.Record) (string, error) {
	op := crmmodel.OperationLogin
	resp, err := l.doer.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Target: l.creds.URL,
		Params: url.Values{
			crmmodel.ParamOperation: {op.String()},
			crmmodel.ParamUsername:  {l.creds.Username},
			crmmodel.ParamAccessKey: {DeriveAccessKey(record.Token, l.creds.AccessKey)},
		},
	})
	if err != nil {
		return "", err
	}

	body, decodeErr := crmmodel.DecodeResponse(resp.Body)
	if decodeErr == nil && body.HasSuccess() && !body.Succeeded() {
		if body.Error == nil {
			return "", crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", "error property not set when success is false", nil)
		}
		if crmmodel.IsAuthErrorCode(body.Error.Code) {
			return "", &credentialRejection{code: body.Error.Code, message: body.Error.Message}
		}
		return "", crmmodel.NewError(crmmodel.ErrLoginRejected, op, body.Error.Code, body.Error.Message, nil)
	}
	if !resp.OK() {
		return "", crmmodel.NewError(crmmodel.ErrTransport, op, "", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	if decodeErr != nil {
		return "", crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", "undecodable body", decodeErr)
	}
	if !body.HasSuccess() {
		return "", crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", "success property not set on response", nil)
	}

	var result crmmodel.LoginResult
	if err := body.Decode(&result); err != nil {
		return "", crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", "login result", err)
	}
	if result.SessionName == "" {
		return "", crmmodel.NewError(crmmodel.ErrMalformedResponse, op, "", "empty session name", nil)
	}

	if err := l.store.Put(ctx, record.WithSession(result.SessionName)); err != nil {
		return "", err
	}
	l.metrics.RecordLogin()
	l.logger.Info().
		Str("username", l.creds.Username).
		Str("user_id", result.UserID).
		Msg("logged in")
	return result.SessionName, nil
}
