package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// SessionTokenType is the token type reported for session ids.
const SessionTokenType = "Session"

type sessionTokenSource struct {
	ctx     context.Context
	manager *SessionManager
}

// TokenSource exposes the manager's session id as an oauth2.TokenSource, so it
// can be wrapped with oauth2.ReuseTokenSource. Expiry is the challenge token's expiry.
func TokenSource(ctx context.Context, manager *SessionManager) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, manager: manager}
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	sessionID, err := s.manager.SessionID(s.ctx)
	if err != nil {
		return nil, err
	}
	record, err := s.manager.Record(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: sessionID,
		TokenType:   SessionTokenType,
		Expiry:      record.ExpiresAt(),
	}, nil
}
