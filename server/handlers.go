package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-vtiger/auth"
	"github.com/jrsteele09/go-vtiger/crmmodel"
	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/jrsteele09/go-vtiger/internal/utils"
)

// SessionStatus describes the cached session without revealing the token or session id.
type SessionStatus struct {
	Username          string     `json:"username"`
	URL               string     `json:"url"`
	Cached            bool       `json:"cached"`
	Usable            bool       `json:"usable"`
	HasSession        bool       `json:"has_session"`
	PersistConnection bool       `json:"persist_connection"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	ExpiresIn         string     `json:"expires_in,omitempty"`
	TokenType         string     `json:"token_type,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) SessionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := s.sessionStatus(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// RenewSessionHandler makes sure a usable session exists, performing the handshake if needed.
func (s *Server) RenewSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenSource(r.Context(), s.client.Manager()).Token()
		if err != nil {
			s.writeError(w, err)
			return
		}
		status, err := s.sessionStatus(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		status.TokenType = token.Type()
		writeJSON(w, http.StatusOK, status)
	}
}

func (s *Server) InvalidateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.client.Manager().Invalidate(r.Context()); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.client.Logout(r.Context()); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) sessionStatus(r *http.Request) (*SessionStatus, error) {
	manager := s.client.Manager()
	record, err := manager.Record(r.Context())
	if err != nil {
		return nil, err
	}

	now := s.nowTime()
	creds := manager.Credentials()
	status := &SessionStatus{
		Username:          creds.Username,
		URL:               creds.URL,
		Cached:            record != nil,
		Usable:            record.Usable(now),
		HasSession:        record.HasSession(),
		PersistConnection: s.client.PersistConnection(),
	}
	if expiresAt := record.ExpiresAt(); !expiresAt.IsZero() {
		status.ExpiresAt = utils.Ptr(expiresAt.UTC())
		if status.Usable {
			status.ExpiresIn = expiresAt.Sub(now).Truncate(time.Second).String()
		}
	}
	return status, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case ierrors.Is(err, crmmodel.ErrPersistence):
		status = http.StatusInternalServerError
	case ierrors.Is(err, crmmodel.ErrLoginRejected), ierrors.Is(err, crmmodel.ErrLoginAcquisitionFailed):
		status = http.StatusUnauthorized
	case ierrors.Is(err, crmmodel.ErrOperationFailed):
		status = http.StatusConflict
	}
	s.logger.Warn().Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: crmmodel.CodeOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
