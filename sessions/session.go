// Package sessions persists the Vtiger challenge token and session id between calls.
//
// A Record is stored as one JSON blob under a fixed key in a Repo. Repo drivers
// (memory, file, redis, bolt) live in sub packages and register themselves with
// RegisterDriver, so callers select one by name from configuration:
//
//	import _ "github.com/jrsteele09/go-vtiger/sessions/redisstore"
//
//	repo, err := sessions.NewRepo(sessions.DriverConfig{Driver: "redis", RedisAddr: "localhost:6379"})
package sessions

import "time"

// Record is the cached authentication artifact for one CRM identity.
// Token and ExpireTime come from the challenge step; SessionID is added once login succeeds
// and is only meaningful together with the token that produced it.
type Record struct {
	Token      string `json:"token"`               // Challenge token
	ExpireTime int64  `json:"expireTime"`          // Absolute expiry, epoch seconds, issued by the server
	SessionID  string `json:"sessionid,omitempty"` // Set after a successful login
}

// Usable reports whether the record can still be used at now.
func (r *Record) Usable(now time.Time) bool {
	if r == nil {
		return false
	}
	return r.Token != "" && r.ExpireTime > now.Unix()
}

// HasSession reports whether a login has already produced a session id for this record.
func (r *Record) HasSession() bool {
	return r != nil && r.SessionID != ""
}

// ExpiresAt returns the expiry as a time.Time.
func (r *Record) ExpiresAt() time.Time {
	if r == nil || r.ExpireTime == 0 {
		return time.Time{}
	}
	return time.Unix(r.ExpireTime, 0)
}

// WithSession returns a copy of the record carrying sessionID.
func (r Record) WithSession(sessionID string) *Record {
	r.SessionID = sessionID
	return &r
}

// WithoutSession returns a copy of the record with the session id removed.
func (r Record) WithoutSession() *Record {
	r.SessionID = ""
	return &r
}
