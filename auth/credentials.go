package auth

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Credentials identify one CRM integration user.
type Credentials struct {
	URL       string // Webservice endpoint, e.g. https://crm.example.com/webservice.php
	Username  string // CRM user name
	AccessKey string // Long lived access key from the user's preferences; never sent as is
}

// DeriveAccessKey returns the login credential for a challenge token: the hex encoded
// MD5 of token followed by accessKey. The server derives the same value.
func DeriveAccessKey(token, accessKey string) string {
	sum := md5.Sum([]byte(token + accessKey))
	return hex.EncodeToString(sum[:])
}

// RetryPolicy bounds the challenge and login handshake steps.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts, at least 1
	Delay       time.Duration // Initial backoff between attempts
	MaxDelay    time.Duration // Backoff cap
}

// Default retry settings.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 200 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second
)

// DefaultRetryPolicy returns 3 attempts with exponential backoff from 200ms up to 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.MaxDelay < p.Delay {
		p.MaxDelay = p.Delay
	}
	return p
}
