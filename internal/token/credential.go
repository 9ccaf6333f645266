package token

import (
	"context"
	"errors"
	"time"
)

// AssumedLifetime is how long the upstream is believed to honor a captured
// token. Nothing upstream states this; it comes from watching tokens expire and
// should be re-measured whenever rejections start showing up early.
const AssumedLifetime = 4 * time.Hour

var (
	// ErrAcquisitionUnavailable means no browser could be started in this
	// environment. Retrying in-process will not help.
	ErrAcquisitionUnavailable = errors.New("token acquisition unavailable: browser runtime could not be started")
	// ErrAcquisitionTimeout means the browser ran but no request carrying an
	// access token was observed in time. Retrying later may help.
	ErrAcquisitionTimeout = errors.New("token acquisition timed out: no access token observed")
)

type Source string

const (
	SourceAcquired Source = "acquired"
	SourceExternal Source = "external"
)

// Credential is a bearer token together with the local bookkeeping of when it
// was obtained and when it stops being used. Credentials are replaced, never
// mutated.
type Credential struct {
	Value      string    `json:"value"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Source     Source    `json:"source"`
}

// Valid reports whether the credential may still be used at now.
func (c Credential) Valid(now time.Time) bool {
	return c.Value != "" && now.Before(c.ExpiresAt)
}

// Acquirer obtains a brand new token value, usually by driving a browser.
type Acquirer interface {
	Acquire(ctx context.Context) (string, error)
}

// AcquirerFunc adapts a function to Acquirer.
type AcquirerFunc func(ctx context.Context) (string, error)

func (f AcquirerFunc) Acquire(ctx context.Context) (string, error) {
	return f(ctx)
}
