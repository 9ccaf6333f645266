package token

import (
	"context"
	"os"
	"strings"
	"time"
)

// External is a credential provisioned out-of-band. ExpiresAt is zero when the
// provisioner did not say.
type External struct {
	Value     string
	ExpiresAt time.Time
}

// ExternalSource looks up a provisioned credential. ok is false when there is
// nothing provisioned, which is not an error.
type ExternalSource interface {
	Lookup(ctx context.Context) (ext External, ok bool, err error)
}

// EnvSource reads a provisioned token from an environment variable.
type EnvSource struct {
	Variable string
}

func (s EnvSource) Lookup(context.Context) (External, bool, error) {
	value := strings.TrimSpace(os.Getenv(s.Variable))
	if value == "" {
		return External{}, false, nil
	}
	return External{Value: value}, true, nil
}

// ChainSource returns the first credential found among its sources, in order.
// A failing source does not stop the chain unless no later source has a
// credential, in which case the first error is returned.
type ChainSource []ExternalSource

func (c ChainSource) Lookup(ctx context.Context) (External, bool, error) {
	var firstErr error
	for _, src := range c {
		ext, ok, err := src.Lookup(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return ext, true, nil
		}
	}
	return External{}, false, firstErr
}
