package token

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"spavail-backend/internal/components/assert"
	"spavail-backend/internal/components/chrono"
	"spavail-backend/internal/components/telemetry"

	"golang.org/x/sync/singleflight"
)

const (
	report_cache_token    = "cache.token"
	report_cache_external = "cache.external"
	report_cache_acquire  = "cache.acquire"
	report_cache_acquired = "cache.acquisitions"
)

type CacheOptions struct {
	// AcquiredTTL is the local lifetime of a token obtained by the Acquirer. It
	// must be shorter than AssumedLifetime so the cache lets go of a token before
	// the upstream starts rejecting it.
	AcquiredTTL time.Duration
	// ExternalTTL is the local lifetime of an externally provisioned token. The
	// provisioner's own schedule is what keeps that token fresh, this only bounds
	// how long the cache trusts it before looking again.
	ExternalTTL time.Duration
	// ResolveTimeout bounds a shared resolution. It runs detached from the
	// context of whichever caller started it.
	ResolveTimeout time.Duration
}

func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		AcquiredTTL:    AssumedLifetime - 30*time.Minute,
		ExternalTTL:    time.Hour,
		ResolveTimeout: 2 * time.Minute,
	}
}

// Cache holds the single active credential of the process.
//
// Resolution order on a miss is: externally provisioned credential, then the
// Acquirer. Concurrent misses share one resolution.
type Cache struct {
	acquirer Acquirer
	external ExternalSource
	time     chrono.TimeAPI
	tel      telemetry.API
	opts     CacheOptions

	mu      sync.Mutex
	current Credential

	flight       singleflight.Group
	acquisitions atomic.Int64
}

// NewCache creates a Cache, external may be nil.
func NewCache(acquirer Acquirer, external ExternalSource, t chrono.TimeAPI, tel telemetry.API, opts CacheOptions) *Cache {
	assert.NotNil(acquirer)
	assert.NotNil(t)
	assert.NotNil(tel)
	assert.Positive(opts.AcquiredTTL)
	assert.Positive(opts.ExternalTTL)
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = DefaultCacheOptions().ResolveTimeout
	}

	return &Cache{
		acquirer: acquirer,
		external: external,
		time:     t,
		tel:      telemetry.NewScopedAPI("token", tel),
		opts:     opts,
	}
}

func (c *Cache) cached() (Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Valid(c.time.Now()) {
		return c.current, true
	}
	return Credential{}, false
}

func (c *Cache) store(cred Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = cred
}

// Token returns the active credential, resolving a new one if there is none or
// it has expired locally. Acquisition errors are returned as is.
//
// Cancelling ctx only abandons the wait, a resolution other callers joined
// keeps running for them.
func (c *Cache) Token(ctx context.Context) (Credential, error) {
	if cred, ok := c.cached(); ok {
		return cred, nil
	}

	result := c.flight.DoChan("token", func() (any, error) {
		resolveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.ResolveTimeout)
		defer cancel()
		return c.resolve(resolveCtx)
	})

	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		if res.Shared {
			c.tel.ReportDebug(report_cache_token, "joined in-flight resolution")
		}
		return res.Val.(Credential), nil
	}
}

func (c *Cache) resolve(ctx context.Context) (Credential, error) {
	// a previous flight may have finished between the miss and this call
	if cred, ok := c.cached(); ok {
		return cred, nil
	}

	if cred, ok := c.adoptExternal(ctx); ok {
		return cred, nil
	}

	value, err := c.acquirer.Acquire(ctx)
	if err != nil {
		c.tel.ReportBroken(report_cache_acquire, err)
		return Credential{}, err
	}
	if value == "" {
		c.tel.ReportBroken(report_cache_acquire, "acquirer returned an empty token")
		return Credential{}, ErrAcquisitionTimeout
	}
	c.tel.ReportCount(report_cache_acquired, c.acquisitions.Add(1))

	now := c.time.Now()
	cred := Credential{
		Value:      value,
		AcquiredAt: now,
		ExpiresAt:  now.Add(c.opts.AcquiredTTL),
		Source:     SourceAcquired,
	}
	c.store(cred)
	return cred, nil
}

func (c *Cache) adoptExternal(ctx context.Context) (Credential, bool) {
	if c.external == nil {
		return Credential{}, false
	}

	ext, ok, err := c.external.Lookup(ctx)
	if err != nil {
		c.tel.ReportWarning(report_cache_external, err)
	}
	if !ok {
		return Credential{}, false
	}

	now := c.time.Now()
	expiresAt := now.Add(c.opts.ExternalTTL)
	if !ext.ExpiresAt.IsZero() && ext.ExpiresAt.Before(expiresAt) {
		expiresAt = ext.ExpiresAt
	}
	cred := Credential{
		Value:      ext.Value,
		AcquiredAt: now,
		ExpiresAt:  expiresAt,
		Source:     SourceExternal,
	}
	if !cred.Valid(now) {
		c.tel.ReportWarning(report_cache_external, "provisioned token already expired", ext.ExpiresAt)
		return Credential{}, false
	}

	c.tel.ReportDebug(report_cache_external, "adopted provisioned token", expiresAt)
	c.store(cred)
	return cred, true
}

// Invalidate drops the active credential so the next Token call resolves again.
func (c *Cache) Invalidate() {
	c.store(Credential{})
	c.tel.ReportDebug(report_cache_token, "invalidated")
}

// Acquisitions is the number of successful acquisitions this cache has made.
func (c *Cache) Acquisitions() int64 {
	return c.acquisitions.Load()
}
