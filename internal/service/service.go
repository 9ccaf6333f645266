package service

import (
	"context"
	"fmt"
	"time"

	"spavail-backend/internal/availability"
	"spavail-backend/internal/catalog"
	"spavail-backend/internal/components/assert"
	"spavail-backend/internal/components/chrono"
	"spavail-backend/internal/components/telemetry"
	"spavail-backend/internal/upstream"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	report_service_fetch = "service.fetch"
	report_service_retry = "service.retry"
	report_service_warm  = "service.warm"
)

// CatalogAPI resolves the services shown on the page.
type CatalogAPI interface {
	ListTargets(ctx context.Context) ([]catalog.Service, error)
}

// AvailabilityAPI builds the availability index for a range of dates.
type AvailabilityAPI interface {
	GetAll(ctx context.Context, from, to time.Time, services []catalog.Service) (availability.Index, error)
}

// TokenInvalidator drops the cached upstream credential.
type TokenInvalidator interface {
	Invalidate()
}

type Options struct {
	MinDays     int
	MaxDays     int
	DefaultDays int
	// FreshFor is both the CDN s-maxage and the local response cache ttl.
	FreshFor time.Duration
	// StaleFor is the stale-while-revalidate extension.
	StaleFor  time.Duration
	CacheSize int
	// FetchTimeout bounds a shared aggregation run, which is detached from the
	// request that started it.
	FetchTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinDays:      1,
		MaxDays:      60,
		DefaultDays:  14,
		FreshFor:     5 * time.Minute,
		StaleFor:     10 * time.Minute,
		CacheSize:    64,
		FetchTimeout: 2 * time.Minute,
	}
}

// ServiceSummary is the part of a catalog.Service exposed to clients.
type ServiceSummary struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"durationMinutes"`
}

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Response struct {
	Availability availability.Index `json:"availability"`
	Services     []ServiceSummary   `json:"services"`
	Range        DateRange          `json:"range"`
	FetchedAt    time.Time          `json:"fetchedAt"`
}

// Service answers availability queries, caching whole responses per range.
type Service struct {
	catalog      CatalogAPI
	availability AvailabilityAPI
	tokens       TokenInvalidator
	time         chrono.TimeAPI
	tel          telemetry.API
	opts         Options

	cache  *expirable.LRU[string, Response]
	flight *singleflight.Group
}

func NewService(
	catalogAPI CatalogAPI,
	availabilityAPI AvailabilityAPI,
	tokens TokenInvalidator,
	clock chrono.TimeAPI,
	tel telemetry.API,
	opts Options,
) Service {
	assert.NotNil(catalogAPI)
	assert.NotNil(availabilityAPI)
	assert.NotNil(tokens)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.Positive(opts.MinDays)
	if opts.MaxDays < opts.MinDays {
		panic(fmt.Sprintf("max days %d is below min days %d", opts.MaxDays, opts.MinDays))
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultOptions().CacheSize
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultOptions().FetchTimeout
	}
	opts.DefaultDays = ClampDays(opts.DefaultDays, opts)

	return Service{
		catalog:      catalogAPI,
		availability: availabilityAPI,
		tokens:       tokens,
		time:         clock,
		tel:          telemetry.NewScopedAPI("service", tel),
		opts:         opts,
		cache:        expirable.NewLRU[string, Response](opts.CacheSize, nil, opts.FreshFor),
		flight:       &singleflight.Group{},
	}
}

// ClampDays bounds days to [opts.MinDays, opts.MaxDays].
func ClampDays(days int, opts Options) int {
	return min(max(days, opts.MinDays), opts.MaxDays)
}

// Range returns the inclusive calendar date range covering days days from today.
func (s Service) Range(days int) (from, to time.Time) {
	from = chrono.Today(s.time)
	return from, from.AddDate(0, 0, days-1)
}

func cacheKey(from time.Time, days int) string {
	return fmt.Sprintf("%s/%d", from.Format(availability.DateLayout), days)
}

// Availability returns the response for days (clamped), served from the
// response cache while it is fresh. Concurrent misses for the same range
// share one fetch, a caller whose ctx ends stops waiting without failing the
// others.
func (s Service) Availability(ctx context.Context, days int) (Response, error) {
	days = ClampDays(days, s.opts)
	from, to := s.Range(days)
	key := cacheKey(from, days)

	cached, ok := s.cache.Get(key)
	if ok {
		return cached, nil
	}

	result := s.flight.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.FetchTimeout)
		defer cancel()
		res, err := s.fetch(fetchCtx, from, to)
		if err != nil {
			return Response{}, err
		}
		s.cache.Add(key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return Response{}, res.Err
		}
		return res.Val.(Response), nil
	}
}

// Warm refreshes the cached response for days regardless of its freshness.
//
// note: cron job point
func (s Service) Warm(ctx context.Context, days int) error {
	days = ClampDays(days, s.opts)
	from, to := s.Range(days)
	res, err := s.fetch(ctx, from, to)
	if err != nil {
		s.tel.ReportBroken(report_service_warm, err, days)
		return err
	}
	s.cache.Add(cacheKey(from, days), res)
	return nil
}

// fetch runs a full aggregation, invalidating the token and retrying once
// when the upstream rejects the request.
func (s Service) fetch(ctx context.Context, from, to time.Time) (Response, error) {
	res, err := s.fetchOnce(ctx, from, to)
	if upstream.IsRejected(err) {
		s.tel.ReportWarning(report_service_retry, err)
		s.tokens.Invalidate()
		res, err = s.fetchOnce(ctx, from, to)
	}
	if err != nil {
		s.tel.ReportBroken(report_service_fetch, err)
		return Response{}, err
	}
	return res, nil
}

func (s Service) fetchOnce(ctx context.Context, from, to time.Time) (Response, error) {
	services, err := s.catalog.ListTargets(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("list services: %w", err)
	}
	if services == nil {
		services = []catalog.Service{}
	}

	index, err := s.availability.GetAll(ctx, from, to, services)
	if err != nil {
		return Response{}, fmt.Errorf("get availability: %w", err)
	}
	if index == nil {
		index = availability.Index{}
	}

	summaries := make([]ServiceSummary, len(services))
	for i, svc := range services {
		summaries[i] = ServiceSummary{
			ID:              svc.ID,
			Name:            svc.Name,
			Price:           svc.Price,
			DurationMinutes: svc.DurationMinutes,
		}
	}

	return Response{
		Availability: index,
		Services:     summaries,
		Range: DateRange{
			From: from.Format(availability.DateLayout),
			To:   to.Format(availability.DateLayout),
		},
		FetchedAt: s.time.Now(),
	}, nil
}
