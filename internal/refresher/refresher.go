package refresher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spavail-backend/internal/components/assert"
	"spavail-backend/internal/components/chrono"
	"spavail-backend/internal/components/telemetry"
	"spavail-backend/internal/token"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("spavail/refresher")

const (
	report_refresher_refresh = "refresher.refresh"
	report_refresher_alert   = "refresher.alert"
)

// DefaultSchedule runs every 3 hours, inside the assumed token lifetime.
const DefaultSchedule = "0 */3 * * *"

type Options struct {
	// TTL is the expiry published with each fresh credential.
	TTL time.Duration
	// Timeout bounds a single scheduled refresh.
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		TTL:     token.DefaultCacheOptions().AcquiredTTL,
		Timeout: 2 * time.Minute,
	}
}

// Refresher acquires a credential with a browser and publishes it for the
// servers, so they never have to launch a browser themselves.
type Refresher struct {
	acquirer  token.Acquirer
	publisher token.Publisher
	alerter   Alerter
	time      chrono.TimeAPI
	tel       telemetry.API
	opts      Options
}

func NewRefresher(
	acquirer token.Acquirer,
	publisher token.Publisher,
	alerter Alerter,
	clock chrono.TimeAPI,
	tel telemetry.API,
	opts Options,
) Refresher {
	assert.NotNil(acquirer)
	assert.NotNil(publisher)
	assert.NotNil(alerter)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.Positive(opts.TTL)
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	return Refresher{
		acquirer:  acquirer,
		publisher: publisher,
		alerter:   alerter,
		time:      clock,
		tel:       telemetry.NewScopedAPI("refresher", tel),
		opts:      opts,
	}
}

// Refresh acquires and publishes one credential.
//
// A missing browser runtime is escalated through the alerter, a token that
// was not observed is only reported since the next run may succeed.
func (r Refresher) Refresh(ctx context.Context) (token.Credential, error) {
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()

	value, err := r.acquirer.Acquire(ctx)
	if err == nil && value == "" {
		err = token.ErrAcquisitionTimeout
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire token")
		r.classify(ctx, err)
		return token.Credential{}, err
	}

	now := r.time.Now()
	cred := token.Credential{
		Value:      value,
		AcquiredAt: now,
		ExpiresAt:  now.Add(r.opts.TTL),
		Source:     token.SourceAcquired,
	}
	err = r.publisher.Publish(ctx, cred, cred.ExpiresAt.Sub(now))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish token")
		r.tel.ReportBroken(report_refresher_refresh, fmt.Errorf("publish: %w", err))
		return token.Credential{}, err
	}

	r.tel.ReportDebug("published token", cred.ExpiresAt)
	return cred, nil
}

func (r Refresher) classify(ctx context.Context, err error) {
	switch {
	case errors.Is(err, token.ErrAcquisitionUnavailable):
		r.tel.ReportBroken(report_refresher_refresh, err)
		alertErr := r.alerter.Alert(
			ctx,
			"spa availability: browser unavailable",
			fmt.Sprintf(
				"The token refresher could not start a browser at %s.\n\n%v\n\nServers will fail once the shared token expires.",
				r.time.Now().Format(time.RFC3339), err,
			),
		)
		if alertErr != nil {
			r.tel.ReportBroken(report_refresher_alert, alertErr)
		}
	case errors.Is(err, token.ErrAcquisitionTimeout):
		r.tel.ReportWarning(report_refresher_refresh, err)
	default:
		r.tel.ReportBroken(report_refresher_refresh, err)
	}
}

// RunOnce is Refresh bounded by the configured Timeout, the way every
// scheduled run is.
func (r Refresher) RunOnce(ctx context.Context) (token.Credential, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	return r.Refresh(runCtx)
}

// Start schedules RunOnce on cron.
//
// note: cron job point
func (r Refresher) Start(ctx context.Context, cron chrono.CronAPI, schedule string) error {
	return cron.Cron(schedule, func() {
		r.RunOnce(ctx)
	})
}
