package refresher

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"testing"
	"time"

	"spavail-backend/internal/components/chrono"
	"spavail-backend/internal/components/telemetry"
	"spavail-backend/internal/token"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

type memoryPublisher struct {
	published []token.Credential
	ttls      []time.Duration
	err       error
}

func (p *memoryPublisher) Publish(_ context.Context, cred token.Credential, ttl time.Duration) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, cred)
	p.ttls = append(p.ttls, ttl)
	return nil
}

type recordingAlerter struct {
	subjects []string
	err      error
}

func (a *recordingAlerter) Alert(_ context.Context, subject, _ string) error {
	a.subjects = append(a.subjects, subject)
	return a.err
}

type manualCron struct {
	schedule string
	callback func()
}

func (c *manualCron) Cron(schedule string, callback func()) error {
	c.schedule = schedule
	c.callback = callback
	return nil
}

var epoch = time.Date(2024, time.June, 1, 6, 0, 0, 0, time.UTC)

func newTestRefresher(t *testing.T, acquirer token.Acquirer) (Refresher, *memoryPublisher, *recordingAlerter, telemetry.TestAPI) {
	publisher := &memoryPublisher{}
	alerter := &recordingAlerter{}
	tel := telemetry.NewTestAPI(t)
	r := NewRefresher(acquirer, publisher, alerter, chrono.NewManualTime(epoch), tel, DefaultOptions())
	return r, publisher, alerter, tel
}

func staticAcquirer(value string, err error) token.Acquirer {
	return token.AcquirerFunc(func(context.Context) (string, error) {
		return value, err
	})
}

func TestRefreshPublishes(t *testing.T) {
	r, publisher, alerter, _ := newTestRefresher(t, staticAcquirer("fresh", nil))

	cred, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, token.Credential{
		Value:      "fresh",
		AcquiredAt: epoch,
		ExpiresAt:  epoch.Add(DefaultOptions().TTL),
		Source:     token.SourceAcquired,
	}, cred)
	require.Equal(t, []token.Credential{cred}, publisher.published)
	require.Empty(t, alerter.subjects)
}

func TestRefreshPublishesTTLFromInjectedClock(t *testing.T) {
	// epoch is far in the past, the published ttl must still be the full TTL
	r, publisher, _, _ := newTestRefresher(t, staticAcquirer("fresh", nil))

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, []time.Duration{DefaultOptions().TTL}, publisher.ttls)
}

func TestRefreshTTLIsInsideAssumedLifetime(t *testing.T) {
	require.Less(t, DefaultOptions().TTL, token.AssumedLifetime)
}

func TestRefreshFailureClasses(t *testing.T) {
	table := []struct {
		name     string
		value    string
		err      error
		expected error
		alerts   int
		kind     string
	}{
		{name: "unavailable", err: token.ErrAcquisitionUnavailable, expected: token.ErrAcquisitionUnavailable, alerts: 1, kind: "broken"},
		{name: "timeout", err: token.ErrAcquisitionTimeout, expected: token.ErrAcquisitionTimeout, kind: "warning"},
		{name: "empty value", expected: token.ErrAcquisitionTimeout, kind: "warning"},
		{name: "other", err: errors.New("crashed"), kind: "broken"},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			r, publisher, alerter, tel := newTestRefresher(t, staticAcquirer(row.value, row.err))

			_, err := r.Refresh(context.Background())
			require.Error(t, err)
			if row.expected != nil {
				require.ErrorIs(t, err, row.expected)
			}
			require.Empty(t, publisher.published)
			require.Len(t, alerter.subjects, row.alerts)
			require.Len(t, tel.Reports(row.kind, report_refresher_refresh), 1)
		})
	}
}

func TestRefreshAlertFailureIsReported(t *testing.T) {
	publisher := &memoryPublisher{}
	alerter := &recordingAlerter{err: errors.New("smtp down")}
	tel := telemetry.NewTestAPI(t)
	r := NewRefresher(
		staticAcquirer("", token.ErrAcquisitionUnavailable),
		publisher, alerter, chrono.NewManualTime(epoch), tel, DefaultOptions(),
	)

	_, err := r.Refresh(context.Background())
	require.ErrorIs(t, err, token.ErrAcquisitionUnavailable)
	require.Len(t, tel.Reports("broken", report_refresher_alert), 1)
}

func TestRefreshPublishFailure(t *testing.T) {
	publisher := &memoryPublisher{err: errors.New("redis down")}
	tel := telemetry.NewTestAPI(t)
	r := NewRefresher(
		staticAcquirer("fresh", nil),
		publisher, &recordingAlerter{}, chrono.NewManualTime(epoch), tel, DefaultOptions(),
	)

	_, err := r.Refresh(context.Background())
	require.ErrorContains(t, err, "redis down")
}

func TestStartSchedulesRefresh(t *testing.T) {
	r, publisher, _, _ := newTestRefresher(t, staticAcquirer("scheduled", nil))
	cron := &manualCron{}

	require.NoError(t, r.Start(context.Background(), cron, DefaultSchedule))
	require.Equal(t, DefaultSchedule, cron.schedule)

	cron.callback()
	require.Len(t, publisher.published, 1)
	require.Equal(t, "scheduled", publisher.published[0].Value)
}

func TestRunOnceIsBoundedByTimeout(t *testing.T) {
	acquirer := token.AcquirerFunc(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", fmt.Errorf("%w: %w", token.ErrAcquisitionTimeout, ctx.Err())
	})
	opts := DefaultOptions()
	opts.Timeout = 50 * time.Millisecond
	tel := telemetry.NewTestAPI(t)
	r := NewRefresher(acquirer, &memoryPublisher{}, &recordingAlerter{}, chrono.NewManualTime(epoch), tel, opts)

	_, err := r.RunOnce(context.Background())
	require.ErrorIs(t, err, token.ErrAcquisitionTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, tel.Reports("warning", report_refresher_refresh), 1)
}

func TestEmailAlerter(t *testing.T) {
	var sent []*email.Email
	var auths []smtp.Auth
	alerter := EmailAlerter{
		config: SmtpConfig{
			Server:       "smtp.example.com",
			Port:         587,
			EmailAddress: "alerts@example.com",
			Recipients:   []string{"ops@example.com"},
		},
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			require.Equal(t, "smtp.example.com:587", addr)
			sent = append(sent, mail)
			auths = append(auths, auth)
			if auth != nil {
				return errors.New("smtp: server doesn't support AUTH")
			}
			return nil
		},
	}

	require.NoError(t, alerter.Alert(context.Background(), "subject", "body"))
	require.Len(t, sent, 2)
	require.Nil(t, auths[1])
	require.Equal(t, []string{"ops@example.com"}, sent[1].To)
	require.Equal(t, "Spa Availability <alerts@example.com>", sent[1].From)
	require.Equal(t, "subject", sent[1].Subject)
	require.Equal(t, []byte("body"), sent[1].Text)

	err := NewEmailAlerter(SmtpConfig{}).Alert(context.Background(), "s", "b")
	require.ErrorContains(t, err, "no alert recipients")
	require.NoError(t, NoopAlerter{}.Alert(context.Background(), "s", "b"))
}
