package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"spavail-backend/internal/components/assert"
	"spavail-backend/internal/components/restydump"
	"spavail-backend/internal/components/telemetry"
	"spavail-backend/internal/token"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_request = "client.request"
	report_client_decode  = "client.decode"
)

const subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// TokenProvider supplies the credential attached to every request.
type TokenProvider interface {
	Token(ctx context.Context) (token.Credential, error)
}

type Options struct {
	BaseUrl         string
	SubscriptionKey string
	Timeout         time.Duration
	// RequestsPerSecond limits outbound calls, zero disables limiting.
	RequestsPerSecond float64
	// BypassCloudflare wraps the transport so TLS and headers look like a browser.
	BypassCloudflare bool
	// Dump receives every exchange with credentials redacted, nil disables it.
	Dump restydump.Output
}

// Client is the authenticated gateway to the booking platform's API.
type Client struct {
	http   *resty.Client
	tokens TokenProvider
	tel    telemetry.API
}

func NewClient(opts Options, tokens TokenProvider, tel telemetry.API) *Client {
	assert.NotEmptyStr(opts.BaseUrl)
	assert.NotNil(tokens)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("upstream", tel)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("accept", "application/json")
	httpClient.SetHeader(subscriptionKeyHeader, opts.SubscriptionKey)
	if opts.BypassCloudflare {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	if opts.RequestsPerSecond > 0 {
		// burst >= 1 just means that no requests will be dropped
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(1, int(opts.RequestsPerSecond)))
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, "upstream/http", tel)
	if opts.Dump != nil {
		restydump.Instrument(httpClient, opts.Dump)
	}

	return &Client{http: httpClient, tokens: tokens, tel: tel}
}

// Request performs one authenticated call and decodes the JSON response into
// out (which may be nil). body, when not nil, is sent as JSON.
//
// Non-2xx statuses become *RejectedError, undecodable bodies wrap
// ErrMalformedShape. Nothing is retried here.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, body, out any) error {
	cred, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(cred.Value).
		SetQueryParamsFromValues(query).
		SetQueryParam("access_token", cred.Value)
	if body != nil {
		req.SetHeader("content-type", "application/json").SetBody(body)
	}

	res, err := req.Execute(method, path)
	if err != nil {
		c.tel.ReportBroken(report_client_request, fmt.Errorf("fetch: %w", err), method, path)
		return err
	}
	if !res.IsSuccess() {
		rejected := &RejectedError{
			StatusCode: res.StatusCode(),
			Status:     res.Status(),
			Body:       truncate(res.String(), 512),
		}
		c.tel.ReportWarning(report_client_request, rejected, method, path, rejected.Body)
		return rejected
	}

	if out == nil {
		return nil
	}
	err = json.Unmarshal(res.Body(), out)
	if err != nil {
		c.tel.ReportBroken(report_client_decode, err, method, path)
		return fmt.Errorf("%w: %s %s: %w", ErrMalformedShape, method, path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
