package browsertoken

import (
	"context"
	"fmt"
	"time"

	"spavail-backend/internal/components/assert"
	"spavail-backend/internal/components/telemetry"
	"spavail-backend/internal/token"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	report_acquirer_launch   = "acquirer.launch"
	report_acquirer_navigate = "acquirer.navigate"
	report_acquirer_capture  = "acquirer.capture"
	report_acquirer_poll     = "acquirer.poll"
)

// DefaultUserAgent is a common desktop Chrome, the booking site behaves
// differently for obviously automated clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

const (
	minPageTimeout  = 15 * time.Second
	maxPageTimeout  = 30 * time.Second
	minPollAttempts = 10
	maxPollAttempts = 20
)

type Options struct {
	// PageURL is the public booking page whose bootstrap requests carry the token.
	PageURL   string
	UserAgent string
	// ExecPath overrides chromedp's browser lookup.
	ExecPath string
	// NoSandbox is needed when running as root inside containers.
	NoSandbox bool

	PageTimeout  time.Duration
	PollInterval time.Duration
	PollAttempts int
}

func DefaultOptions(pageURL string) Options {
	return Options{
		PageURL:      pageURL,
		UserAgent:    DefaultUserAgent,
		PageTimeout:  20 * time.Second,
		PollInterval: 500 * time.Millisecond,
		PollAttempts: 16,
	}
}

func clamp[T int | time.Duration](value, lo, hi T) T {
	return min(max(value, lo), hi)
}

// normalize fills zero values with defaults and keeps the timing budget within bounds.
func (o Options) normalize() Options {
	defaults := DefaultOptions(o.PageURL)
	if o.UserAgent == "" {
		o.UserAgent = defaults.UserAgent
	}
	if o.PageTimeout == 0 {
		o.PageTimeout = defaults.PageTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.PollAttempts == 0 {
		o.PollAttempts = defaults.PollAttempts
	}
	o.PageTimeout = clamp(o.PageTimeout, minPageTimeout, maxPageTimeout)
	o.PollAttempts = clamp(o.PollAttempts, minPollAttempts, maxPollAttempts)
	return o
}

// Acquirer captures an access token by loading the booking page in a fresh
// headless browser and watching its outbound requests.
type Acquirer struct {
	opts Options
	tel  telemetry.API
}

func NewAcquirer(opts Options, tel telemetry.API) Acquirer {
	assert.NotEmptyStr(opts.PageURL)
	assert.NotNil(tel)
	return Acquirer{
		opts: opts.normalize(),
		tel:  telemetry.NewScopedAPI("browser_token", tel),
	}
}

func (a Acquirer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(a.opts.UserAgent),
		chromedp.WindowSize(1366, 768),
	)
	if a.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(a.opts.ExecPath))
	}
	if a.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// Acquire implements token.Acquirer. Every call starts and tears down its own
// browser process.
//
// A browser that cannot be started yields token.ErrAcquisitionUnavailable, a
// page that never sends a token yields token.ErrAcquisitionTimeout.
func (a Acquirer) Acquire(ctx context.Context) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, a.allocatorOptions()...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	captured := &capture{}
	chromedp.ListenTarget(browserCtx, func(ev any) {
		e, ok := ev.(*network.EventRequestWillBeSent)
		if !ok || e.Request == nil {
			return
		}
		if captured.observe(e.Request.URL) {
			a.tel.ReportDebug(report_acquirer_capture, redact(captured.value()))
		}
	})

	// the first Run launches the browser, so failing here means the runtime is
	// missing or broken rather than the page being slow
	err := chromedp.Run(browserCtx, network.Enable())
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", token.ErrAcquisitionTimeout, ctx.Err())
		}
		a.tel.ReportBroken(report_acquirer_launch, err, a.opts.ExecPath)
		return "", fmt.Errorf("%w: %w", token.ErrAcquisitionUnavailable, err)
	}

	navCtx, cancelNav := context.WithTimeout(browserCtx, a.opts.PageTimeout)
	err = chromedp.Run(
		navCtx,
		chromedp.Navigate(a.opts.PageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	cancelNav()
	if err != nil {
		// background requests may have fired even though navigation reported an error
		a.tel.ReportWarning(report_acquirer_navigate, err, a.opts.PageURL)
	}

	return a.waitForToken(browserCtx, captured)
}

func (a Acquirer) waitForToken(ctx context.Context, captured *capture) (string, error) {
	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= a.opts.PollAttempts; attempt++ {
		if tok := captured.value(); tok != "" {
			a.tel.ReportDebug(report_acquirer_poll, "token observed", attempt)
			return tok, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", token.ErrAcquisitionTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
	if tok := captured.value(); tok != "" {
		return tok, nil
	}

	a.tel.ReportWarning(report_acquirer_poll, "no access token observed", a.opts.PollAttempts, a.opts.PollInterval)
	return "", token.ErrAcquisitionTimeout
}
