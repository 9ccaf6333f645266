package app

import (
	"errors"
	"time"

	"spavail-backend/internal/refresher"
	"spavail-backend/internal/scrapers/browsertoken"
	"spavail-backend/internal/service"
	"spavail-backend/internal/token"
	"spavail-backend/internal/upstream"
)

// DefaultTokenVariable is the environment variable holding a provisioned token.
const DefaultTokenVariable = "SPA_ACCESS_TOKEN"

type UpstreamConfig struct {
	BaseUrl           string  `json:"base_url"`
	SubscriptionKey   string  `json:"subscription_key"`
	LocationID        int64   `json:"location_id"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	BypassCloudflare  bool    `json:"bypass_cloudflare"`
	// BookingBaseUrl is the public site booking links point to.
	BookingBaseUrl string `json:"booking_base_url"`
	// DumpDir, when set, receives one file per upstream exchange. It may start
	// with <dev_state>.
	DumpDir string `json:"dump_dir"`
}

func (c UpstreamConfig) Options() upstream.Options {
	return upstream.Options{
		BaseUrl:           c.BaseUrl,
		SubscriptionKey:   c.SubscriptionKey,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		BypassCloudflare:  c.BypassCloudflare,
	}
}

type BrowserConfig struct {
	PageUrl            string `json:"page_url"`
	UserAgent          string `json:"user_agent"`
	ExecPath           string `json:"exec_path"`
	NoSandbox          bool   `json:"no_sandbox"`
	PageTimeoutSeconds int    `json:"page_timeout_seconds"`
	PollIntervalMs     int    `json:"poll_interval_ms"`
	PollAttempts       int    `json:"poll_attempts"`
}

func (c BrowserConfig) Options() browsertoken.Options {
	return browsertoken.Options{
		PageURL:      c.PageUrl,
		UserAgent:    c.UserAgent,
		ExecPath:     c.ExecPath,
		NoSandbox:    c.NoSandbox,
		PageTimeout:  time.Duration(c.PageTimeoutSeconds) * time.Second,
		PollInterval: time.Duration(c.PollIntervalMs) * time.Millisecond,
		PollAttempts: c.PollAttempts,
	}
}

type TokenConfig struct {
	EnvVariable        string `json:"env_variable"`
	AcquiredTTLMinutes int    `json:"acquired_ttl_minutes"`
	ExternalTTLMinutes int    `json:"external_ttl_minutes"`
}

func (c TokenConfig) Options() token.CacheOptions {
	opts := token.DefaultCacheOptions()
	if c.AcquiredTTLMinutes > 0 {
		opts.AcquiredTTL = time.Duration(c.AcquiredTTLMinutes) * time.Minute
	}
	if c.ExternalTTLMinutes > 0 {
		opts.ExternalTTL = time.Duration(c.ExternalTTLMinutes) * time.Minute
	}
	return opts
}

func (c TokenConfig) Variable() string {
	if c.EnvVariable == "" {
		return DefaultTokenVariable
	}
	return c.EnvVariable
}

type CatalogConfig struct {
	Keywords []string `json:"keywords"`
}

type AvailabilityConfig struct {
	Concurrency int `json:"concurrency"`
}

type ServerConfig struct {
	Port            int `json:"port"`
	MinDays         int `json:"min_days"`
	MaxDays         int `json:"max_days"`
	DefaultDays     int `json:"default_days"`
	FreshForSeconds int `json:"fresh_for_seconds"`
	StaleForSeconds int `json:"stale_for_seconds"`
	CacheSize       int `json:"cache_size"`
	// WarmSchedule is a cron spec, empty disables warming.
	WarmSchedule string `json:"warm_schedule"`
}

func (c ServerConfig) Options() service.Options {
	opts := service.DefaultOptions()
	if c.MinDays > 0 {
		opts.MinDays = c.MinDays
	}
	if c.MaxDays > 0 {
		opts.MaxDays = c.MaxDays
	}
	if c.DefaultDays > 0 {
		opts.DefaultDays = c.DefaultDays
	}
	if c.FreshForSeconds > 0 {
		opts.FreshFor = time.Duration(c.FreshForSeconds) * time.Second
	}
	if c.StaleForSeconds > 0 {
		opts.StaleFor = time.Duration(c.StaleForSeconds) * time.Second
	}
	if c.CacheSize > 0 {
		opts.CacheSize = c.CacheSize
	}
	return opts
}

func (c ServerConfig) ListenPort() int {
	if c.Port == 0 {
		return 8000
	}
	return c.Port
}

type RefresherConfig struct {
	Schedule       string `json:"schedule"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	TTLMinutes     int    `json:"ttl_minutes"`
}

func (c RefresherConfig) Options() refresher.Options {
	opts := refresher.DefaultOptions()
	if c.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	if c.TTLMinutes > 0 {
		opts.TTL = time.Duration(c.TTLMinutes) * time.Minute
	}
	return opts
}

func (c RefresherConfig) CronSchedule() string {
	if c.Schedule == "" {
		return refresher.DefaultSchedule
	}
	return c.Schedule
}

type Config struct {
	// Timezone is the IANA name of the spa's timezone, calendar dates are
	// computed in it.
	Timezone     string               `json:"timezone"`
	Upstream     UpstreamConfig       `json:"upstream"`
	Browser      BrowserConfig        `json:"browser"`
	Token        TokenConfig          `json:"token"`
	Catalog      CatalogConfig        `json:"catalog"`
	Availability AvailabilityConfig   `json:"availability"`
	Server       ServerConfig         `json:"server"`
	Redis        token.RedisOptions   `json:"redis"`
	Refresher    RefresherConfig      `json:"refresher"`
	Smtp         refresher.SmtpConfig `json:"smtp"`
}

// DefaultWarmDays is the day count the warmer keeps hot, it matches what the
// page requests without a days parameter.
func (c Config) DefaultWarmDays() int {
	return c.Server.Options().DefaultDays
}

// Validate reports the settings that have no usable default.
func (c Config) Validate() error {
	var errs []error
	if c.Upstream.BaseUrl == "" {
		errs = append(errs, errors.New("upstream.base_url is required"))
	}
	if c.Upstream.LocationID == 0 {
		errs = append(errs, errors.New("upstream.location_id is required"))
	}
	if c.Browser.PageUrl == "" {
		errs = append(errs, errors.New("browser.page_url is required"))
	}
	return errors.Join(errs...)
}
