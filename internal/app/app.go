package app

import (
	"context"
	"fmt"
	"log/slog"

	"spavail-backend/internal/availability"
	"spavail-backend/internal/catalog"
	"spavail-backend/internal/components/chrono"
	"spavail-backend/internal/components/configutil"
	"spavail-backend/internal/components/restydump"
	"spavail-backend/internal/components/telemetry"
	"spavail-backend/internal/refresher"
	"spavail-backend/internal/scrapers/browsertoken"
	"spavail-backend/internal/token"
	"spavail-backend/internal/upstream"
)

// ReadConfig reads config.json5 (and config.local.json5) from the working directory.
func ReadConfig() (Config, error) {
	return configutil.ReadConfig[Config]("config.json5")
}

// InitTelemetry installs slog and the otel providers, shutting them down once
// ctx is done. The returned API also mirrors counts to otel.
func InitTelemetry(ctx context.Context, serviceName string, verbose bool) telemetry.API {
	telemetry.InitSlog(verbose)
	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	providers, err := telemetry.SetupFromEnv(ctx, serviceName)
	if err != nil {
		slog.Warn("setup telemetry", "err", err)
	}
	go func() {
		<-ctx.Done()
		providers.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx)

	return telemetry.NewMeteredAPI(serviceName, telemetry.SlogAPI{})
}

// App holds every component wired from a Config.
type App struct {
	Config       Config
	Time         chrono.StandardTime
	Acquirer     browsertoken.Acquirer
	Tokens       *token.Cache
	Upstream     *upstream.Client
	Catalog      catalog.Resolver
	Availability availability.Aggregator
	// Redis is nil when no redis address is configured.
	Redis *token.RedisStore
}

// New wires the components. When redis is configured it is consulted for a
// shared token after the environment variable.
func New(ctx context.Context, cfg Config, tel telemetry.API) (App, error) {
	err := cfg.Validate()
	if err != nil {
		return App{}, fmt.Errorf("invalid config: %w", err)
	}
	clock, err := chrono.NewStandardTime(cfg.Timezone)
	if err != nil {
		return App{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	out := App{
		Config:   cfg,
		Time:     clock,
		Acquirer: browsertoken.NewAcquirer(cfg.Browser.Options(), tel),
	}

	sources := token.ChainSource{token.EnvSource{Variable: cfg.Token.Variable()}}
	if cfg.Redis.Addr != "" {
		store, err := token.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return App{}, err
		}
		out.Redis = &store
		sources = append(sources, store)
	}

	upstreamOpts := cfg.Upstream.Options()
	if cfg.Upstream.DumpDir != "" {
		dump, err := restydump.NewFilesystemOutput(cfg.Upstream.DumpDir)
		if err != nil {
			return App{}, fmt.Errorf("create dump dir: %w", err)
		}
		upstreamOpts.Dump = dump
	}

	out.Tokens = token.NewCache(out.Acquirer, sources, clock, tel, cfg.Token.Options())
	out.Upstream = upstream.NewClient(upstreamOpts, out.Tokens, tel)
	out.Catalog = catalog.NewResolver(out.Upstream, cfg.Upstream.LocationID, cfg.Catalog.Keywords, tel)
	out.Availability = availability.NewAggregator(
		out.Upstream,
		out.Catalog,
		cfg.Upstream.LocationID,
		clock.Location(),
		cfg.Availability.Concurrency,
		tel,
	)
	return out, nil
}

// Alerter returns an EmailAlerter when smtp is configured.
func (a App) Alerter() refresher.Alerter {
	if a.Config.Smtp.Server == "" {
		return refresher.NoopAlerter{}
	}
	return refresher.NewEmailAlerter(a.Config.Smtp)
}

func (a App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
}
