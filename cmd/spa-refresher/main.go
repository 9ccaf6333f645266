package main

import (
	"errors"
	"flag"
	"log/slog"

	"spavail-backend/internal/app"
	"spavail-backend/internal/components/chrono"
	"spavail-backend/internal/components/serviceutil"
	"spavail-backend/internal/refresher"
)

var errNoRedis = errors.New("redis.addr must be set, the refresher publishes tokens through redis")

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	once := flag.Bool("once", false, "Refresh a single time and exit.")
	flag.Parse()

	ctx := serviceutil.SignalContext()
	tel := app.InitTelemetry(ctx, "spa-refresher", *verbose)

	cfg, err := app.ReadConfig()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	components, err := app.New(ctx, cfg, tel)
	if err != nil {
		serviceutil.Fatal("init components", err)
	}
	// Fatal exits without running defers, so cleanup goes through here
	cleanup := []func(){components.Close}
	shutdown := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}
	fatal := func(message string, err error) {
		shutdown()
		serviceutil.Fatal(message, err)
	}
	if components.Redis == nil {
		fatal("init refresher", errNoRedis)
	}

	r := refresher.NewRefresher(
		components.Acquirer,
		components.Redis,
		components.Alerter(),
		components.Time,
		tel,
		cfg.Refresher.Options(),
	)

	if *once {
		cred, err := r.RunOnce(ctx)
		if err != nil {
			fatal("refresh token", err)
		}
		slog.Info("published token", "expires_at", cred.ExpiresAt)
		shutdown()
		return
	}

	cron := chrono.NewStandardCron(components.Time, tel)
	cleanup = append(cleanup, cron.Stop)
	err = r.Start(ctx, cron, cfg.Refresher.CronSchedule())
	if err != nil {
		fatal("schedule refresher", err)
	}
	go r.RunOnce(ctx)

	slog.Info("refresher running", "schedule", cfg.Refresher.CronSchedule())
	<-ctx.Done()
	shutdown()
}
