package main

import (
	"context"
	"flag"
	"time"

	"spavail-backend/internal/app"
	"spavail-backend/internal/components/chrono"
	"spavail-backend/internal/components/serviceutil"
	"spavail-backend/internal/service"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	warm := flag.Bool("warm", false, "Warm the response cache immediately on run.")
	flag.Parse()

	ctx := serviceutil.SignalContext()
	tel := app.InitTelemetry(ctx, "spa-server", *verbose)

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

	svc := service.NewService(
		components.Catalog,
		components.Availability,
		components.Tokens,
		components.Time,
		tel,
		cfg.Server.Options(),
	)

	warmDays := cfg.DefaultWarmDays()
	warmCache := func() {
		warmCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		svc.Warm(warmCtx, warmDays)
	}
	if cfg.Server.WarmSchedule != "" {
		cron := chrono.NewStandardCron(components.Time, tel)
		cleanup = append(cleanup, cron.Stop)
		err = cron.Cron(cfg.Server.WarmSchedule, warmCache)
		if err != nil {
			fatal("schedule cache warmer", err)
		}
	}
	if *warm {
		go warmCache()
	}

	err = serviceutil.StartHttpServer(ctx, cfg.Server.ListenPort(), svc.Handler())
	if err != nil {
		fatal("serve http", err)
	}
	shutdown()
}
