// Package httpserver wraps net/http with graceful shutdown, env-driven
// configuration and health-check handlers.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal
// arrives, then drains in-flight requests within the configured shutdown
// deadline. Listen failures are wrapped with ErrStart, shutdown failures with
// ErrShutdown, so callers can distinguish them with errors.Is.
//
//	var cfg httpserver.Config
//	config.MustLoad(&cfg)
//
//	srv := httpserver.NewFromConfig(cfg,
//	    httpserver.WithLogger(log),
//	    httpserver.WithStartHook(func(l *slog.Logger) {
//	        l.Info("listening")
//	    }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//	    return err
//	}
//
// HealthCheckHandler doubles as a liveness probe (no checks) and a readiness
// probe (with dependency checks such as pg.Healthcheck).
package httpserver
