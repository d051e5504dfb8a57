// Package pg provides utilities for interacting with PostgreSQL using the
// pgx/v5 driver: connection pooling with retry, goose schema migrations,
// a health check and common error classification helpers.
//
// Three cooperating building blocks:
//
//   - Config, populated from environment variables via caarlos0/env, controls
//     pool limits, retry cadence and the migrations path.
//   - Connect opens a *pgxpool.Pool from Config, retrying with backoff until
//     the database becomes available.
//   - Migrate runs goose migrations over the same pool so the schema is
//     current before the portal starts serving traffic.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
// Helpers such as IsNotFoundError and IsDuplicateKeyError classify errors
// returned by pgx so store code does not inspect SQLSTATE codes directly.
package pg
