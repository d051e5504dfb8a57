package pg

import "time"

// Config carries the pool, retry and migration settings. It is loaded from
// the environment with the config package.
type Config struct {
	// URL is the Postgres connection string.
	URL string `env:"DATABASE_URL,required"`

	MaxConns          int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	MinConns          int32         `env:"DATABASE_MIN_CONNS" envDefault:"2"`
	ConnMaxIdleTime   time.Duration `env:"DATABASE_CONN_MAX_IDLE_TIME" envDefault:"10m"`
	ConnMaxLifetime   time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	HealthcheckPeriod time.Duration `env:"DATABASE_HEALTHCHECK_PERIOD" envDefault:"1m"`

	// ConnectAttempts bounds startup retries; ConnectBackoff is the base
	// delay, multiplied by the attempt number.
	ConnectAttempts int           `env:"DATABASE_CONNECT_ATTEMPTS" envDefault:"3"`
	ConnectBackoff  time.Duration `env:"DATABASE_CONNECT_BACKOFF" envDefault:"5s"`

	MigrationsDir   string `env:"DATABASE_MIGRATIONS_DIR" envDefault:"migrations"`
	MigrationsTable string `env:"DATABASE_MIGRATIONS_TABLE" envDefault:"schema_migrations"`
}
