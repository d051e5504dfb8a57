// Package config provides a type-safe, generic and cached way to load
// application configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11 to
// deliver a convenient API that:
//
//   - Falls back to the default `.env` file in the current working directory.
//   - Parses the environment into any Go struct using field tags.
//   - Caches each successfully loaded configuration type so it is only parsed
//     once for the lifetime of the process.
//   - Exposes MustLoad for configuration the service cannot start without.
//
// Internally the package keeps a singleton cache that stores parsed struct
// copies keyed by their fully-qualified type name. Each key holds a
// sync.Once guaranteeing the parsing work runs at most once per type even
// under concurrent access.
//
// Annotate a struct with `env` tags, then populate it:
//
//	type PaddleConfig struct {
//	    APIKey        string `env:"PADDLE_API_KEY,required"`
//	    WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
//	    Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"sandbox"`
//	}
//
//	var cfg PaddleConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatalf("parsing env: %v", err)
//	}
//
// Subsequent calls to config.Load for the same type are served from the
// in-memory cache without re-parsing.
//
// Sentinel errors (ErrParsingConfig, ErrNilPointer) can be compared with
// errors.Is.
package config
