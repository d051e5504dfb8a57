package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/aelsoftware/spark/pkg/billing"
	"github.com/aelsoftware/spark/pkg/clientip"
	"github.com/aelsoftware/spark/pkg/config"
	"github.com/aelsoftware/spark/pkg/httpserver"
	"github.com/aelsoftware/spark/pkg/logger"
	"github.com/aelsoftware/spark/pkg/pg"
	"github.com/aelsoftware/spark/pkg/pgstore"
	"github.com/aelsoftware/spark/pkg/portal"
	"github.com/aelsoftware/spark/pkg/requestid"
	"github.com/aelsoftware/spark/svc/billingportal"
)

type appConfig struct {
	AppName           string `env:"APP_NAME" envDefault:"Spark"`
	Env               string `env:"APP_ENV" envDefault:"development"`
	BillingConfigPath string `env:"BILLING_CONFIG_PATH" envDefault:"billing.yaml"`
}

func main() {
	var (
		appCfg    appConfig
		pgCfg     pg.Config
		httpCfg   httpserver.Config
		paddleCfg billing.PaddleConfig
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&paddleCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Env, "billing-portal"),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx := context.Background()

	if err := run(ctx, appCfg, pgCfg, httpCfg, paddleCfg, log); err != nil {
		log.ErrorContext(ctx, "billing portal stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, pgCfg pg.Config, httpCfg httpserver.Config, paddleCfg billing.PaddleConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	billingCfg, err := billing.LoadConfig(appCfg.BillingConfigPath)
	if err != nil {
		return err
	}

	provider, err := billing.NewPaddleProvider(paddleCfg)
	if err != nil {
		return err
	}

	customers := pgstore.NewCustomerStore(pool)
	subs := pgstore.NewSubscriptionStore(pool)

	catalog := billing.NewCatalog(billingCfg)
	manager := billing.NewManager()
	for _, bc := range billingCfg.Billables {
		manager.ResolveBillableUsing(bc.Type, headerResolver(bc.Type))
	}

	reconciler := billing.NewReconciler(customers, subs,
		billing.WithReconcilerLogger(log),
	)

	resolver := portal.NewResolver(customers, subs, catalog, provider,
		portal.WithResolverLogger(log),
	)
	presenter := portal.NewPresenter(billingCfg, catalog, manager, provider, customers, resolver,
		portal.WithAppName(appCfg.AppName),
		portal.WithSandbox(paddleCfg.Sandbox()),
	)

	svc := billingportal.New(billingCfg, catalog, manager, provider,
		customers, subs, reconciler, presenter,
		billingportal.WithLogger(log),
	)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware)
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log, pg.Healthcheck(pool)))
	r.Mount(billingCfg.Path, svc.Handle())

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.InfoContext(ctx, "billing portal listening",
				logger.Event("start"), logger.Component("httpserver"))
		}),
	)
	return srv.Run(ctx, r)
}

// headerBillable is the deliberately simple billable used by the reference
// deployment: identity comes from request headers set by the upstream
// authentication proxy.
type headerBillable struct {
	id    string
	typ   string
	name  string
	email string
}

func (b headerBillable) BillableID() string    { return b.id }
func (b headerBillable) BillableType() string  { return b.typ }
func (b headerBillable) BillableName() string  { return b.name }
func (b headerBillable) BillableEmail() string { return b.email }

func headerResolver(billableType string) billing.BillableResolverFunc {
	return func(r *http.Request) (billing.Billable, error) {
		id := r.Header.Get("X-Billable-Id")
		if id == "" {
			return nil, billing.ErrUnknownBillableModel
		}
		return headerBillable{
			id:    id,
			typ:   billableType,
			name:  r.Header.Get("X-Billable-Name"),
			email: r.Header.Get("X-Billable-Email"),
		}, nil
	}
}
