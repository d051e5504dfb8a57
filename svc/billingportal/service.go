package billingportal

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aelsoftware/spark/pkg/billing"
	"github.com/aelsoftware/spark/pkg/portal"
)

// Option configures the portal service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMiddleware sets the middleware chain applied to every route except the
// webhook ingress, which must stay reachable without a session.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Service) {
		s.middleware = append(s.middleware, mw...)
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service is the HTTP surface of the billing portal: one thin handler per
// mutating subscription command, the webhook ingress, and the portal view.
// Handlers validate preconditions, consult the eligibility engine, delegate
// the actual mutation to the payment provider and map failures to
// user-facing validation messages.
type Service struct {
	cfg        *billing.Config
	catalog    *billing.Catalog
	manager    *billing.Manager
	provider   billing.Provider
	customers  billing.CustomerStore
	subs       billing.SubscriptionStore
	reconciler *billing.Reconciler
	presenter  *portal.Presenter
	log        *slog.Logger
	middleware []func(http.Handler) http.Handler
	now        func() time.Time
}

// New creates the portal service. All dependencies are required except the
// presenter, which may be nil when the host renders its own portal view.
func New(
	cfg *billing.Config,
	catalog *billing.Catalog,
	manager *billing.Manager,
	provider billing.Provider,
	customers billing.CustomerStore,
	subs billing.SubscriptionStore,
	reconciler *billing.Reconciler,
	presenter *portal.Presenter,
	opts ...Option,
) *Service {
	if cfg == nil || catalog == nil || manager == nil || provider == nil ||
		customers == nil || subs == nil || reconciler == nil {
		panic("billingportal: all service dependencies are required")
	}

	s := &Service{
		cfg:        cfg,
		catalog:    catalog,
		manager:    manager,
		provider:   provider,
		customers:  customers,
		subs:       subs,
		reconciler: reconciler,
		presenter:  presenter,
		log:        slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the portal router, ready to be mounted by the host
// application under the configured portal path.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	// Provider webhook ingress; signature-verified, no session auth.
	r.Post("/webhook", s.handleWebhook)

	r.Group(func(g chi.Router) {
		for _, mw := range s.middleware {
			g.Use(mw)
		}

		g.Post("/subscription", s.handleNewSubscription)
		g.Put("/subscription", s.handleUpdateSubscription)
		g.Put("/subscription/cancel", s.handleCancelSubscription)
		g.Put("/subscription/resume", s.handleResumeSubscription)
		g.Put("/subscription/payment-method", s.handleUpdatePaymentMethod)
		g.Post("/pending-checkout", s.handleNewPendingCheckout)

		// The optional {id} segment stays with the request; billable
		// resolvers read it via chi.URLParam when resolving on behalf
		// of another record, e.g. an admin opening a team's portal.
		g.Get("/", s.handlePortal)
		g.Get("/{type}", s.handlePortal)
		g.Get("/{type}/{id}", s.handlePortal)
	})

	return r
}

// resolveBillable resolves the current billable for a request, falling back
// to the first configured billable type when none is named.
func (s *Service) resolveBillable(r *http.Request, billableType string) (billing.Billable, string, error) {
	if billableType == "" {
		billableType = s.cfg.DefaultType()
	}
	if _, err := s.cfg.Billable(billableType); err != nil {
		return nil, "", err
	}

	b, err := s.manager.ResolveBillable(billableType, r)
	if err != nil {
		return nil, "", err
	}
	return b, billableType, nil
}
