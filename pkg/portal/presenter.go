package portal

import (
	"context"
	"errors"
	"time"

	"github.com/aelsoftware/spark/pkg/billing"
)

// ViewModel is the data shared with the billing portal frontend. Field names
// match what the portal's frontend expects.
type ViewModel struct {
	AppLogo            string           `json:"appLogo"`
	AppName            string           `json:"appName"`
	Sandbox            bool             `json:"sandbox"`
	BillableID         string           `json:"billableId"`
	BillableName       string           `json:"billableName"`
	BillableType       string           `json:"billableType"`
	BrandColor         string           `json:"brandColor"`
	CardBrand          string           `json:"cardBrand"`
	CardExpirationDate string           `json:"cardExpirationDate"`
	CardLastFour       string           `json:"cardLastFour"`
	DashboardURL       string           `json:"dashboardUrl"`
	DefaultInterval    billing.Interval `json:"defaultInterval"`
	GenericTrialEndsAt *string          `json:"genericTrialEndsAt"`
	Message            string           `json:"message"`
	MonthlyPlans       []map[string]any `json:"monthlyPlans"`
	NextPayment        *NextPaymentView `json:"nextPayment"`
	PaymentMethod      string           `json:"paymentMethod"`
	Plan               map[string]any   `json:"plan"`
	Receipts           []ReceiptView    `json:"receipts"`
	SeatName           string           `json:"seatName"`
	State              Status           `json:"state"`
	SubscribingTo      map[string]any   `json:"subscribingTo"`
	TermsURL           string           `json:"termsUrl"`
	YearlyPlans        []map[string]any `json:"yearlyPlans"`
}

// NextPaymentView is the formatted upcoming payment.
type NextPaymentView struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

// ReceiptView is a formatted payment history entry.
type ReceiptView struct {
	OrderID    string `json:"order_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	PaidAt     string `json:"paid_at"`
	ReceiptURL string `json:"receipt_url"`
}

// PresentOptions carry per-request presentation inputs.
type PresentOptions struct {
	// Message is an informational passthrough shown by the frontend.
	Message string
	// SubscribeTo is the plan ID preselected by a subscribe link.
	SubscribeTo string
	// ClientIP localizes provider price previews.
	ClientIP string
}

// PresenterOption configures a Presenter.
type PresenterOption func(*Presenter)

// WithAppName sets the application name shown in the portal.
func WithAppName(name string) PresenterOption {
	return func(p *Presenter) { p.appName = name }
}

// WithSandbox marks the portal as running against the provider sandbox.
func WithSandbox(sandbox bool) PresenterOption {
	return func(p *Presenter) { p.sandbox = sandbox }
}

// WithPresenterClock overrides the time source, for tests.
func WithPresenterClock(now func() time.Time) PresenterOption {
	return func(p *Presenter) {
		if now != nil {
			p.now = now
		}
	}
}

// Presenter assembles the portal view model.
type Presenter struct {
	cfg       *billing.Config
	catalog   *billing.Catalog
	manager   *billing.Manager
	provider  billing.Provider
	customers billing.CustomerStore
	resolver  *Resolver
	appName   string
	sandbox   bool
	now       func() time.Time
}

// NewPresenter creates a Presenter over the already-constructed billing
// components.
func NewPresenter(cfg *billing.Config, catalog *billing.Catalog, manager *billing.Manager, provider billing.Provider, customers billing.CustomerStore, resolver *Resolver, opts ...PresenterOption) *Presenter {
	if cfg == nil || catalog == nil || manager == nil || customers == nil || resolver == nil {
		panic("portal: presenter dependencies are required")
	}

	p := &Presenter{
		cfg:       cfg,
		catalog:   catalog,
		manager:   manager,
		provider:  provider,
		customers: customers,
		resolver:  resolver,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Present builds the portal view model for a billable. It is a pure read
// except for the pending-checkout clearing performed by state resolution.
func (p *Presenter) Present(ctx context.Context, billableType string, b billing.Billable, opts PresentOptions) (*ViewModel, error) {
	now := p.now()

	plans := clonePlans(p.catalog.Plans(billableType))
	if err := p.enrichPlans(ctx, plans, opts.ClientIP); err != nil {
		return nil, err
	}

	state, err := p.resolver.Resolve(ctx, b)
	if err != nil {
		return nil, err
	}

	bcfg, err := p.cfg.Billable(billableType)
	if err != nil {
		return nil, err
	}

	vm := &ViewModel{
		AppLogo:         p.cfg.Brand.Logo,
		AppName:         p.appName,
		Sandbox:         p.sandbox,
		BillableID:      b.BillableID(),
		BillableName:    b.BillableName(),
		BillableType:    billableType,
		BrandColor:      p.cfg.BrandColor(),
		DashboardURL:    p.cfg.DashboardURL,
		DefaultInterval: bcfg.DefaultInterval,
		Message:         opts.Message,
		MonthlyPlans:    planViews(plans, billing.IntervalMonthly),
		Receipts:        []ReceiptView{},
		SeatName:        p.manager.SeatName(billableType),
		State:           state.Status,
		TermsURL:        p.cfg.TermsURL,
		YearlyPlans:     planViews(plans, billing.IntervalYearly),
	}

	if state.Plan != nil {
		vm.Plan = state.Plan.View()
	}
	if state.NextPayment != nil {
		vm.NextPayment = &NextPaymentView{
			Amount: FormatAmount(state.NextPayment.Amount, state.NextPayment.Currency),
			Date:   state.NextPayment.Date.Format(p.cfg.DateFormat),
		}
	}
	if state.PaymentMethod != nil {
		vm.PaymentMethod = state.PaymentMethod.Kind
		vm.CardBrand = state.PaymentMethod.CardBrand
		vm.CardLastFour = state.PaymentMethod.CardLastFour
		vm.CardExpirationDate = state.PaymentMethod.CardExpiration
	}

	if cust, err := p.customers.Get(ctx, b.BillableID(), b.BillableType()); err == nil {
		if state.Subscription == nil && cust.OnGenericTrialAt(now) {
			formatted := cust.TrialEndsAt.Format(p.cfg.DateFormat)
			vm.GenericTrialEndsAt = &formatted
		}
	} else if !errors.Is(err, billing.ErrCustomerNotFound) {
		return nil, err
	}

	if p.provider != nil {
		receipts, err := p.provider.Receipts(ctx, b)
		if err != nil {
			return nil, err
		}
		vm.Receipts = receiptViews(receipts, p.cfg.DateFormat)
	}

	if opts.SubscribeTo != "" {
		if plan, err := p.catalog.Find(billableType, opts.SubscribeTo); err == nil {
			vm.SubscribingTo = plan.View()
		}
	}

	return vm, nil
}

// clonePlans copies the catalog's plans so per-request price enrichment
// never writes through to the shared catalog entries. The scalar price
// fields are the only ones enrichment touches, so a shallow copy suffices.
func clonePlans(plans []*billing.Plan) []*billing.Plan {
	cloned := make([]*billing.Plan, len(plans))
	for i, plan := range plans {
		c := *plan
		cloned[i] = &c
	}
	return cloned
}

// enrichPlans fills price, currency and tax-inclusion from a provider price
// preview on the request's own plan copies; nothing is persisted.
func (p *Presenter) enrichPlans(ctx context.Context, plans []*billing.Plan, clientIP string) error {
	if p.provider == nil || len(plans) == 0 {
		return nil
	}

	ids := make([]string, 0, len(plans))
	for _, plan := range plans {
		ids = append(ids, plan.ID)
	}

	prices, err := p.provider.PlanPrices(ctx, ids, clientIP)
	if err != nil {
		return err
	}

	for _, price := range prices {
		for _, plan := range plans {
			if plan.ID != price.PlanID {
				continue
			}
			plan.Price = FormatAmount(price.Amount, price.Currency)
			plan.Currency = price.Currency
			plan.PriceIncludesTax = price.IncludesTax
		}
	}
	return nil
}

func planViews(plans []*billing.Plan, interval billing.Interval) []map[string]any {
	views := make([]map[string]any, 0, len(plans))
	for _, plan := range plans {
		if plan.Interval == interval && plan.Active {
			views = append(views, plan.View())
		}
	}
	return views
}

func receiptViews(receipts []billing.Receipt, dateFormat string) []ReceiptView {
	views := make([]ReceiptView, 0, len(receipts))
	for _, r := range receipts {
		if r.Amount == 0 {
			continue
		}
		views = append(views, ReceiptView{
			OrderID:    r.OrderID,
			Amount:     FormatAmount(r.Amount, r.Currency),
			Currency:   r.Currency,
			PaidAt:     r.PaidAt.Format(dateFormat),
			ReceiptURL: r.ReceiptURL,
		})
	}
	return views
}
