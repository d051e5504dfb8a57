package billing

import (
	"context"
	"net/http"
	"time"
)

// Provider abstracts the payment provider SDK. It owns checkout and payment
// links, subscription lifecycle mutations, pricing and receipt retrieval,
// and webhook verification. Implementations surface raw SDK failures joined
// with ErrProviderFailure so callers can map them to user-facing messages
// without leaking provider detail.
type Provider interface {
	// GeneratePayLink creates a checkout link for a new subscription.
	GeneratePayLink(ctx context.Context, req PayLinkRequest) (string, error)

	// UpdatePaymentMethodURL returns a link where the billable can update
	// the payment method behind a subscription.
	UpdatePaymentMethodURL(ctx context.Context, providerSubID string) (string, error)

	// PlanPrices returns current pricing for the given plan IDs, localized
	// by the customer's IP when the provider supports it.
	PlanPrices(ctx context.Context, planIDs []string, customerIP string) ([]PlanPrice, error)

	// PauseSubscription schedules a pause and returns the moment it takes
	// effect (the end of the already-paid period).
	PauseSubscription(ctx context.Context, providerSubID string) (pausedFrom time.Time, err error)

	// ResumeSubscription lifts a scheduled pause.
	ResumeSubscription(ctx context.Context, providerSubID string) error

	// SwapPlan moves the subscription to another plan.
	SwapPlan(ctx context.Context, providerSubID, planID string, prorate bool) error

	// UpdateQuantity sets the subscription's seat quantity.
	UpdateQuantity(ctx context.Context, providerSubID string, quantity int, prorate bool) error

	// NextPayment returns the upcoming payment for an active subscription,
	// or nil when none is scheduled.
	NextPayment(ctx context.Context, providerSubID string) (*Payment, error)

	// PaymentMethod returns a summary of the instrument paying for the
	// subscription.
	PaymentMethod(ctx context.Context, providerSubID string) (*PaymentMethod, error)

	// Receipts returns the billable's payment history, newest first.
	Receipts(ctx context.Context, b Billable) ([]Receipt, error)

	// ParseWebhookRequest verifies the provider signature on an inbound
	// webhook request and returns the normalized event. Verification
	// failures yield ErrWebhookVerificationFailed.
	ParseWebhookRequest(r *http.Request) (*WebhookEvent, error)
}

// PayLinkRequest describes a new-subscription checkout.
type PayLinkRequest struct {
	Billable Billable
	PlanID   string
	// Quantity is the initial seat count; zero means provider default (1).
	Quantity int
	// SkipTrial disables provider-side trials. The portal always sets it:
	// customers cannot change plans or quantity during a provider trial.
	SkipTrial bool
}

// PlanPrice is a provider price point for a plan. Amount is in the
// currency's minor units.
type PlanPrice struct {
	PlanID      string
	Amount      int64
	Currency    string
	IncludesTax bool
}

// Payment is an upcoming scheduled payment.
type Payment struct {
	Amount   int64
	Currency string
	Date     time.Time
}

// PaymentMethod summarizes the instrument behind a subscription. Kind is
// "card" or "paypal"; card fields are empty for non-card kinds.
type PaymentMethod struct {
	Kind           string
	CardBrand      string
	CardLastFour   string
	CardExpiration string
}

// Receipt is a completed payment. Amount is in minor units of Currency.
type Receipt struct {
	OrderID    string
	Amount     int64
	Currency   string
	PaidAt     time.Time
	ReceiptURL string
}

// EventKind is the normalized webhook event type.
type EventKind string

const (
	EventSubscriptionCreated        EventKind = "subscription_created"
	EventSubscriptionCancelled      EventKind = "subscription_cancelled"
	EventHighRiskTransactionCreated EventKind = "high_risk_transaction_created"
	EventHighRiskTransactionUpdated EventKind = "high_risk_transaction_updated"
	EventUnknown                    EventKind = "unknown"
)

// WebhookEvent is a normalized provider webhook event. BillableID and
// BillableType come from the custom data attached at checkout time.
type WebhookEvent struct {
	Kind           EventKind
	RawKind        string
	EventID        string
	SubscriptionID string
	BillableID     string
	BillableType   string
	PlanID         string
	Status         string
	Quantity       int
	OccurredAt     time.Time
}
