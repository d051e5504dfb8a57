package portal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aelsoftware/spark/pkg/billing"
)

// Status is the coarse portal state of a billable.
type Status string

const (
	// StatusPendingCheckout means a checkout session was started and the
	// confirming webhook has not arrived yet.
	StatusPendingCheckout Status = "pending"
	// StatusHighRiskPayment means the provider flagged a payment for review.
	StatusHighRiskPayment Status = "hasHighRiskPayment"
	// StatusOnGracePeriod means the subscription is paused but resumable.
	StatusOnGracePeriod Status = "onGracePeriod"
	// StatusActive means the subscription is active and on no grace period.
	StatusActive Status = "active"
	// StatusNone is the fallback: no subscription worth mentioning.
	StatusNone Status = "none"
)

// State is the resolved subscription state of a billable.
type State struct {
	Status        Status
	Subscription  *billing.Subscription
	Plan          *billing.Plan
	NextPayment   *billing.Payment
	PaymentMethod *billing.PaymentMethod
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverClock overrides the time source, for tests.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithResolverLogger sets the resolver's logger.
func WithResolverLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// Resolver computes a billable's current subscription state.
type Resolver struct {
	customers billing.CustomerStore
	subs      billing.SubscriptionStore
	catalog   *billing.Catalog
	provider  billing.Provider
	log       *slog.Logger
	now       func() time.Time
}

// NewResolver creates a Resolver. The provider may be nil, in which case
// next-payment and payment-method lookups are skipped.
func NewResolver(customers billing.CustomerStore, subs billing.SubscriptionStore, catalog *billing.Catalog, provider billing.Provider, opts ...ResolverOption) *Resolver {
	if customers == nil {
		panic("portal: CustomerStore is required")
	}
	if subs == nil {
		panic("portal: SubscriptionStore is required")
	}
	if catalog == nil {
		panic("portal: Catalog is required")
	}

	r := &Resolver{
		customers: customers,
		subs:      subs,
		catalog:   catalog,
		provider:  provider,
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the billable's portal state. Precedence is fixed:
// pending checkout, high-risk payment, paused grace period, active, none.
// "Active" here strictly means: subscription present, provider-reported
// active, and on no grace period of any kind.
func (r *Resolver) Resolve(ctx context.Context, b billing.Billable) (*State, error) {
	now := r.now()

	var sub *billing.Subscription
	if s, err := r.subs.GetForBillable(ctx, b.BillableID(), b.BillableType()); err == nil {
		sub = s
	} else if !errors.Is(err, billing.ErrSubscriptionNotFound) {
		return nil, err
	}

	var cust *billing.Customer
	if c, err := r.customers.Get(ctx, b.BillableID(), b.BillableType()); err == nil {
		cust = c
	} else if !errors.Is(err, billing.ErrCustomerNotFound) {
		return nil, err
	}

	isActive := sub != nil &&
		sub.ActiveAt(now) &&
		!sub.OnGracePeriodAt(now) &&
		!sub.OnPausedGracePeriodAt(now)

	// An active subscription invalidates any lingering pending-checkout
	// marker; clear it before deciding the status so the next read agrees.
	if isActive && cust != nil && cust.PendingCheckoutID != nil {
		if _, err := r.customers.Upsert(ctx, b.BillableID(), b.BillableType(), billing.CustomerUpdate{
			ClearPendingCheckout: true,
		}); err != nil {
			return nil, err
		}
		cust.PendingCheckoutID = nil
	}

	state := &State{Status: StatusNone, Subscription: sub}

	switch {
	case cust != nil && cust.PendingCheckoutID != nil && !isActive:
		state.Status = StatusPendingCheckout
	case cust != nil && cust.HasHighRiskPayment:
		state.Status = StatusHighRiskPayment
	case sub != nil && sub.OnPausedGracePeriodAt(now):
		state.Status = StatusOnGracePeriod
	case isActive:
		state.Status = StatusActive
	}

	if sub != nil && sub.ActiveAt(now) {
		if plan, err := r.catalog.Find(b.BillableType(), sub.PlanID); err == nil {
			state.Plan = plan
		}
	}

	if isActive && r.provider != nil {
		payment, err := r.provider.NextPayment(ctx, sub.ProviderID)
		if err != nil {
			return nil, err
		}
		state.NextPayment = payment

		method, err := r.provider.PaymentMethod(ctx, sub.ProviderID)
		if err != nil {
			return nil, err
		}
		state.PaymentMethod = method
	}

	return state, nil
}
