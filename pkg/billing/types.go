package billing

import (
	"context"
	"net/http"
)

// Interval represents the billing frequency of a plan.
type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// SubscriptionStatus mirrors the provider-reported subscription state.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusPaused   SubscriptionStatus = "paused"
	StatusDeleted  SubscriptionStatus = "deleted"
)

// Billable is an application entity capable of holding a subscription.
// The host application implements this on its own models (user, team, ...)
// and registers a resolver that locates the current billable for a request.
type Billable interface {
	BillableID() string
	BillableType() string
	BillableName() string
	BillableEmail() string
}

// BillableResolverFunc resolves the current billable from a request.
type BillableResolverFunc func(r *http.Request) (Billable, error)

// AuthorizeFunc reports whether the billable may manage billing for this request.
type AuthorizeFunc func(b Billable, r *http.Request) bool

// SeatCountFunc returns the number of seats a billable currently occupies.
// The result must be non-negative.
type SeatCountFunc func(ctx context.Context, b Billable) (int, error)

// EligibilityCheckFunc rejects a plan the billable may not subscribe to.
// Returning an error aborts the eligibility chain immediately.
type EligibilityCheckFunc func(ctx context.Context, b Billable, p *Plan) error
