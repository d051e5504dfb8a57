package billing

import (
	"context"
	"time"
)

// Customer is the locally persisted metadata row for a billable, keyed by
// billable id and type. It is mutated only by the webhook reconciler and the
// pending-checkout command, and read by the subscription state resolver.
type Customer struct {
	BillableID         string
	BillableType       string
	PendingCheckoutID  *string
	HasHighRiskPayment bool
	TrialEndsAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OnGenericTrialAt reports whether the customer is within a generic trial
// (a trial granted before any subscription exists).
func (c *Customer) OnGenericTrialAt(now time.Time) bool {
	return c.TrialEndsAt != nil && c.TrialEndsAt.After(now)
}

// OnGenericTrial reports whether the customer is currently on a generic trial.
func (c *Customer) OnGenericTrial() bool {
	return c.OnGenericTrialAt(time.Now().UTC())
}

// CustomerUpdate describes a partial customer mutation. A nil field leaves
// the column untouched; the Clear flags null it out. Implementations must
// apply an update as a single atomic upsert so concurrent webhook and
// command writes cannot lose each other's fields.
type CustomerUpdate struct {
	PendingCheckoutID    *string
	ClearPendingCheckout bool
	HasHighRiskPayment   *bool
	TrialEndsAt          *time.Time
	ClearTrialEndsAt     bool
}

// TouchesPendingCheckout reports whether the update writes the
// pending-checkout column.
func (u CustomerUpdate) TouchesPendingCheckout() bool {
	return u.ClearPendingCheckout || u.PendingCheckoutID != nil
}

// TouchesTrialEndsAt reports whether the update writes the trial column.
func (u CustomerUpdate) TouchesTrialEndsAt() bool {
	return u.ClearTrialEndsAt || u.TrialEndsAt != nil
}

// CustomerStore persists customer metadata.
type CustomerStore interface {
	// Get returns the customer row for a billable, or ErrCustomerNotFound.
	Get(ctx context.Context, billableID, billableType string) (*Customer, error)

	// Upsert creates the row if absent and applies the partial update
	// atomically, returning the resulting row.
	Upsert(ctx context.Context, billableID, billableType string, update CustomerUpdate) (*Customer, error)
}

// Subscription is the local mirror of a provider-owned subscription. The
// provider remains the source of truth; rows here are overwritten from
// webhook payloads and command results.
type Subscription struct {
	ProviderID   string
	BillableID   string
	BillableType string
	PlanID       string
	Status       SubscriptionStatus
	Quantity     int
	PausedFrom   *time.Time
	EndsAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OnPausedGracePeriodAt reports whether the subscription has a scheduled
// pause that has not taken effect yet.
func (s *Subscription) OnPausedGracePeriodAt(now time.Time) bool {
	return s.PausedFrom != nil && s.PausedFrom.After(now)
}

// OnPausedGracePeriod reports whether the pause grace window is still open.
func (s *Subscription) OnPausedGracePeriod() bool {
	return s.OnPausedGracePeriodAt(time.Now().UTC())
}

// OnGracePeriodAt reports whether the subscription was cancelled but its end
// timestamp lies in the future.
func (s *Subscription) OnGracePeriodAt(now time.Time) bool {
	return s.EndsAt != nil && s.EndsAt.After(now)
}

// OnGracePeriod reports whether the cancellation grace window is still open.
func (s *Subscription) OnGracePeriod() bool {
	return s.OnGracePeriodAt(time.Now().UTC())
}

// ActiveAt reports whether the subscription is billable at the given time:
// not past due, not already paused, not terminally deleted, not past a
// scheduled pause, and not past its end timestamp. A subscription within a
// grace window still counts as active here; the portal state resolver applies
// its own stricter notion.
func (s *Subscription) ActiveAt(now time.Time) bool {
	if s.Status == StatusPastDue || s.Status == StatusPaused {
		return false
	}
	// Deleted with no end timestamp is terminal, not an open-ended grace window.
	if s.Status == StatusDeleted && s.EndsAt == nil {
		return false
	}
	if s.EndsAt != nil && !s.EndsAt.After(now) {
		return false
	}
	if s.PausedFrom != nil && !s.PausedFrom.After(now) {
		return false
	}
	return true
}

// Active reports whether the subscription is currently billable.
func (s *Subscription) Active() bool {
	return s.ActiveAt(time.Now().UTC())
}

// Paused reports whether the provider put the subscription in a paused state.
func (s *Subscription) Paused() bool {
	return s.Status == StatusPaused
}

// SubscriptionStore persists the local subscription mirror.
type SubscriptionStore interface {
	// Get returns the subscription with the given provider ID, or
	// ErrSubscriptionNotFound.
	Get(ctx context.Context, providerID string) (*Subscription, error)

	// GetForBillable returns the billable's most recently created
	// subscription, or ErrSubscriptionNotFound.
	GetForBillable(ctx context.Context, billableID, billableType string) (*Subscription, error)

	// ListPaused returns every subscription of the billable whose
	// provider-reported status is paused.
	ListPaused(ctx context.Context, billableID, billableType string) ([]*Subscription, error)

	// Save creates or overwrites a subscription row keyed by provider ID.
	Save(ctx context.Context, sub *Subscription) error
}
