package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// CancellationListener is notified after a subscription reaches its terminal
// state through a cancellation webhook.
type CancellationListener func(ctx context.Context, sub *Subscription)

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger sets the logger used for reconciliation events.
func WithReconcilerLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// WithReconcilerClock overrides the time source, for tests.
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// OnSubscriptionCancelled registers a listener for cancellation events.
func OnSubscriptionCancelled(fn CancellationListener) ReconcilerOption {
	return func(r *Reconciler) {
		if fn != nil {
			r.onCancelled = append(r.onCancelled, fn)
		}
	}
}

// Reconciler consumes normalized provider webhook events and mutates the
// locally persisted customer and subscription state to match the provider.
// Every mutation is an idempotent upsert or unconditional overwrite, so the
// same event may be delivered more than once and events of different kinds
// may arrive out of order.
type Reconciler struct {
	customers   CustomerStore
	subs        SubscriptionStore
	log         *slog.Logger
	now         func() time.Time
	onCancelled []CancellationListener
}

// NewReconciler creates a Reconciler over the given stores. Panics if either
// store is nil to fail fast during initialization.
func NewReconciler(customers CustomerStore, subs SubscriptionStore, opts ...ReconcilerOption) *Reconciler {
	if customers == nil {
		panic("billing: CustomerStore is required")
	}
	if subs == nil {
		panic("billing: SubscriptionStore is required")
	}

	r := &Reconciler{
		customers: customers,
		subs:      subs,
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle dispatches a normalized event to its handler. Unknown event kinds
// are logged and ignored. A returned ErrCustomerNotFound or
// ErrSubscriptionNotFound means the event referenced state this system does
// not know; callers should log and drop it rather than retry.
func (r *Reconciler) Handle(ctx context.Context, ev *WebhookEvent) error {
	switch ev.Kind {
	case EventSubscriptionCreated:
		return r.handleSubscriptionCreated(ctx, ev)
	case EventSubscriptionCancelled:
		return r.handleSubscriptionCancelled(ctx, ev)
	case EventHighRiskTransactionCreated:
		return r.handleHighRiskTransactionCreated(ctx, ev)
	case EventHighRiskTransactionUpdated:
		return r.handleHighRiskTransactionUpdated(ctx, ev)
	default:
		r.log.DebugContext(ctx, "ignoring webhook event", slog.String("event_type", ev.RawKind))
		return nil
	}
}

// handleSubscriptionCreated persists the new subscription, clears the
// customer's pending-checkout marker and trial end, then force-cancels every
// other paused subscription of the billable: a brand-new subscription
// supersedes a paused one, and leaving it paused would create an ambiguous
// billing state.
func (r *Reconciler) handleSubscriptionCreated(ctx context.Context, ev *WebhookEvent) error {
	now := r.now()

	sub := &Subscription{
		ProviderID:   ev.SubscriptionID,
		BillableID:   ev.BillableID,
		BillableType: ev.BillableType,
		PlanID:       ev.PlanID,
		Status:       MapPaddleStatus(ev.Status),
		Quantity:     max(ev.Quantity, 1),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// Redelivery overwrites the row but keeps the first-seen creation time.
	if existing, err := r.subs.Get(ctx, ev.SubscriptionID); err == nil {
		sub.CreatedAt = existing.CreatedAt
	}
	if err := r.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription %s: %w", ev.SubscriptionID, err)
	}

	if _, err := r.customers.Get(ctx, ev.BillableID, ev.BillableType); err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return fmt.Errorf("subscription created for %s/%s: %w", ev.BillableType, ev.BillableID, err)
		}
		return err
	}
	if _, err := r.customers.Upsert(ctx, ev.BillableID, ev.BillableType, CustomerUpdate{
		ClearPendingCheckout: true,
		ClearTrialEndsAt:     true,
	}); err != nil {
		return fmt.Errorf("clear customer markers for %s/%s: %w", ev.BillableType, ev.BillableID, err)
	}

	paused, err := r.subs.ListPaused(ctx, ev.BillableID, ev.BillableType)
	if err != nil {
		return fmt.Errorf("list paused subscriptions: %w", err)
	}
	for _, p := range paused {
		if p.ProviderID == ev.SubscriptionID {
			continue
		}
		endsAt := now
		p.Status = StatusDeleted
		p.EndsAt = &endsAt
		p.PausedFrom = nil
		if err := r.subs.Save(ctx, p); err != nil {
			return fmt.Errorf("force-cancel paused subscription %s: %w", p.ProviderID, err)
		}
		r.log.InfoContext(ctx, "force-cancelled superseded paused subscription",
			slog.String("subscription_id", p.ProviderID),
			slog.String("billable_id", ev.BillableID),
			slog.String("billable_type", ev.BillableType))
	}

	return nil
}

// handleSubscriptionCancelled moves the subscription to its terminal state.
// An unknown subscription reference is a no-op: either already processed or
// never ours. The end timestamp is stamped on the first terminal transition
// only, so redelivery leaves state byte-identical.
func (r *Reconciler) handleSubscriptionCancelled(ctx context.Context, ev *WebhookEvent) error {
	sub, err := r.subs.Get(ctx, ev.SubscriptionID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			r.log.DebugContext(ctx, "cancellation for unknown subscription",
				slog.String("subscription_id", ev.SubscriptionID))
			return nil
		}
		return err
	}

	firstTransition := sub.Status != StatusDeleted
	if firstTransition {
		endsAt := r.now()
		sub.EndsAt = &endsAt
	}
	sub.Status = StatusDeleted
	sub.PausedFrom = nil

	if err := r.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", ev.SubscriptionID, err)
	}

	// Listeners fire once per subscription, not once per delivery.
	if firstTransition {
		for _, listener := range r.onCancelled {
			listener(ctx, sub)
		}
	}
	return nil
}

func (r *Reconciler) handleHighRiskTransactionCreated(ctx context.Context, ev *WebhookEvent) error {
	flagged := true
	_, err := r.customers.Upsert(ctx, ev.BillableID, ev.BillableType, CustomerUpdate{
		HasHighRiskPayment: &flagged,
	})
	if err != nil {
		return fmt.Errorf("flag high-risk payment for %s/%s: %w", ev.BillableType, ev.BillableID, err)
	}
	return nil
}

func (r *Reconciler) handleHighRiskTransactionUpdated(ctx context.Context, ev *WebhookEvent) error {
	cleared := false
	_, err := r.customers.Upsert(ctx, ev.BillableID, ev.BillableType, CustomerUpdate{
		ClearPendingCheckout: true,
		HasHighRiskPayment:   &cleared,
	})
	if err != nil {
		return fmt.Errorf("clear high-risk payment for %s/%s: %w", ev.BillableType, ev.BillableID, err)
	}
	return nil
}
