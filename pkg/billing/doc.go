// Package billing implements the domain core of the Spark billing portal:
// the plan catalog, per-billable-type configuration, seat pricing and plan
// eligibility rules, the payment provider abstraction with its Paddle
// implementation, and the webhook reconciler that keeps locally persisted
// customer and subscription state consistent with the provider.
//
// The package is deliberately thin glue over the payment provider. The
// provider owns payment processing, dunning and card data; this package owns
// one customers table, a local mirror of subscription rows, and the
// conditional state transitions applied when provider webhooks arrive.
//
// # Plans
//
// Plans are registered per billable type, either programmatically through a
// builder or lazily from the billables configuration file:
//
//	catalog := billing.NewCatalog(cfg)
//	catalog.DefinePlan("team", "Pro", "pri_123").
//		Monthly().
//		Incentive("", "Save 20%").
//		Features("Unlimited projects", "Priority support")
//
// Price and currency are not stored: they are enriched from a provider price
// preview on every portal read.
//
// # Seats and eligibility
//
// The Manager holds the per-type callback registries. All registrations
// happen once during process startup and the registries are treated as
// immutable afterwards:
//
//	mgr := billing.NewManager()
//	mgr.ChargePerSeat("team", "member", func(ctx context.Context, b billing.Billable) (int, error) {
//		return memberCount(ctx, b.BillableID())
//	})
//	mgr.CheckPlanEligibilityUsing("team", func(ctx context.Context, b billing.Billable, p *billing.Plan) error {
//		// reject plans the team has outgrown
//		return nil
//	})
//
// # Webhook reconciliation
//
// The Reconciler consumes normalized provider events. Every mutation is an
// idempotent upsert or unconditional overwrite so duplicate and out-of-order
// delivery converge to the same state:
//
//	rec := billing.NewReconciler(customers, subscriptions,
//		billing.WithReconcilerLogger(log))
//	err := rec.Handle(ctx, event)
package billing
