// Package portal derives the read-only billing portal view: the coarse
// subscription state of a billable and the full frontend view model (plans
// with provider-enriched pricing, receipts, payment method, branding).
//
// Everything in this package is a pure read over the billing stores and
// provider, with one deliberate exception: resolving a billable whose
// subscription is active clears a lingering pending-checkout marker as a
// side effect, so the portal never shows a stale "waiting for webhooks"
// state after the subscription is confirmed.
package portal
