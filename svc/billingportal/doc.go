// Package billingportal exposes the subscription billing portal over HTTP.
//
// The service mounts a chi router with one route per subscription command
// (subscribe, swap plan, cancel, resume, update payment method), an endpoint
// that records a freshly started checkout session, the provider webhook
// ingress and the portal view itself. Mount it under the configured portal
// path:
//
//	svc := billingportal.New(cfg, catalog, manager, provider,
//		customers, subs, reconciler, presenter,
//		billingportal.WithMiddleware(requireSession),
//	)
//	router.Mount(cfg.Path, svc.Handle())
//
// Every route except the webhook ingress runs behind the configured
// middleware chain; webhooks authenticate through signature verification
// instead of a session.
package billingportal
