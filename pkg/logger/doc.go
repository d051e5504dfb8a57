// Package logger provides a context-aware wrapper around Go's slog package
// adding functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// The single factory, New, creates a *slog.Logger configured by Option
// functions: output format (text or json), minimum level, static attributes
// applied to every record, and ContextExtractor callbacks that pull
// request-scoped values (like a request id) out of the context on every
// Handle call.
//
// Helper constructors such as Error, BillableID and EventType live in attr.go
// and keep attribute naming consistent across the portal.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "billing-portal"),
//	    logger.WithContextValue("request_id", ctxKeyRequestID),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "subscription resumed",
//	    logger.BillableID(id),
//	    logger.SubscriptionID(providerID),
//	)
//
// Error and Errors produce attributes only when the supplied error is
// non-nil, so they can be passed unconditionally.
package logger
