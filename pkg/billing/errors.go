package billing

import "errors"

var (
	ErrUnknownBillableModel = errors.New("no billable configured for model")
	ErrUnknownBillableType  = errors.New("unknown billable type")
	ErrNoBillableResolver   = errors.New("no billable resolver registered for type")

	ErrPlanNotFound = errors.New("billing plan not found")

	ErrCustomerNotFound     = errors.New("billing customer not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")

	ErrNoSeatPricing = errors.New("no seat pricing registered for billable type")

	ErrProviderFailure           = errors.New("billing provider request failed")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")

	// Provider construction errors
	ErrMissingAPIKey        = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret = errors.New("billing provider webhook secret is required")
	ErrInvalidEnvironment   = errors.New("invalid billing provider environment")
)
