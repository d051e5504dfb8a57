package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// Sandbox reports whether the provider talks to the Paddle sandbox.
func (c PaddleConfig) Sandbox() bool {
	return strings.EqualFold(c.Environment, "sandbox")
}

// PaddleProvider implements Provider on top of the official Paddle SDK.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   PaddleConfig
}

// NewPaddleProvider creates a Paddle-backed billing provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, errors.Join(ErrInvalidEnvironment, fmt.Errorf("environment %q", config.Environment))
	}
	if err != nil {
		return nil, errors.Join(ErrProviderFailure, err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
		config:   config,
	}, nil
}

// GeneratePayLink creates a checkout transaction in Paddle and returns its
// hosted checkout URL. The billable identity travels in the transaction's
// custom data so webhooks can be correlated back to the local customer row.
func (p *PaddleProvider) GeneratePayLink(ctx context.Context, req PayLinkRequest) (string, error) {
	if req.PlanID == "" {
		return "", ErrPlanNotFound
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PlanID,
		Quantity: quantity,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"billable_id":   req.Billable.BillableID(),
			"billable_type": req.Billable.BillableType(),
		},
	}
	if email := req.Billable.BillableEmail(); email != "" {
		transactionReq.CustomData["email"] = email
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return "", errors.Join(ErrProviderFailure, err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil || *transaction.Checkout.URL == "" {
		return "", errors.Join(ErrProviderFailure, errors.New("no checkout URL returned from paddle"))
	}
	return *transaction.Checkout.URL, nil
}

// UpdatePaymentMethodURL returns a customer portal link scoped to updating
// the subscription's payment method.
func (p *PaddleProvider) UpdatePaymentMethodURL(ctx context.Context, providerSubID string) (string, error) {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: providerSubID,
	})
	if err != nil {
		return "", errors.Join(ErrProviderFailure, err)
	}

	session, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, &paddle.CreateCustomerPortalSessionRequest{
		CustomerID:      sub.CustomerID,
		SubscriptionIDs: []string{providerSubID},
	})
	if err != nil {
		return "", errors.Join(ErrProviderFailure, err)
	}

	for _, subURL := range session.URLs.Subscriptions {
		if subURL.ID == providerSubID && subURL.UpdateSubscriptionPaymentMethod != "" {
			return subURL.UpdateSubscriptionPaymentMethod, nil
		}
	}
	if session.URLs.General.Overview != "" {
		return session.URLs.General.Overview, nil
	}
	return "", errors.Join(ErrProviderFailure, errors.New("no portal URL returned from paddle"))
}

// PlanPrices previews current pricing for the given plan IDs.
func (p *PaddleProvider) PlanPrices(ctx context.Context, planIDs []string, customerIP string) ([]PlanPrice, error) {
	if len(planIDs) == 0 {
		return nil, nil
	}

	items := make([]paddle.PricePreviewItem, 0, len(planIDs))
	for _, id := range planIDs {
		items = append(items, paddle.PricePreviewItem{PriceID: id, Quantity: 1})
	}

	previewReq := &paddle.PreviewPricesRequest{Items: items}
	if customerIP != "" {
		previewReq.CustomerIPAddress = paddle.PtrTo(customerIP)
	}

	preview, err := p.client.PricingPreviewClient.PreviewPrices(ctx, previewReq)
	if err != nil {
		return nil, errors.Join(ErrProviderFailure, err)
	}

	currency := ""
	if preview.CurrencyCode != nil {
		currency = string(*preview.CurrencyCode)
	}

	prices := make([]PlanPrice, 0, len(preview.Details.LineItems))
	for _, li := range preview.Details.LineItems {
		amount, err := strconv.ParseInt(li.Totals.Total, 10, 64)
		if err != nil {
			continue
		}
		prices = append(prices, PlanPrice{
			PlanID:      li.Price.ID,
			Amount:      amount,
			Currency:    currency,
			IncludesTax: li.Price.TaxMode == paddle.TaxModeInternal,
		})
	}
	return prices, nil
}

// PauseSubscription schedules a pause at the end of the paid period.
func (p *PaddleProvider) PauseSubscription(ctx context.Context, providerSubID string) (time.Time, error) {
	sub, err := p.client.SubscriptionsClient.PauseSubscription(ctx, &paddle.PauseSubscriptionRequest{
		SubscriptionID: providerSubID,
	})
	if err != nil {
		return time.Time{}, errors.Join(ErrProviderFailure, err)
	}

	if sub.ScheduledChange != nil && sub.ScheduledChange.EffectiveAt != "" {
		if at, err := time.Parse(time.RFC3339, sub.ScheduledChange.EffectiveAt); err == nil {
			return at.UTC(), nil
		}
	}
	if sub.CurrentBillingPeriod != nil && sub.CurrentBillingPeriod.EndsAt != "" {
		if at, err := time.Parse(time.RFC3339, sub.CurrentBillingPeriod.EndsAt); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Now().UTC(), nil
}

// ResumeSubscription lifts a scheduled pause immediately.
func (p *PaddleProvider) ResumeSubscription(ctx context.Context, providerSubID string) error {
	_, err := p.client.SubscriptionsClient.ResumeSubscription(ctx, paddle.NewResumeSubscriptionRequestResumeImmediately(
		providerSubID,
		&paddle.ResumeImmediately{EffectiveFrom: paddle.PtrTo(paddle.EffectiveFromImmediately)},
	))
	if err != nil {
		return errors.Join(ErrProviderFailure, err)
	}
	return nil
}

// SwapPlan moves the subscription to another plan, billing immediately.
func (p *PaddleProvider) SwapPlan(ctx context.Context, providerSubID, planID string, prorate bool) error {
	item := paddle.NewUpdateSubscriptionItemsSubscriptionUpdateItemFromCatalog(&paddle.SubscriptionUpdateItemFromCatalog{
		PriceID:  planID,
		Quantity: 1,
	})

	_, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:       providerSubID,
		Items:                paddle.NewPatchField([]paddle.UpdateSubscriptionItems{*item}),
		ProrationBillingMode: paddle.NewPatchField(prorationMode(prorate)),
	})
	if err != nil {
		return errors.Join(ErrProviderFailure, err)
	}
	return nil
}

// UpdateQuantity sets the seat quantity on the subscription's single item.
func (p *PaddleProvider) UpdateQuantity(ctx context.Context, providerSubID string, quantity int, prorate bool) error {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: providerSubID,
	})
	if err != nil {
		return errors.Join(ErrProviderFailure, err)
	}
	if len(sub.Items) == 0 || sub.Items[0].Price.ID == "" {
		return errors.Join(ErrProviderFailure, errors.New("subscription has no items"))
	}

	item := paddle.NewUpdateSubscriptionItemsSubscriptionUpdateItemFromCatalog(&paddle.SubscriptionUpdateItemFromCatalog{
		PriceID:  sub.Items[0].Price.ID,
		Quantity: quantity,
	})

	_, err = p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:       providerSubID,
		Items:                paddle.NewPatchField([]paddle.UpdateSubscriptionItems{*item}),
		ProrationBillingMode: paddle.NewPatchField(prorationMode(prorate)),
	})
	if err != nil {
		return errors.Join(ErrProviderFailure, err)
	}
	return nil
}

// NextPayment derives the upcoming payment from the subscription's items and
// next billing timestamp.
func (p *PaddleProvider) NextPayment(ctx context.Context, providerSubID string) (*Payment, error) {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: providerSubID,
	})
	if err != nil {
		return nil, errors.Join(ErrProviderFailure, err)
	}
	if sub.NextBilledAt == nil || *sub.NextBilledAt == "" {
		return nil, nil
	}

	date, err := time.Parse(time.RFC3339, *sub.NextBilledAt)
	if err != nil {
		return nil, errors.Join(ErrProviderFailure, err)
	}

	var amount int64
	for _, item := range sub.Items {
		if item.Price.ID == "" {
			continue
		}
		unit, err := strconv.ParseInt(item.Price.UnitPrice.Amount, 10, 64)
		if err != nil {
			continue
		}
		amount += unit * int64(item.Quantity)
	}

	return &Payment{
		Amount:   amount,
		Currency: string(sub.CurrencyCode),
		Date:     date.UTC(),
	}, nil
}

// PaymentMethod summarizes the customer's default payment instrument.
func (p *PaddleProvider) PaymentMethod(ctx context.Context, providerSubID string) (*PaymentMethod, error) {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: providerSubID,
	})
	if err != nil {
		return nil, errors.Join(ErrProviderFailure, err)
	}

	methods, err := p.client.PaymentMethodsClient.ListCustomerPaymentMethods(ctx, &paddle.ListCustomerPaymentMethodsRequest{
		CustomerID: sub.CustomerID,
	})
	if err != nil {
		return nil, errors.Join(ErrProviderFailure, err)
	}

	var summary *PaymentMethod
	err = methods.Iter(ctx, func(m *paddle.PaymentMethod) (bool, error) {
		summary = &PaymentMethod{Kind: string(m.Type)}
		if m.Card != nil {
			summary.Kind = "card"
			summary.CardBrand = string(m.Card.Type)
			summary.CardLastFour = m.Card.Last4
			summary.CardExpiration = fmt.Sprintf("%02d/%d", m.Card.ExpiryMonth, m.Card.ExpiryYear)
		}
		return false, nil
	})
	if err != nil {
		return nil, errors.Join(ErrProviderFailure, err)
	}
	return summary, nil
}

// Receipts lists the billable's completed transactions, newest first.
func (p *PaddleProvider) Receipts(ctx context.Context, b Billable) ([]Receipt, error) {
	res, err := p.client.TransactionsClient.ListTransactions(ctx, &paddle.ListTransactionsRequest{
		Status: []string{"completed"},
	})
	if err != nil {
		return nil, errors.Join(ErrProviderFailure, err)
	}

	var receipts []Receipt
	err = res.Iter(ctx, func(t *paddle.Transaction) (bool, error) {
		// Only transactions carrying this billable's identity in custom data
		if !transactionBelongsTo(t.CustomData, b) {
			return true, nil
		}

		total := int64(0)
		if v, err := strconv.ParseInt(t.Details.Totals.Total, 10, 64); err == nil {
			total = v
		}

		paidAt := time.Time{}
		if t.BilledAt != nil {
			if at, err := time.Parse(time.RFC3339, *t.BilledAt); err == nil {
				paidAt = at.UTC()
			}
		}

		receipts = append(receipts, Receipt{
			OrderID:  t.ID,
			Amount:   total,
			Currency: string(t.CurrencyCode),
			PaidAt:   paidAt,
		})
		return true, nil
	})
	if err != nil {
		return nil, errors.Join(ErrProviderFailure, err)
	}
	return receipts, nil
}

func transactionBelongsTo(customData paddle.CustomData, b Billable) bool {
	if customData == nil {
		return false
	}
	id, _ := customData["billable_id"].(string)
	typ, _ := customData["billable_type"].(string)
	return id == b.BillableID() && typ == b.BillableType()
}

// ParseWebhookRequest verifies the Paddle signature and normalizes the event.
func (p *PaddleProvider) ParseWebhookRequest(r *http.Request) (*WebhookEvent, error) {
	valid, err := p.verifier.Verify(r)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read webhook body: %w", err)
	}

	var raw struct {
		EventID    string         `json:"event_id"`
		EventType  string         `json:"event_type"`
		OccurredAt string         `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	event := &WebhookEvent{
		Kind:    mapPaddleEventKind(raw.EventType),
		RawKind: raw.EventType,
		EventID: raw.EventID,
	}
	if at, err := time.Parse(time.RFC3339, raw.OccurredAt); err == nil {
		event.OccurredAt = at.UTC()
	}

	if id, ok := raw.Data["id"].(string); ok {
		event.SubscriptionID = id
	}
	if subID, ok := raw.Data["subscription_id"].(string); ok {
		event.SubscriptionID = subID
	}
	if status, ok := raw.Data["status"].(string); ok {
		event.Status = status
	}
	if customData, ok := raw.Data["custom_data"].(map[string]any); ok {
		if id, ok := customData["billable_id"].(string); ok {
			event.BillableID = id
		}
		if typ, ok := customData["billable_type"].(string); ok {
			event.BillableType = typ
		}
	}
	if items, ok := raw.Data["items"].([]any); ok && len(items) > 0 {
		if item, ok := items[0].(map[string]any); ok {
			if qty, ok := item["quantity"].(float64); ok {
				event.Quantity = int(qty)
			}
			if price, ok := item["price"].(map[string]any); ok {
				if priceID, ok := price["id"].(string); ok {
					event.PlanID = priceID
				}
			}
		}
	}

	return event, nil
}

func mapPaddleEventKind(eventType string) EventKind {
	switch eventType {
	case "subscription.created":
		return EventSubscriptionCreated
	case "subscription.canceled", "subscription.cancelled":
		return EventSubscriptionCancelled
	case "high_risk_transaction.created", "transaction.payment_under_review":
		return EventHighRiskTransactionCreated
	case "high_risk_transaction.updated", "transaction.payment_review_resolved":
		return EventHighRiskTransactionUpdated
	default:
		return EventUnknown
	}
}

// MapPaddleStatus maps a Paddle subscription status to the local status.
func MapPaddleStatus(paddleStatus string) SubscriptionStatus {
	switch strings.ToLower(paddleStatus) {
	case "trialing":
		return StatusTrialing
	case "active":
		return StatusActive
	case "past_due":
		return StatusPastDue
	case "paused":
		return StatusPaused
	case "canceled", "cancelled", "deleted":
		return StatusDeleted
	default:
		return StatusActive
	}
}

func prorationMode(prorate bool) paddle.ProrationBillingMode {
	if prorate {
		return paddle.ProrationBillingModeProratedImmediately
	}
	return paddle.ProrationBillingModeFullImmediately
}
