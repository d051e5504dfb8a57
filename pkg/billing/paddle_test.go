package billing_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelsoftware/spark/pkg/billing"
)

const testWebhookSecret = "pdl_ntfset_test_secret"

func newTestPaddleProvider(t *testing.T) *billing.PaddleProvider {
	t.Helper()

	provider, err := billing.NewPaddleProvider(billing.PaddleConfig{
		APIKey:        "test_api_key",
		WebhookSecret: testWebhookSecret,
		Environment:   "sandbox",
	})
	require.NoError(t, err)
	return provider
}

func signedWebhookRequest(t *testing.T, body string) *http.Request {
	t.Helper()

	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(ts + ":" + body))

	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(body))
	req.Header.Set("Paddle-Signature", fmt.Sprintf("ts=%s;h1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return req
}

func TestNewPaddleProvider(t *testing.T) {
	t.Parallel()

	t.Run("missing api key", func(t *testing.T) {
		t.Parallel()

		_, err := billing.NewPaddleProvider(billing.PaddleConfig{WebhookSecret: "s"})
		assert.ErrorIs(t, err, billing.ErrMissingAPIKey)
	})

	t.Run("missing webhook secret", func(t *testing.T) {
		t.Parallel()

		_, err := billing.NewPaddleProvider(billing.PaddleConfig{APIKey: "k"})
		assert.ErrorIs(t, err, billing.ErrMissingWebhookSecret)
	})

	t.Run("unknown environment", func(t *testing.T) {
		t.Parallel()

		_, err := billing.NewPaddleProvider(billing.PaddleConfig{
			APIKey:        "k",
			WebhookSecret: "s",
			Environment:   "staging",
		})
		assert.ErrorIs(t, err, billing.ErrInvalidEnvironment)
	})
}

func TestPaddleProvider_ParseWebhookRequest(t *testing.T) {
	t.Parallel()

	provider := newTestPaddleProvider(t)

	body := `{
		"event_id": "evt_01h8bzakzx3hm2fmen703n5q45",
		"event_type": "subscription.created",
		"occurred_at": "2026-03-15T12:00:00Z",
		"data": {
			"id": "sub_01h8bzp33pbaredcrstnfgsz3y",
			"status": "active",
			"custom_data": {"billable_id": "user-42", "billable_type": "user"},
			"items": [{"quantity": 3, "price": {"id": "pri_standard_monthly"}}]
		}
	}`

	event, err := provider.ParseWebhookRequest(signedWebhookRequest(t, body))
	require.NoError(t, err)

	assert.Equal(t, billing.EventSubscriptionCreated, event.Kind)
	assert.Equal(t, "subscription.created", event.RawKind)
	assert.Equal(t, "evt_01h8bzakzx3hm2fmen703n5q45", event.EventID)
	assert.Equal(t, "sub_01h8bzp33pbaredcrstnfgsz3y", event.SubscriptionID)
	assert.Equal(t, "active", event.Status)
	assert.Equal(t, "user-42", event.BillableID)
	assert.Equal(t, "user", event.BillableType)
	assert.Equal(t, 3, event.Quantity)
	assert.Equal(t, "pri_standard_monthly", event.PlanID)
	assert.Equal(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC), event.OccurredAt)
}

func TestPaddleProvider_ParseWebhookRequest_TransactionEvent(t *testing.T) {
	t.Parallel()

	provider := newTestPaddleProvider(t)

	body := `{
		"event_id": "evt_txn",
		"event_type": "transaction.payment_under_review",
		"occurred_at": "2026-03-15T12:00:00Z",
		"data": {
			"id": "txn_01h8bzr7kz",
			"subscription_id": "sub_01h8bzp33p",
			"status": "past_due"
		}
	}`

	event, err := provider.ParseWebhookRequest(signedWebhookRequest(t, body))
	require.NoError(t, err)

	assert.Equal(t, billing.EventHighRiskTransactionCreated, event.Kind)
	assert.Equal(t, "sub_01h8bzp33p", event.SubscriptionID)
}

func TestPaddleProvider_ParseWebhookRequest_UnknownType(t *testing.T) {
	t.Parallel()

	provider := newTestPaddleProvider(t)

	body := `{"event_id":"evt_x","event_type":"customer.updated","occurred_at":"2026-03-15T12:00:00Z","data":{"id":"ctm_123"}}`

	event, err := provider.ParseWebhookRequest(signedWebhookRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, billing.EventUnknown, event.Kind)
	assert.Equal(t, "customer.updated", event.RawKind)
}

func TestPaddleProvider_ParseWebhookRequest_BadSignature(t *testing.T) {
	t.Parallel()

	provider := newTestPaddleProvider(t)

	req := signedWebhookRequest(t, `{"event_type":"subscription.created"}`)
	req.Header.Set("Paddle-Signature", "ts=1671552777;h1="+strings.Repeat("0", 64))

	_, err := provider.ParseWebhookRequest(req)
	assert.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)
}
