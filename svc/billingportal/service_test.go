package billingportal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelsoftware/spark/pkg/billing"
	"github.com/aelsoftware/spark/pkg/portal"
	"github.com/aelsoftware/spark/svc/billingportal"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

type testBillable struct {
	id  string
	typ string
}

func (b testBillable) BillableID() string    { return b.id }
func (b testBillable) BillableType() string  { return b.typ }
func (b testBillable) BillableName() string  { return "Taylor" }
func (b testBillable) BillableEmail() string { return "taylor@example.com" }

// fakeProvider records mutating calls and returns configurable results.
type fakeProvider struct {
	payLinkErr   error
	swapErr      error
	pauseErr     error
	resumeErr    error
	quantityErr  error
	parsedEvent  *billing.WebhookEvent
	parseErr     error
	swapped      []string
	quantities   []int
	pausedCalled bool
	resumed      bool
}

func (p *fakeProvider) GeneratePayLink(ctx context.Context, req billing.PayLinkRequest) (string, error) {
	if p.payLinkErr != nil {
		return "", p.payLinkErr
	}
	return "https://pay.example.com/checkout", nil
}

func (p *fakeProvider) UpdatePaymentMethodURL(ctx context.Context, providerSubID string) (string, error) {
	return "https://pay.example.com/update", nil
}

func (p *fakeProvider) PlanPrices(ctx context.Context, planIDs []string, customerIP string) ([]billing.PlanPrice, error) {
	return nil, nil
}

func (p *fakeProvider) PauseSubscription(ctx context.Context, providerSubID string) (time.Time, error) {
	p.pausedCalled = true
	if p.pauseErr != nil {
		return time.Time{}, p.pauseErr
	}
	return testNow.Add(720 * time.Hour), nil
}

func (p *fakeProvider) ResumeSubscription(ctx context.Context, providerSubID string) error {
	p.resumed = true
	return p.resumeErr
}

func (p *fakeProvider) SwapPlan(ctx context.Context, providerSubID, planID string, prorate bool) error {
	if p.swapErr != nil {
		return p.swapErr
	}
	p.swapped = append(p.swapped, planID)
	return nil
}

func (p *fakeProvider) UpdateQuantity(ctx context.Context, providerSubID string, quantity int, prorate bool) error {
	if p.quantityErr != nil {
		return p.quantityErr
	}
	p.quantities = append(p.quantities, quantity)
	return nil
}

func (p *fakeProvider) NextPayment(ctx context.Context, providerSubID string) (*billing.Payment, error) {
	return nil, nil
}

func (p *fakeProvider) PaymentMethod(ctx context.Context, providerSubID string) (*billing.PaymentMethod, error) {
	return nil, nil
}

func (p *fakeProvider) Receipts(ctx context.Context, b billing.Billable) ([]billing.Receipt, error) {
	return nil, nil
}

func (p *fakeProvider) ParseWebhookRequest(r *http.Request) (*billing.WebhookEvent, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	return p.parsedEvent, nil
}

type fixture struct {
	handler   http.Handler
	provider  *fakeProvider
	customers *billing.InMemCustomerStore
	subs      *billing.InMemSubscriptionStore
	manager   *billing.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &billing.Config{
		Path:       "/billing",
		Prorates:   true,
		DateFormat: "January 2, 2006",
		Billables: []billing.BillableConfig{
			{
				Type:            "user",
				Model:           "User",
				DefaultInterval: billing.IntervalMonthly,
				Plans: []billing.PlanConfig{
					{Name: "Standard", MonthlyID: "pri_std_m", YearlyID: "pri_std_y"},
					{Name: "Pro", MonthlyID: "pri_pro_m"},
				},
			},
			{
				Type:            "team",
				Model:           "Team",
				DefaultInterval: billing.IntervalMonthly,
				Plans: []billing.PlanConfig{
					{Name: "Team", MonthlyID: "pri_team_m"},
				},
			},
		},
	}

	provider := &fakeProvider{}
	customers := billing.NewInMemCustomerStore()
	subs := billing.NewInMemSubscriptionStore()
	catalog := billing.NewCatalog(cfg)
	manager := billing.NewManager()
	for _, typ := range []string{"user", "team"} {
		typ := typ
		manager.ResolveBillableUsing(typ, func(r *http.Request) (billing.Billable, error) {
			return testBillable{id: r.Header.Get("X-Billable-Id"), typ: typ}, nil
		})
	}
	manager.ChargePerSeat("team", "member", func(ctx context.Context, b billing.Billable) (int, error) {
		return 5, nil
	})

	reconciler := billing.NewReconciler(customers, subs,
		billing.WithReconcilerClock(func() time.Time { return testNow }),
	)
	resolver := portal.NewResolver(customers, subs, catalog, provider,
		portal.WithResolverClock(func() time.Time { return testNow }),
	)
	presenter := portal.NewPresenter(cfg, catalog, manager, provider, customers, resolver,
		portal.WithAppName("Spark"),
		portal.WithPresenterClock(func() time.Time { return testNow }),
	)

	svc := billingportal.New(cfg, catalog, manager, provider, customers, subs, reconciler, presenter,
		billingportal.WithClock(func() time.Time { return testNow }),
	)

	return &fixture{
		handler:   svc.Handle(),
		provider:  provider,
		customers: customers,
		subs:      subs,
		manager:   manager,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Billable-Id", "42")
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewSubscription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/subscription", map[string]string{"plan": "pri_std_m"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://pay.example.com/checkout", decodeBody(t, rec)["link"])
}

func TestNewSubscription_InvalidPlan(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/subscription", map[string]string{"plan": "pri_ghost"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "The selected plan is invalid.", decodeBody(t, rec)["message"])
}

func TestNewSubscription_AlreadySubscribed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.subs.Save(context.Background(), &billing.Subscription{
		ProviderID:   "sub_1",
		BillableID:   "42",
		BillableType: "user",
		PlanID:       "pri_std_m",
		Status:       billing.StatusActive,
	}))

	rec := f.do(t, http.MethodPost, "/subscription", map[string]string{"plan": "pri_pro_m"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "You are already subscribed.", decodeBody(t, rec)["message"])
}

func TestNewSubscription_EligibilityRejection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.manager.CheckPlanEligibilityUsing("user", func(ctx context.Context, b billing.Billable, p *billing.Plan) error {
		return billing.Validation("plan", "This plan requires an invitation.")
	})

	rec := f.do(t, http.MethodPost, "/subscription", map[string]string{"plan": "pri_std_m"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "This plan requires an invitation.", decodeBody(t, rec)["message"])
}

func TestNewSubscription_ProviderFailureMasked(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.provider.payLinkErr = billing.ErrProviderFailure

	rec := f.do(t, http.MethodPost, "/subscription", map[string]string{"plan": "pri_std_m"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, billing.PaymentFailedMessage, decodeBody(t, rec)["message"])
}

func TestUpdateSubscription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.subs.Save(context.Background(), &billing.Subscription{
		ProviderID:   "sub_1",
		BillableID:   "42",
		BillableType: "user",
		PlanID:       "pri_std_m",
		Status:       billing.StatusActive,
	}))

	rec := f.do(t, http.MethodPut, "/subscription", map[string]string{"plan": "pri_pro_m"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"pri_pro_m"}, f.provider.swapped)

	sub, err := f.subs.Get(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "pri_pro_m", sub.PlanID)
}

func TestUpdateSubscription_NoSubscription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/subscription", map[string]string{"plan": "pri_pro_m"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "This account does not have an active subscription.", decodeBody(t, rec)["message"])
}

func TestCancelSubscription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.subs.Save(context.Background(), &billing.Subscription{
		ProviderID:   "sub_1",
		BillableID:   "42",
		BillableType: "user",
		PlanID:       "pri_std_m",
		Status:       billing.StatusActive,
	}))

	rec := f.do(t, http.MethodPut, "/subscription/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.provider.pausedCalled)

	sub, err := f.subs.Get(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaused, sub.Status)
	require.NotNil(t, sub.PausedFrom)
	assert.True(t, sub.PausedFrom.After(testNow))
}

func TestResumeSubscription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pausedFrom := testNow.Add(time.Hour)
	require.NoError(t, f.subs.Save(context.Background(), &billing.Subscription{
		ProviderID:   "sub_1",
		BillableID:   "42",
		BillableType: "user",
		PlanID:       "pri_std_m",
		Status:       billing.StatusPaused,
		PausedFrom:   &pausedFrom,
	}))

	rec := f.do(t, http.MethodPut, "/subscription/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.provider.resumed)

	sub, err := f.subs.Get(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, sub.Status)
	assert.Nil(t, sub.PausedFrom)
}

func TestResumeSubscription_Expired(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pausedFrom := testNow.Add(-time.Hour)
	require.NoError(t, f.subs.Save(context.Background(), &billing.Subscription{
		ProviderID:   "sub_1",
		BillableID:   "42",
		BillableType: "user",
		PlanID:       "pri_std_m",
		Status:       billing.StatusPaused,
		PausedFrom:   &pausedFrom,
	}))

	rec := f.do(t, http.MethodPut, "/subscription/resume", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "cannot be resumed")
	assert.False(t, f.provider.resumed)
}

func TestResumeSubscription_SeatResync(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pausedFrom := testNow.Add(time.Hour)
	require.NoError(t, f.subs.Save(context.Background(), &billing.Subscription{
		ProviderID:   "sub_1",
		BillableID:   "42",
		BillableType: "team",
		PlanID:       "pri_team_m",
		Status:       billing.StatusPaused,
		Quantity:     2,
		PausedFrom:   &pausedFrom,
	}))

	rec := f.do(t, http.MethodPut, "/subscription/resume", map[string]string{"billableType": "team"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{5}, f.provider.quantities)

	sub, err := f.subs.Get(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, 5, sub.Quantity)
}

func TestUpdatePaymentMethod(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.subs.Save(context.Background(), &billing.Subscription{
		ProviderID:   "sub_1",
		BillableID:   "42",
		BillableType: "user",
		PlanID:       "pri_std_m",
		Status:       billing.StatusActive,
	}))

	rec := f.do(t, http.MethodPut, "/subscription/payment-method", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://pay.example.com/update", decodeBody(t, rec)["link"])
}

func TestNewPendingCheckout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/pending-checkout", map[string]string{"checkout_id": "txn_abc"})
	require.Equal(t, http.StatusOK, rec.Code)

	cust, err := f.customers.Get(context.Background(), "42", "user")
	require.NoError(t, err)
	require.NotNil(t, cust.PendingCheckoutID)
	assert.Equal(t, "txn_abc", *cust.PendingCheckoutID)
}

func TestPortalView(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Spark", body["appName"])
	assert.Equal(t, "user", body["billableType"])
	assert.Equal(t, "none", body["state"])
}

func TestPortalView_Unauthorized(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.manager.AuthorizeUsing("user", func(b billing.Billable, r *http.Request) bool {
		return false
	})

	rec := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPortalView_RecordIDParam(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.manager.ResolveBillableUsing("team", func(r *http.Request) (billing.Billable, error) {
		if id := chi.URLParam(r, "id"); id != "" {
			return testBillable{id: id, typ: "team"}, nil
		}
		return testBillable{id: r.Header.Get("X-Billable-Id"), typ: "team"}, nil
	})

	rec := f.do(t, http.MethodGet, "/team/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "7", body["billableId"])
	assert.Equal(t, "team", body["billableType"])
}

func TestPortalView_UnknownType(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/org", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.customers.Upsert(context.Background(), "42", "user", billing.CustomerUpdate{})
	require.NoError(t, err)

	f.provider.parsedEvent = &billing.WebhookEvent{
		Kind:           billing.EventSubscriptionCreated,
		SubscriptionID: "sub_hooked",
		BillableID:     "42",
		BillableType:   "user",
		PlanID:         "pri_std_m",
		Status:         "active",
		Quantity:       1,
	}

	rec := f.do(t, http.MethodPost, "/webhook", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	sub, err := f.subs.Get(context.Background(), "sub_hooked")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, sub.Status)
}

func TestWebhook_BadSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.provider.parseErr = billing.ErrWebhookVerificationFailed

	rec := f.do(t, http.MethodPost, "/webhook", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhook_UnknownRecordDropped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.provider.parsedEvent = &billing.WebhookEvent{
		Kind:           billing.EventSubscriptionCreated,
		SubscriptionID: "sub_hooked",
		BillableID:     "999",
		BillableType:   "user",
		Status:         "active",
	}

	rec := f.do(t, http.MethodPost, "/webhook", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
