package billingportal

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aelsoftware/spark/pkg/billing"
	"github.com/aelsoftware/spark/pkg/clientip"
	"github.com/aelsoftware/spark/pkg/portal"
)

const (
	msgNoSubscription    = "This account does not have an active subscription."
	msgAlreadySubscribed = "You are already subscribed."
	msgInvalidPlan       = "The selected plan is invalid."
	msgCannotResume      = "This subscription has expired and cannot be resumed. Please create a new subscription."
)

type subscriptionRequest struct {
	Plan         string `json:"plan"`
	BillableType string `json:"billableType"`
}

type pendingCheckoutRequest struct {
	CheckoutID   string `json:"checkout_id"`
	BillableType string `json:"billableType"`
}

// handleNewSubscription generates a provider pay link for a new
// subscription. Trials are always skipped: the provider does not allow plan
// or quantity changes while a subscription is inside its own trial.
func (s *Service) handleNewSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(ctx, w, billing.Validation("plan", msgInvalidPlan))
		return
	}

	b, billableType, err := s.resolveBillable(r, req.BillableType)
	if err != nil {
		s.respondError(ctx, w, err)
		return
	}

	plan, err := s.catalog.Find(billableType, req.Plan)
	if err != nil {
		s.respondError(ctx, w, billing.Validation("plan", msgInvalidPlan))
		return
	}

	if sub, err := s.subs.GetForBillable(ctx, b.BillableID(), b.BillableType()); err == nil {
		if sub.ActiveAt(s.now()) {
			s.respondError(ctx, w, billing.Validation("plan", msgAlreadySubscribed))
			return
		}
	} else if !errors.Is(err, billing.ErrSubscriptionNotFound) {
		s.respondError(ctx, w, err)
		return
	}

	if err := s.manager.EnsurePlanEligibility(ctx, b, plan); err != nil {
		s.respondError(ctx, w, asValidation("plan", err))
		return
	}

	payReq := billing.PayLinkRequest{
		Billable:  b,
		PlanID:    plan.ID,
		SkipTrial: true,
	}
	if s.manager.ChargesPerSeat(billableType) {
		count, err := s.manager.SeatCount(ctx, b)
		if err != nil {
			s.respondError(ctx, w, err)
			return
		}
		payReq.Quantity = count
	}

	link, err := s.provider.GeneratePayLink(ctx, payReq)
	if err != nil {
		s.providerFailure(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"link": link})
}

// handleUpdateSubscription swaps the billable's subscription to another
// plan, prorating per configuration.
func (s *Service) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(ctx, w, billing.Validation("plan", msgInvalidPlan))
		return
	}

	b, billableType, err := s.resolveBillable(r, req.BillableType)
	if err != nil {
		s.respondError(ctx, w, err)
		return
	}

	sub, err := s.requireSubscription(ctx, w, b)
	if err != nil {
		return
	}

	plan, err := s.catalog.Find(billableType, req.Plan)
	if err != nil {
		s.respondError(ctx, w, billing.Validation("plan", msgInvalidPlan))
		return
	}

	if err := s.manager.EnsurePlanEligibility(ctx, b, plan); err != nil {
		s.respondError(ctx, w, asValidation("plan", err))
		return
	}

	if err := s.provider.SwapPlan(ctx, sub.ProviderID, plan.ID, s.cfg.Prorates); err != nil {
		s.providerFailure(ctx, w, err)
		return
	}

	sub.PlanID = plan.ID
	if err := s.subs.Save(ctx, sub); err != nil {
		s.respondError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, nil)
}

// handleCancelSubscription pauses the current subscription; the billable
// keeps access until the end of the already-paid period.
func (s *Service) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req subscriptionRequest
	_ = decodeJSON(r, &req)

	b, _, err := s.resolveBillable(r, req.BillableType)
	if err != nil {
		s.respondError(ctx, w, err)
		return
	}

	sub, err := s.requireSubscription(ctx, w, b)
	if err != nil {
		return
	}

	pausedFrom, err := s.provider.PauseSubscription(ctx, sub.ProviderID)
	if err != nil {
		s.providerFailure(ctx, w, err)
		return
	}

	sub.Status = billing.StatusPaused
	sub.PausedFrom = &pausedFrom
	if err := s.subs.Save(ctx, sub); err != nil {
		s.respondError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, nil)
}

// handleResumeSubscription lifts a pause while its grace window is still
// open, re-syncing the seat quantity for seat-charged billable types.
func (s *Service) handleResumeSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req subscriptionRequest
	_ = decodeJSON(r, &req)

	b, billableType, err := s.resolveBillable(r, req.BillableType)
	if err != nil {
		s.respondError(ctx, w, err)
		return
	}

	sub, err := s.requireSubscription(ctx, w, b)
	if err != nil {
		return
	}

	if !sub.OnPausedGracePeriodAt(s.now()) {
		s.respondError(ctx, w, billing.Validation(billing.GeneralField, msgCannotResume))
		return
	}

	if err := s.provider.ResumeSubscription(ctx, sub.ProviderID); err != nil {
		s.providerFailure(ctx, w, err)
		return
	}

	sub.Status = billing.StatusActive
	sub.PausedFrom = nil

	if s.manager.ChargesPerSeat(billableType) {
		count, err := s.manager.SeatCount(ctx, b)
		if err != nil {
			s.respondError(ctx, w, err)
			return
		}
		if err := s.provider.UpdateQuantity(ctx, sub.ProviderID, count, s.cfg.Prorates); err != nil {
			s.providerFailure(ctx, w, err)
			return
		}
		sub.Quantity = count
	}

	if err := s.subs.Save(ctx, sub); err != nil {
		s.respondError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, nil)
}

// handleUpdatePaymentMethod returns a provider-hosted link where the
// billable can update the payment method behind the subscription.
func (s *Service) handleUpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req subscriptionRequest
	_ = decodeJSON(r, &req)

	b, _, err := s.resolveBillable(r, req.BillableType)
	if err != nil {
		s.respondError(ctx, w, err)
		return
	}

	sub, err := s.requireSubscription(ctx, w, b)
	if err != nil {
		return
	}

	link, err := s.provider.UpdatePaymentMethodURL(ctx, sub.ProviderID)
	if err != nil {
		s.providerFailure(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"link": link})
}

// handleNewPendingCheckout records the checkout session the billable just
// started so the portal can show a "waiting for webhooks" state.
func (s *Service) handleNewPendingCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req pendingCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(ctx, w, billing.Validation("checkout_id", "The checkout id is invalid."))
		return
	}

	b, _, err := s.resolveBillable(r, req.BillableType)
	if err != nil {
		s.respondError(ctx, w, err)
		return
	}

	update := billing.CustomerUpdate{}
	if req.CheckoutID != "" {
		update.PendingCheckoutID = &req.CheckoutID
	}
	if _, err := s.customers.Upsert(ctx, b.BillableID(), b.BillableType(), update); err != nil {
		s.respondError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, nil)
}

// handlePortal renders the portal view model.
func (s *Service) handlePortal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	b, billableType, err := s.resolveBillable(r, chi.URLParam(r, "type"))
	if err != nil {
		s.respondError(ctx, w, err)
		return
	}

	if !s.manager.Authorized(b, r) {
		respondJSON(w, http.StatusForbidden, map[string]any{"message": "forbidden"})
		return
	}

	if s.presenter == nil {
		respondJSON(w, http.StatusNotFound, map[string]any{"message": "not_found"})
		return
	}

	vm, err := s.presenter.Present(ctx, billableType, b, portal.PresentOptions{
		Message:     r.URL.Query().Get("message"),
		SubscribeTo: r.URL.Query().Get("subscribe"),
		ClientIP:    clientip.GetIP(r),
	})
	if err != nil {
		s.respondError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, vm)
}

// requireSubscription loads the billable's subscription, responding with the
// standard validation failure when none exists. A non-nil error means the
// response has been written.
func (s *Service) requireSubscription(ctx context.Context, w http.ResponseWriter, b billing.Billable) (*billing.Subscription, error) {
	sub, err := s.subs.GetForBillable(ctx, b.BillableID(), b.BillableType())
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			s.respondError(ctx, w, billing.Validation(billing.GeneralField, msgNoSubscription))
		} else {
			s.respondError(ctx, w, err)
		}
		return nil, err
	}
	return sub, nil
}

// asValidation wraps a non-validation eligibility rejection into a
// field-level validation failure.
func asValidation(field string, err error) error {
	var verr billing.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return billing.Validation(field, err.Error())
}
