package billingportal

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aelsoftware/spark/pkg/billing"
)

// handleWebhook ingests provider webhook deliveries. A bad signature is
// rejected outright; events referencing unknown records are acknowledged so
// the provider stops retrying a delivery that can never succeed.
func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	event, err := s.provider.ParseWebhookRequest(r)
	if err != nil {
		if errors.Is(err, billing.ErrWebhookVerificationFailed) {
			s.log.WarnContext(ctx, "webhook signature verification failed", slog.Any("error", err))
			respondJSON(w, http.StatusForbidden, map[string]any{"message": "forbidden"})
			return
		}
		s.log.WarnContext(ctx, "malformed webhook payload", slog.Any("error", err))
		respondJSON(w, http.StatusBadRequest, map[string]any{"message": "bad_request"})
		return
	}

	if err := s.reconciler.Handle(ctx, event); err != nil {
		if errors.Is(err, billing.ErrCustomerNotFound) || errors.Is(err, billing.ErrSubscriptionNotFound) {
			s.log.WarnContext(ctx, "webhook references unknown record, dropping",
				slog.String("event_id", event.EventID),
				slog.String("event_type", event.RawKind),
				slog.Any("error", err),
			)
			respondJSON(w, http.StatusOK, nil)
			return
		}
		s.log.ErrorContext(ctx, "webhook reconciliation failed",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.RawKind),
			slog.Any("error", err),
		)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"message": "internal_server_error"})
		return
	}

	respondJSON(w, http.StatusOK, nil)
}
