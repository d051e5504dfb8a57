package billingportal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aelsoftware/spark/pkg/billing"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps errors to wire responses. Validation failures become a
// 422 with per-field messages; anything else is a logged 500 with no detail
// leaked to the caller.
func (s *Service) respondError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr billing.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": verr.First(),
			"errors":  verr,
		})
		return
	}

	switch {
	case errors.Is(err, billing.ErrUnknownBillableType):
		respondJSON(w, http.StatusNotFound, map[string]any{"message": "not_found"})
	case errors.Is(err, billing.ErrNoBillableResolver):
		s.log.ErrorContext(ctx, "no billable resolver registered", slog.Any("error", err))
		respondJSON(w, http.StatusInternalServerError, map[string]any{"message": "internal_server_error"})
	default:
		s.log.ErrorContext(ctx, "billing portal request failed", slog.Any("error", err))
		respondJSON(w, http.StatusInternalServerError, map[string]any{"message": "internal_server_error"})
	}
}

// providerFailure logs the provider error for operator visibility and
// surfaces a generic validation failure to the user.
func (s *Service) providerFailure(ctx context.Context, w http.ResponseWriter, err error) {
	s.log.ErrorContext(ctx, "billing provider call failed", slog.Any("error", err))
	s.respondError(ctx, w, billing.Validation(billing.GeneralField, billing.PaymentFailedMessage))
}

// decodeJSON tolerates an empty body; commands like cancel and resume carry
// at most a billable type.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
