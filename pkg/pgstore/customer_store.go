package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aelsoftware/spark/pkg/billing"
	"github.com/aelsoftware/spark/pkg/pg"
)

// CustomerStore is a PostgreSQL-backed billing.CustomerStore.
type CustomerStore struct {
	pool *pgxpool.Pool
}

// NewCustomerStore creates a customer store on top of the given pool.
func NewCustomerStore(pool *pgxpool.Pool) *CustomerStore {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &CustomerStore{pool: pool}
}

func (s *CustomerStore) Get(ctx context.Context, billableID, billableType string) (*billing.Customer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT billable_id, billable_type, pending_checkout_id,
			has_high_risk_payment, trial_ends_at, created_at, updated_at
		FROM billing_customers
		WHERE billable_id = $1 AND billable_type = $2`,
		billableID, billableType)

	var c billing.Customer
	err := row.Scan(&c.BillableID, &c.BillableType, &c.PendingCheckoutID,
		&c.HasHighRiskPayment, &c.TrialEndsAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("query billing customer: %w", err)
	}
	return &c, nil
}

// Upsert inserts the customer row if absent and applies the partial update
// in one statement. Columns the update does not touch keep their current
// value; the CASE guards decide per column whether the excluded value wins.
func (s *CustomerStore) Upsert(ctx context.Context, billableID, billableType string, update billing.CustomerUpdate) (*billing.Customer, error) {
	var (
		highRisk bool
		trialEnd *time.Time
	)
	if update.HasHighRiskPayment != nil {
		highRisk = *update.HasHighRiskPayment
	}
	if !update.ClearTrialEndsAt {
		trialEnd = update.TrialEndsAt
	}

	var checkoutID *string
	if !update.ClearPendingCheckout {
		checkoutID = update.PendingCheckoutID
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO billing_customers (
			billable_id, billable_type, pending_checkout_id,
			has_high_risk_payment, trial_ends_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (billable_id, billable_type) DO UPDATE SET
			pending_checkout_id = CASE WHEN $6
				THEN EXCLUDED.pending_checkout_id
				ELSE billing_customers.pending_checkout_id END,
			has_high_risk_payment = CASE WHEN $7
				THEN EXCLUDED.has_high_risk_payment
				ELSE billing_customers.has_high_risk_payment END,
			trial_ends_at = CASE WHEN $8
				THEN EXCLUDED.trial_ends_at
				ELSE billing_customers.trial_ends_at END,
			updated_at = NOW()
		RETURNING billable_id, billable_type, pending_checkout_id,
			has_high_risk_payment, trial_ends_at, created_at, updated_at`,
		billableID, billableType, checkoutID, highRisk, trialEnd,
		update.TouchesPendingCheckout(),
		update.HasHighRiskPayment != nil,
		update.TouchesTrialEndsAt())

	var c billing.Customer
	err := row.Scan(&c.BillableID, &c.BillableType, &c.PendingCheckoutID,
		&c.HasHighRiskPayment, &c.TrialEndsAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert billing customer: %w", err)
	}
	return &c, nil
}
