package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aelsoftware/spark/pkg/billing"
	"github.com/aelsoftware/spark/pkg/pg"
)

// SubscriptionStore is a PostgreSQL-backed billing.SubscriptionStore.
type SubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewSubscriptionStore creates a subscription store on top of the given pool.
func NewSubscriptionStore(pool *pgxpool.Pool) *SubscriptionStore {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &SubscriptionStore{pool: pool}
}

const subscriptionColumns = `provider_id, billable_id, billable_type, plan_id,
	status, quantity, paused_from, ends_at, created_at, updated_at`

func (s *SubscriptionStore) Get(ctx context.Context, providerID string) (*billing.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM billing_subscriptions
		WHERE provider_id = $1`,
		providerID)
	return scanSubscription(row)
}

func (s *SubscriptionStore) GetForBillable(ctx context.Context, billableID, billableType string) (*billing.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM billing_subscriptions
		WHERE billable_id = $1 AND billable_type = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		billableID, billableType)
	return scanSubscription(row)
}

func (s *SubscriptionStore) ListPaused(ctx context.Context, billableID, billableType string) ([]*billing.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM billing_subscriptions
		WHERE billable_id = $1 AND billable_type = $2 AND status = $3
		ORDER BY provider_id`,
		billableID, billableType, billing.StatusPaused)
	if err != nil {
		return nil, fmt.Errorf("list paused subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*billing.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Save overwrites the row keyed by provider ID, keeping the original
// created_at on conflict. The caller's struct gets the stored timestamps
// written back.
func (s *SubscriptionStore) Save(ctx context.Context, sub *billing.Subscription) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO billing_subscriptions (
			provider_id, billable_id, billable_type, plan_id,
			status, quantity, paused_from, ends_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (provider_id) DO UPDATE SET
			billable_id = EXCLUDED.billable_id,
			billable_type = EXCLUDED.billable_type,
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			quantity = EXCLUDED.quantity,
			paused_from = EXCLUDED.paused_from,
			ends_at = EXCLUDED.ends_at,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		sub.ProviderID, sub.BillableID, sub.BillableType, sub.PlanID,
		sub.Status, sub.Quantity, sub.PausedFrom, sub.EndsAt)

	if err := row.Scan(&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func scanSubscription(row pgx.Row) (*billing.Subscription, error) {
	var sub billing.Subscription
	err := row.Scan(&sub.ProviderID, &sub.BillableID, &sub.BillableType,
		&sub.PlanID, &sub.Status, &sub.Quantity, &sub.PausedFrom,
		&sub.EndsAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &sub, nil
}
