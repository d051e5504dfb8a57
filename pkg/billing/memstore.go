package billing

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemCustomerStore is a CustomerStore backed by a map. It is intended for
// tests and single-process development setups.
type InMemCustomerStore struct {
	mu        sync.RWMutex
	customers map[customerKey]*Customer
}

type customerKey struct {
	id  string
	typ string
}

// NewInMemCustomerStore returns an empty in-memory customer store.
func NewInMemCustomerStore() *InMemCustomerStore {
	return &InMemCustomerStore{customers: make(map[customerKey]*Customer)}
}

func (s *InMemCustomerStore) Get(ctx context.Context, billableID, billableType string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[customerKey{billableID, billableType}]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemCustomerStore) Upsert(ctx context.Context, billableID, billableType string, update CustomerUpdate) (*Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := customerKey{billableID, billableType}

	c, ok := s.customers[key]
	if !ok {
		c = &Customer{
			BillableID:   billableID,
			BillableType: billableType,
			CreatedAt:    now,
		}
		s.customers[key] = c
	}

	if update.ClearPendingCheckout {
		c.PendingCheckoutID = nil
	} else if update.PendingCheckoutID != nil {
		v := *update.PendingCheckoutID
		c.PendingCheckoutID = &v
	}
	if update.HasHighRiskPayment != nil {
		c.HasHighRiskPayment = *update.HasHighRiskPayment
	}
	if update.ClearTrialEndsAt {
		c.TrialEndsAt = nil
	} else if update.TrialEndsAt != nil {
		v := *update.TrialEndsAt
		c.TrialEndsAt = &v
	}
	c.UpdatedAt = now

	cp := *c
	return &cp, nil
}

// InMemSubscriptionStore is a SubscriptionStore backed by a map, keyed by
// provider subscription ID.
type InMemSubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewInMemSubscriptionStore returns an empty in-memory subscription store.
func NewInMemSubscriptionStore() *InMemSubscriptionStore {
	return &InMemSubscriptionStore{subs: make(map[string]*Subscription)}
}

func (s *InMemSubscriptionStore) Get(ctx context.Context, providerID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[providerID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemSubscriptionStore) GetForBillable(ctx context.Context, billableID, billableType string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Subscription
	for _, sub := range s.subs {
		if sub.BillableID != billableID || sub.BillableType != billableType {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, ErrSubscriptionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemSubscriptionStore) ListPaused(ctx context.Context, billableID, billableType string) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var paused []*Subscription
	for _, sub := range s.subs {
		if sub.BillableID == billableID && sub.BillableType == billableType && sub.Status == StatusPaused {
			cp := *sub
			paused = append(paused, &cp)
		}
	}
	sort.Slice(paused, func(i, j int) bool { return paused[i].ProviderID < paused[j].ProviderID })
	return paused, nil
}

func (s *InMemSubscriptionStore) Save(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sub
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = time.Now().UTC()
	s.subs[cp.ProviderID] = &cp
	return nil
}
