package billing

import (
	"context"
	"errors"
	"net/http"
)

// Manager holds the per-billable-type callback registries: billable
// resolution, portal authorization, seat pricing and plan eligibility.
// All registrations must happen during process startup; the registries are
// not safe for mutation once requests are being served.
type Manager struct {
	resolvers   map[string]BillableResolverFunc
	authorizers map[string]AuthorizeFunc
	seatNames   map[string]string
	seatCounts  map[string]SeatCountFunc
	eligibility map[string][]EligibilityCheckFunc
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		resolvers:   make(map[string]BillableResolverFunc),
		authorizers: make(map[string]AuthorizeFunc),
		seatNames:   make(map[string]string),
		seatCounts:  make(map[string]SeatCountFunc),
		eligibility: make(map[string][]EligibilityCheckFunc),
	}
}

// ResolveBillableUsing registers the resolver that locates the current
// billable of the given type for a request.
func (m *Manager) ResolveBillableUsing(billableType string, fn BillableResolverFunc) {
	if fn == nil {
		return
	}
	m.resolvers[billableType] = fn
}

// ResolveBillable resolves the current billable for a request.
func (m *Manager) ResolveBillable(billableType string, r *http.Request) (Billable, error) {
	fn, ok := m.resolvers[billableType]
	if !ok {
		return nil, ErrNoBillableResolver
	}
	return fn(r)
}

// AuthorizeUsing registers the callback that gates access to the billing
// portal for the given type. Without a callback every billable is authorized.
func (m *Manager) AuthorizeUsing(billableType string, fn AuthorizeFunc) {
	if fn == nil {
		return
	}
	m.authorizers[billableType] = fn
}

// Authorized reports whether the billable may manage billing for this request.
func (m *Manager) Authorized(b Billable, r *http.Request) bool {
	fn, ok := m.authorizers[b.BillableType()]
	if !ok {
		return true
	}
	return fn(b, r)
}

// ChargePerSeat registers seat pricing for a billable type. seatName is the
// word describing a single seat ("member", "user", ...). Panics on a second
// registration for the same type to surface misconfiguration at startup.
func (m *Manager) ChargePerSeat(billableType, seatName string, fn SeatCountFunc) {
	if fn == nil {
		panic("billing: seat count func is required")
	}
	if _, exists := m.seatCounts[billableType]; exists {
		panic("billing: seat pricing for type " + billableType + " already registered")
	}
	m.seatNames[billableType] = seatName
	m.seatCounts[billableType] = fn
}

// ChargesPerSeat reports whether the billable type bills per seat.
func (m *Manager) ChargesPerSeat(billableType string) bool {
	_, ok := m.seatCounts[billableType]
	return ok
}

// SeatName returns the configured seat label for a type, or "".
func (m *Manager) SeatName(billableType string) string {
	return m.seatNames[billableType]
}

// SeatCount returns the number of seats the billable occupies. Callers must
// check ChargesPerSeat first; an unregistered type yields ErrNoSeatPricing.
func (m *Manager) SeatCount(ctx context.Context, b Billable) (int, error) {
	fn, ok := m.seatCounts[b.BillableType()]
	if !ok {
		return 0, ErrNoSeatPricing
	}
	n, err := fn(ctx, b)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("billing: seat count must not be negative")
	}
	return n, nil
}

// CheckPlanEligibilityUsing appends an eligibility check for a billable
// type. Checks run in registration order.
func (m *Manager) CheckPlanEligibilityUsing(billableType string, fn EligibilityCheckFunc) {
	if fn == nil {
		return
	}
	m.eligibility[billableType] = append(m.eligibility[billableType], fn)
}

// EnsurePlanEligibility runs every registered check for the billable's type
// in registration order. The first rejection aborts evaluation and is
// returned as-is. No registered checks means the billable is eligible.
func (m *Manager) EnsurePlanEligibility(ctx context.Context, b Billable, p *Plan) error {
	for _, check := range m.eligibility[b.BillableType()] {
		if err := check(ctx, b, p); err != nil {
			return err
		}
	}
	return nil
}
