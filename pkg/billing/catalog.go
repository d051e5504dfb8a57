package billing

import "sync"

// Catalog is the in-memory plan registry. Plans are registered per billable
// type, either programmatically via DefinePlan before the first read, or
// lazily materialized from the static configuration on the first Plans call
// for a type. Materialized plans are cached; an unconfigured type yields an
// empty slice, never an error.
type Catalog struct {
	cfg *Config

	mu    sync.Mutex
	plans map[string][]*Plan
}

// NewCatalog returns a catalog backed by the given configuration.
func NewCatalog(cfg *Config) *Catalog {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Catalog{
		cfg:   cfg,
		plans: make(map[string][]*Plan),
	}
}

// DefinePlan registers a plan for a billable type and returns it for
// builder-style mutation. Programmatically defined plans take precedence
// over the static configuration for that type.
func (c *Catalog) DefinePlan(billableType, name, id string) *Plan {
	c.mu.Lock()
	defer c.mu.Unlock()

	plan := NewPlan(name, id)
	c.plans[billableType] = append(c.plans[billableType], plan)
	return plan
}

// Plans returns all plans for a billable type in definition order.
func (c *Catalog) Plans(billableType string) []*Plan {
	c.mu.Lock()
	defer c.mu.Unlock()

	if plans, ok := c.plans[billableType]; ok {
		return plans
	}

	plans := c.materialize(billableType)
	c.plans[billableType] = plans
	return plans
}

// Find returns the plan with the given provider ID for a billable type, or
// ErrPlanNotFound.
func (c *Catalog) Find(billableType, id string) (*Plan, error) {
	for _, plan := range c.Plans(billableType) {
		if plan.ID == id {
			return plan, nil
		}
	}
	return nil, ErrPlanNotFound
}

// materialize expands the static plan configuration for a type. Each entry
// becomes one plan per configured interval ID.
func (c *Catalog) materialize(billableType string) []*Plan {
	bcfg, err := c.cfg.Billable(billableType)
	if err != nil {
		return []*Plan{}
	}

	plans := make([]*Plan, 0, len(bcfg.Plans)*2)
	for _, pc := range bcfg.Plans {
		for _, iv := range []struct {
			interval Interval
			id       string
		}{
			{IntervalMonthly, pc.MonthlyID},
			{IntervalYearly, pc.YearlyID},
		} {
			if iv.id == "" {
				continue
			}
			plans = append(plans, NewPlan(pc.Name, iv.id).
				WithInterval(iv.interval).
				Incentive(pc.MonthlyIncentive, pc.YearlyIncentive).
				WithShortDescription(pc.ShortDescription).
				WithFeatures(pc.Features...).
				WithOptions(pc.Options).
				Status(!pc.Archived))
		}
	}
	return plans
}
