package billing

// Plan describes a subscription plan scoped to a billable type and interval.
// ID is the provider's plan/price identifier. Price, Currency and
// PriceIncludesTax are not persisted: they are filled in from a provider
// price preview each time the portal is rendered.
type Plan struct {
	ID               string
	Name             string
	Interval         Interval
	Price            string
	Currency         string
	MonthlyIncentive string
	YearlyIncentive  string
	ShortDescription string
	Features         []string
	Options          map[string]any
	Active           bool
	PriceIncludesTax bool
}

// NewPlan returns a monthly, active plan with the given display name and
// provider ID. Builder methods mutate the plan in place and return it for
// chaining; plans must be fully built before the catalog is first read.
func NewPlan(name, id string) *Plan {
	return &Plan{
		ID:               id,
		Name:             name,
		Interval:         IntervalMonthly,
		Active:           true,
		PriceIncludesTax: true,
	}
}

// WithInterval sets the plan's billing interval.
func (p *Plan) WithInterval(interval Interval) *Plan {
	p.Interval = interval
	return p
}

// Monthly marks the plan as billed monthly.
func (p *Plan) Monthly() *Plan {
	p.Interval = IntervalMonthly
	return p
}

// Yearly marks the plan as billed yearly.
func (p *Plan) Yearly() *Plan {
	p.Interval = IntervalYearly
	return p
}

// Incentive sets the incentive text shown next to each interval toggle.
func (p *Plan) Incentive(monthly, yearly string) *Plan {
	p.MonthlyIncentive = monthly
	p.YearlyIncentive = yearly
	return p
}

// WithShortDescription sets the plan's short description.
func (p *Plan) WithShortDescription(description string) *Plan {
	p.ShortDescription = description
	return p
}

// WithFeatures sets the plan's ordered feature list.
func (p *Plan) WithFeatures(features ...string) *Plan {
	p.Features = features
	return p
}

// WithOptions sets free-form plan options.
func (p *Plan) WithOptions(options map[string]any) *Plan {
	p.Options = options
	return p
}

// Status sets whether the plan is offered for new subscriptions.
func (p *Plan) Status(active bool) *Plan {
	p.Active = active
	return p
}

// Archive hides the plan from new subscriptions while keeping it resolvable
// for billables already subscribed to it.
func (p *Plan) Archive() *Plan {
	p.Active = false
	return p
}

// incentive is the nested incentive shape the frontend expects.
type incentive struct {
	Monthly string `json:"monthly"`
	Yearly  string `json:"yearly"`
}

// View returns the plan in its frontend wire shape.
func (p *Plan) View() map[string]any {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return map[string]any{
		"id":       p.ID,
		"name":     p.Name,
		"interval": p.Interval,
		"price":    p.Price,
		"currency": p.Currency,
		"incentive": incentive{
			Monthly: p.MonthlyIncentive,
			Yearly:  p.YearlyIncentive,
		},
		"short_description":  p.ShortDescription,
		"features":           features,
		"options":            p.Options,
		"active":             p.Active,
		"price_includes_vat": p.PriceIncludesTax,
	}
}
