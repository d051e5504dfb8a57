package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelsoftware/spark/pkg/billing"
)

func catalogConfig() *billing.Config {
	return &billing.Config{
		Billables: []billing.BillableConfig{
			{
				Type:  "user",
				Model: "User",
				Plans: []billing.PlanConfig{
					{
						Name:            "Standard",
						MonthlyID:       "pri_std_m",
						YearlyID:        "pri_std_y",
						YearlyIncentive: "Save 20%",
						Features:        []string{"Unlimited projects"},
					},
					{
						Name:      "Legacy",
						MonthlyID: "pri_legacy_m",
						Archived:  true,
					},
				},
			},
		},
	}
}

func TestCatalog_MaterializesFromConfig(t *testing.T) {
	t.Parallel()

	catalog := billing.NewCatalog(catalogConfig())

	plans := catalog.Plans("user")
	require.Len(t, plans, 3)

	assert.Equal(t, "pri_std_m", plans[0].ID)
	assert.Equal(t, billing.IntervalMonthly, plans[0].Interval)
	assert.Equal(t, "pri_std_y", plans[1].ID)
	assert.Equal(t, billing.IntervalYearly, plans[1].Interval)
	assert.Equal(t, "Save 20%", plans[1].YearlyIncentive)

	// archived plans stay resolvable but inactive
	assert.Equal(t, "pri_legacy_m", plans[2].ID)
	assert.False(t, plans[2].Active)
}

func TestCatalog_UnknownTypeYieldsEmpty(t *testing.T) {
	t.Parallel()

	catalog := billing.NewCatalog(catalogConfig())

	assert.Empty(t, catalog.Plans("org"))
	assert.Empty(t, catalog.Plans("org"))
}

func TestCatalog_DefinePlanPrecedesConfig(t *testing.T) {
	t.Parallel()

	catalog := billing.NewCatalog(catalogConfig())
	catalog.DefinePlan("user", "Custom", "pri_custom").Yearly()

	plans := catalog.Plans("user")
	require.Len(t, plans, 1)
	assert.Equal(t, "pri_custom", plans[0].ID)
	assert.Equal(t, billing.IntervalYearly, plans[0].Interval)
}

func TestCatalog_Find(t *testing.T) {
	t.Parallel()

	catalog := billing.NewCatalog(catalogConfig())

	plan, err := catalog.Find("user", "pri_std_y")
	require.NoError(t, err)
	assert.Equal(t, "Standard", plan.Name)

	_, err = catalog.Find("user", "pri_unknown")
	assert.ErrorIs(t, err, billing.ErrPlanNotFound)

	_, err = catalog.Find("org", "pri_std_y")
	assert.ErrorIs(t, err, billing.ErrPlanNotFound)
}
