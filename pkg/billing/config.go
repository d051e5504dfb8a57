package billing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the billing portal configuration. It is built once during
// process startup, either programmatically or from a YAML file, and treated
// as immutable afterwards. Components receive it at construction time rather
// than through ambient lookup.
type Config struct {
	// Path is the URL prefix the portal is mounted under.
	Path string `yaml:"path"`

	// Prorates controls whether plan swaps are prorated by the provider.
	Prorates bool `yaml:"prorates"`

	// DateFormat is the Go time layout used for dates shown to the user.
	DateFormat string `yaml:"date_format"`

	DashboardURL string `yaml:"dashboard_url"`
	TermsURL     string `yaml:"terms_url"`

	Brand Brand `yaml:"brand"`

	// Billables lists the billable entity types in registration order.
	Billables []BillableConfig `yaml:"billables"`
}

// Brand carries portal branding overrides.
type Brand struct {
	// Color is either a CSS class or a hex value prefixed with '#'.
	Color string `yaml:"color"`
	Logo  string `yaml:"logo"`
}

// BillableConfig holds the per-billable-type settings.
type BillableConfig struct {
	Type            string       `yaml:"type"`
	Model           string       `yaml:"model"`
	TrialDays       int          `yaml:"trial_days"`
	DefaultInterval Interval     `yaml:"default_interval"`
	Plans           []PlanConfig `yaml:"plans"`
}

// PlanConfig is the static plan definition shape. A single entry expands
// into up to two catalog plans, one per configured interval ID.
type PlanConfig struct {
	Name             string         `yaml:"name"`
	MonthlyID        string         `yaml:"monthly_id"`
	YearlyID         string         `yaml:"yearly_id"`
	MonthlyIncentive string         `yaml:"monthly_incentive"`
	YearlyIncentive  string         `yaml:"yearly_incentive"`
	ShortDescription string         `yaml:"short_description"`
	Features         []string       `yaml:"features"`
	Options          map[string]any `yaml:"options"`
	Archived         bool           `yaml:"archived"`
}

// LoadConfig reads and validates a YAML portal configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read billing config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse billing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Billables))
	for _, b := range c.Billables {
		if b.Type == "" {
			return errors.New("billing config: billable type is required")
		}
		if b.Model == "" {
			return fmt.Errorf("billing config: billable %q has no model", b.Type)
		}
		if b.TrialDays < 0 {
			return fmt.Errorf("billing config: billable %q has negative trial days", b.Type)
		}
		if _, dup := seen[b.Type]; dup {
			return fmt.Errorf("billing config: duplicate billable type %q", b.Type)
		}
		seen[b.Type] = struct{}{}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = "/billing"
	}
	if c.DateFormat == "" {
		c.DateFormat = "January 2, 2006"
	}
	if c.Brand.Color == "" {
		c.Brand.Color = "bg-gray-800"
	}
	for i := range c.Billables {
		if c.Billables[i].DefaultInterval == "" {
			c.Billables[i].DefaultInterval = IntervalMonthly
		}
	}
}

// Billable returns the configuration entry for a billable type.
func (c *Config) Billable(billableType string) (BillableConfig, error) {
	for _, b := range c.Billables {
		if b.Type == billableType {
			return b, nil
		}
	}
	return BillableConfig{}, errors.Join(ErrUnknownBillableType, fmt.Errorf("type %q", billableType))
}

// ForModel returns the configuration entry whose bound model matches the
// given class name. It fails with ErrUnknownBillableModel when no billable
// type is bound to that model.
func (c *Config) ForModel(model string) (BillableConfig, error) {
	for _, b := range c.Billables {
		if b.Model == model {
			return b, nil
		}
	}
	return BillableConfig{}, errors.Join(ErrUnknownBillableModel, fmt.Errorf("model %q", model))
}

// DefaultType returns the first configured billable type. It is used when a
// portal request does not name a type explicitly.
func (c *Config) DefaultType() string {
	if len(c.Billables) == 0 {
		return ""
	}
	return c.Billables[0].Type
}

// BrandColor returns the effective brand color class. Hex values map to the
// bg-custom-hex class so the frontend can inline the actual color.
func (c *Config) BrandColor() string {
	if len(c.Brand.Color) > 0 && c.Brand.Color[0] == '#' {
		return "bg-custom-hex"
	}
	return c.Brand.Color
}
