package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/chris/pi-settlement/pkg/config"
	"github.com/shopspring/decimal"
)

// Plan is a purchasable subscription plan.
type Plan struct {
	Type     string
	Price    decimal.Decimal
	Duration time.Duration
}

// PlanCatalog holds the configured subscription plans. An empty catalog accepts any
// plan type at the paid amount.
type PlanCatalog struct {
	plans           map[string]Plan
	defaultDuration time.Duration
}

// NewPlanCatalog builds the catalog from configuration.
func NewPlanCatalog(cfg config.SettlementConfig) (*PlanCatalog, error) {
	days := cfg.DefaultPlanDays
	if days <= 0 {
		days = 30
	}
	c := &PlanCatalog{
		plans:           make(map[string]Plan, len(cfg.Plans)),
		defaultDuration: time.Duration(days) * 24 * time.Hour,
	}

	for _, p := range cfg.Plans {
		key := strings.ToLower(strings.TrimSpace(p.Type))
		if key == "" {
			return nil, fmt.Errorf("subscription plan without a type")
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for plan %s: %w", p.Price, p.Type, err)
		}
		duration := c.defaultDuration
		if p.DurationDays > 0 {
			duration = time.Duration(p.DurationDays) * 24 * time.Hour
		}
		c.plans[key] = Plan{Type: key, Price: price, Duration: duration}
	}
	return c, nil
}

// Lookup returns the plan with the given type.
func (c *PlanCatalog) Lookup(planType string) (Plan, bool) {
	p, ok := c.plans[strings.ToLower(strings.TrimSpace(planType))]
	return p, ok
}

// Empty reports whether no plans are configured.
func (c *PlanCatalog) Empty() bool {
	return len(c.plans) == 0
}

// DefaultDuration is the duration of plans without a configured duration.
func (c *PlanCatalog) DefaultDuration() time.Duration {
	return c.defaultDuration
}
