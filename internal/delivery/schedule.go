package delivery

import (
	"strings"
	"time"

	"github.com/partsmatch/partsmatch-backend/pkg/config"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// Schedule holds the two computed timestamps for one queue entry.
type Schedule struct {
	ScheduledDeliveryTime time.Time
	SellerVisibleTime     time.Time
}

// ScheduleCalculator maps a seller's subscription tier to delivery timing.
// It is pure: same inputs, same outputs, no clock access.
type ScheduleCalculator struct {
	cfg config.DeliveryConfig
}

// NewScheduleCalculator builds a calculator from delivery config.
func NewScheduleCalculator(cfg config.DeliveryConfig) *ScheduleCalculator {
	return &ScheduleCalculator{cfg: cfg}
}

// VisibilityDelay returns how long after submission a request becomes visible
// to a seller of the given tier. Unknown or missing tiers get the most
// conservative delay.
func (c *ScheduleCalculator) VisibilityDelay(tier string) time.Duration {
	parsed, err := enums.ParseSellerTier(strings.ToLower(strings.TrimSpace(tier)))
	if err != nil {
		return c.cfg.VisibilityDefault
	}
	switch parsed {
	case enums.SellerTierBasic:
		return c.cfg.VisibilityBasic
	case enums.SellerTierPremium:
		return c.cfg.VisibilityPremium
	case enums.SellerTierEnterprise:
		return c.cfg.VisibilityEnterprise
	default:
		return c.cfg.VisibilityDefault
	}
}

// ProcessingDelay returns how long after submission the queue entry becomes
// due for the worker. The delay is uniform across tiers; only visibility is
// tier-differentiated.
func (c *ScheduleCalculator) ProcessingDelay(tier string) time.Duration {
	return c.cfg.ProcessingDelay
}

// Calculate derives both timestamps for a seller from the submission time.
func (c *ScheduleCalculator) Calculate(submittedAt time.Time, tier string) Schedule {
	return Schedule{
		ScheduledDeliveryTime: submittedAt.Add(c.ProcessingDelay(tier)),
		SellerVisibleTime:     submittedAt.Add(c.VisibilityDelay(tier)),
	}
}
