// Billing-cycle advancement uses the Strategy Pattern: each cycle type
// encapsulates how the next billing date is derived from the current
// one, including the short-month clamp for monthly-style cycles.

package services

import (
	"fmt"
	"time"

	"github.com/aaron7k/wealth/internal/core"
)

// BillingAdvancer computes the next billing date after a charge.
type BillingAdvancer interface {
	Next(current time.Time) time.Time
}

// WeeklyAdvancer moves the date forward by seven days.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(current time.Time) time.Time {
	return current.AddDate(0, 0, 7)
}

// MonthlyAdvancer moves to the same day next month, clamped to the last
// day when the next month is shorter (Jan 31 -> Feb 28).
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(current time.Time) time.Time {
	return addMonthsClamped(current, 1)
}

// QuarterlyAdvancer moves forward three months with the same clamp.
type QuarterlyAdvancer struct{}

func (QuarterlyAdvancer) Next(current time.Time) time.Time {
	return addMonthsClamped(current, 3)
}

// YearlyAdvancer moves forward one year; Feb 29 clamps to Feb 28.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(current time.Time) time.Time {
	return addMonthsClamped(current, 12)
}

// addMonthsClamped adds months keeping the day of month, clamping to
// the target month's last day instead of letting AddDate roll over.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// billingStrategies maps billing cycles to their advancers.
var billingStrategies = map[core.Period]BillingAdvancer{
	core.Weekly:    WeeklyAdvancer{},
	core.Monthly:   MonthlyAdvancer{},
	core.Quarterly: QuarterlyAdvancer{},
	core.Yearly:    YearlyAdvancer{},
}

// GetBillingAdvancer returns the advancer for a billing cycle.
func GetBillingAdvancer(cycle core.Period) (BillingAdvancer, error) {
	advancer, ok := billingStrategies[cycle]
	if !ok {
		return nil, fmt.Errorf("unknown billing cycle: %s", cycle)
	}
	return advancer, nil
}
