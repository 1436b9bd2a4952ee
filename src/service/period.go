package service

import (
	"fmt"
	"time"

	"rental/billing/config/toml"
	"rental/billing/src/apperror"
)

// PeriodRange returns the inclusive UTC date range covered by a billing
// period.
func PeriodRange(month, year int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// PeriodBefore reports whether period a is chronologically before period b.
func PeriodBefore(aMonth, aYear, bMonth, bYear int) bool {
	if aYear != bYear {
		return aYear < bYear
	}
	return aMonth < bMonth
}

func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return apperror.NewValidation("month", fmt.Sprintf("must be 1-12, got %d", month))
	}
	if minYear := BillingConfig().MinYear; year < minYear {
		return apperror.NewValidation("year", fmt.Sprintf("must be >= %d, got %d", minYear, year))
	}
	return nil
}

// DefaultDueDate is the configured day of the month following the billing
// period, end of day UTC.
func DefaultDueDate(month, year int) time.Time {
	due := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return time.Date(due.Year(), due.Month(), BillingConfig().DueDay, 23, 59, 59, 0, time.UTC)
}

// BillingConfig returns the billing section with sane fallbacks so a missing
// config file never yields day-zero due dates.
func BillingConfig() toml.BillingConfig {
	cfg := toml.GetConfig().Billing
	if cfg.DueDay <= 0 {
		cfg.DueDay = 10
	}
	if cfg.MinYear <= 0 {
		cfg.MinYear = 2020
	}
	if cfg.Currency == "" {
		cfg.Currency = "VND"
	}
	if cfg.InvoicePrefix == "" {
		cfg.InvoicePrefix = "INV"
	}
	return cfg
}
