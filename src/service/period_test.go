package service

import (
	"testing"
	"time"

	"rental/billing/src/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodRange(t *testing.T) {
	start, end := PeriodRange(2, 2025)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), end)

	// leap year
	start, end = PeriodRange(2, 2024)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 29, end.Day())
}

func TestValidatePeriod(t *testing.T) {
	require.NoError(t, ValidatePeriod(1, 2025))
	require.NoError(t, ValidatePeriod(12, 2025))

	var validation *apperror.ValidationError
	require.ErrorAs(t, ValidatePeriod(0, 2025), &validation)
	require.ErrorAs(t, ValidatePeriod(13, 2025), &validation)
	require.ErrorAs(t, ValidatePeriod(6, 1999), &validation)
}

func TestPeriodBefore(t *testing.T) {
	assert.True(t, PeriodBefore(12, 2024, 1, 2025))
	assert.True(t, PeriodBefore(3, 2025, 4, 2025))
	assert.False(t, PeriodBefore(4, 2025, 4, 2025))
	assert.False(t, PeriodBefore(1, 2025, 12, 2024))
}

func TestDefaultDueDate(t *testing.T) {
	due := DefaultDueDate(3, 2025)
	assert.Equal(t, time.Date(2025, 4, 10, 23, 59, 59, 0, time.UTC), due)

	// December rolls into January of the next year
	due = DefaultDueDate(12, 2025)
	assert.Equal(t, time.Date(2026, 1, 10, 23, 59, 59, 0, time.UTC), due)
}

func TestFormatInvoiceNo(t *testing.T) {
	no := FormatInvoiceNo("INV", "a1b2c3d4-e5f6-7890-abcd-ef0123456789", 3, 2025, 7)
	assert.Equal(t, "INV202503-A1B2C3D4-0007", no)

	// short landlord ids are kept whole
	no = FormatInvoiceNo("INV", "ab12", 12, 2025, 123)
	assert.Equal(t, "INV202512-AB12-0123", no)
}
