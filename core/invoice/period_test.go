package invoice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biilasha/biilasha/core"
)

func TestPeriod(t *testing.T) {
	tests := []struct {
		name      string
		period    Period
		wantName  string
		wantKey   string
		wantLast  core.Date
		wantValid bool
	}{
		{name: "march", period: NewPeriod(2025, time.March), wantName: "March 2025", wantKey: "2025-03", wantLast: core.NewDate(2025, time.March, 31), wantValid: true},
		{name: "leap february", period: NewPeriod(2024, time.February), wantName: "February 2024", wantKey: "2024-02", wantLast: core.NewDate(2024, time.February, 29), wantValid: true},
		{name: "december", period: NewPeriod(2025, time.December), wantName: "December 2025", wantKey: "2025-12", wantLast: core.NewDate(2025, time.December, 31), wantValid: true},
		{name: "two-digit year", period: NewPeriod(25, time.March), wantName: "March 25", wantKey: "0025-03", wantLast: core.NewDate(25, time.March, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.period.MonthName())
			assert.Equal(t, tt.wantKey, tt.period.String())
			assert.True(t, tt.wantLast.Equal(tt.period.LastDay().Time), "LastDay() = %s", tt.period.LastDay())
			assert.Equal(t, tt.wantValid, tt.period.Valid())
		})
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{in: "2025-03", want: NewPeriod(2025, time.March)},
		{in: " March 2025 ", want: NewPeriod(2025, time.March)},
		{in: "2025-13", wantErr: true},
		{in: "Mars 2025", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriod_Before(t *testing.T) {
	assert.True(t, NewPeriod(2024, time.December).Before(NewPeriod(2025, time.January)))
	assert.True(t, NewPeriod(2025, time.February).Before(NewPeriod(2025, time.March)))
	assert.False(t, NewPeriod(2025, time.March).Before(NewPeriod(2025, time.March)))
}

func TestGenerateRequest_EffectiveDueDate(t *testing.T) {
	req := GenerateRequest{FeeID: 1, Month: 3, Year: 2025}
	assert.Equal(t, "2025-03-31", req.EffectiveDueDate().String())

	due := core.NewDate(2025, time.March, 15)
	req.DueDate = &due
	assert.Equal(t, "2025-03-15", req.EffectiveDueDate().String())
}

// RecomputeStatus encodes an inferred policy ("paid iff payments sum to at least the amount").
// These cases pin it; revisit them if the store's own reconciliation is found to differ.
func TestRecomputeStatus(t *testing.T) {
	inv := Invoice{Amount: decimal.NewFromInt(100), Status: StatusUnpaid}
	d := func(v string) decimal.Decimal { return decimal.RequireFromString(v) }

	tests := []struct {
		name            string
		paid            []decimal.Decimal
		wantStatus      string
		wantOutstanding string
	}{
		{name: "no payment", wantStatus: StatusUnpaid, wantOutstanding: "100"},
		{name: "partial", paid: []decimal.Decimal{d("40")}, wantStatus: StatusUnpaid, wantOutstanding: "60"},
		{name: "partials summing to amount", paid: []decimal.Decimal{d("40"), d("60.00")}, wantStatus: StatusPaid, wantOutstanding: "0"},
		{name: "one cent short", paid: []decimal.Decimal{d("99.99")}, wantStatus: StatusUnpaid, wantOutstanding: "0.01"},
		{name: "overpaid", paid: []decimal.Decimal{d("150")}, wantStatus: StatusPaid, wantOutstanding: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, RecomputeStatus(inv, tt.paid...))
			assert.Equal(t, tt.wantOutstanding, Outstanding(inv, tt.paid...).String())
		})
	}
}
