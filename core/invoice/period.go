package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/biilasha/biilasha/core"
)

// Period is a billing period: one calendar month of one year.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// PeriodOf returns the billing period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod accepts "2025-03" and "March 2025".
func ParsePeriod(s string) (Period, error) {
	s = core.CleanString(s)
	if t, err := time.Parse("2006-01", s); err == nil {
		return PeriodOf(t), nil
	}
	if t, err := time.Parse("January 2006", s); err == nil {
		return PeriodOf(t), nil
	}
	return Period{}, fmt.Errorf("invalid billing period %q", s)
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p Period) Valid() bool {
	return p.Month >= time.January && p.Month <= time.December && p.Year >= 1000 && p.Year <= 9999
}

// MonthName is the period's display name, eg. "March 2025".
func (p Period) MonthName() string {
	return p.Month.String() + " " + strconv.Itoa(p.Year)
}

// LastDay returns the last calendar day of the period.
func (p Period) LastDay() core.Date {
	// day 0 of the next month normalizes to the last day of this one
	return core.DateOf(time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC))
}

func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// String returns the sortable "YYYY-MM" form.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// UnmarshalParam lets echo bind periods from query params.
func (p *Period) UnmarshalParam(param string) error {
	if strings.TrimSpace(param) == "" {
		*p = Period{}
		return nil
	}
	parsed, err := ParsePeriod(param)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
