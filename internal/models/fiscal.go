package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// IST is the timezone fiscal years and payout dates are computed in.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// Quarter labels of the Indian financial year (April to March)
const (
	QuarterQ1 = "Q1" // Apr-Jun
	QuarterQ2 = "Q2" // Jul-Sep
	QuarterQ3 = "Q3" // Oct-Dec
	QuarterQ4 = "Q4" // Jan-Mar
)

// Quarters lists quarters in fiscal order
var Quarters = []string{QuarterQ1, QuarterQ2, QuarterQ3, QuarterQ4}

var fiscalYearPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// FiscalYearOf returns the financial year label, e.g. "2025-26" for 2025-04-01..2026-03-31.
func FiscalYearOf(t time.Time) string {
	t = t.In(IST)
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// QuarterOf returns the fiscal quarter label for t
func QuarterOf(t time.Time) string {
	switch m := t.In(IST).Month(); {
	case m >= time.April && m <= time.June:
		return QuarterQ1
	case m >= time.July && m <= time.September:
		return QuarterQ2
	case m >= time.October && m <= time.December:
		return QuarterQ3
	default:
		return QuarterQ4
	}
}

// ParseFiscalYear validates a "YYYY-YY" label and returns its starting calendar year.
func ParseFiscalYear(fy string) (int, error) {
	m := fiscalYearPattern.FindStringSubmatch(fy)
	if m == nil {
		return 0, fmt.Errorf("invalid fiscal year %q, expected format 2025-26", fy)
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if (start+1)%100 != end {
		return 0, fmt.Errorf("invalid fiscal year %q, years are not consecutive", fy)
	}
	return start, nil
}

// IsValidQuarter reports whether q is one of Q1..Q4
func IsValidQuarter(q string) bool {
	for _, v := range Quarters {
		if v == q {
			return true
		}
	}
	return false
}

// QuarterDueDate returns the TDS return due date for a quarter of the given fiscal year.
func QuarterDueDate(fy, quarter string) (time.Time, error) {
	start, err := ParseFiscalYear(fy)
	if err != nil {
		return time.Time{}, err
	}
	switch quarter {
	case QuarterQ1:
		return time.Date(start, time.July, 31, 0, 0, 0, 0, IST), nil
	case QuarterQ2:
		return time.Date(start, time.October, 31, 0, 0, 0, 0, IST), nil
	case QuarterQ3:
		return time.Date(start+1, time.January, 31, 0, 0, 0, 0, IST), nil
	case QuarterQ4:
		return time.Date(start+1, time.May, 31, 0, 0, 0, 0, IST), nil
	}
	return time.Time{}, fmt.Errorf("invalid quarter %q", quarter)
}

// FiscalYearBounds returns [start, end) of a fiscal year
func FiscalYearBounds(fy string) (time.Time, time.Time, error) {
	start, err := ParseFiscalYear(fy)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from := time.Date(start, time.April, 1, 0, 0, 0, 0, IST)
	return from, from.AddDate(1, 0, 0), nil
}
