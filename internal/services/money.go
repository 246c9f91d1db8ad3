package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/models"
)

var hundred = decimal.NewFromInt(100)

// percentOf returns round(amount*pct/100) to the whole rupee, half away from zero
func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(0)
}

// splitEvenly divides total into n parts: floor(total/n) for the first n-1, the remainder last.
func splitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 1 {
		return []decimal.Decimal{total}
	}
	base := total.Div(decimal.NewFromInt(int64(n))).Floor()
	parts := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		parts[i] = base
	}
	parts[n-1] = total.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts
}

// payoutDate returns the payout day in the k-th calendar month after from, clamped to the
// month's last day. The result is a date (midnight UTC) for date columns.
func payoutDate(from time.Time, k, day int) time.Time {
	from = from.In(models.IST)
	first := time.Date(from.Year(), from.Month()+time.Month(k), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// businessDate is the IST calendar date of t as a date value
func businessDate(t time.Time) time.Time {
	t = t.In(models.IST)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
