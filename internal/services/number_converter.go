package services

import (
	"fmt"
	"strings"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"
)

// AmountToWords spells a rupee amount for certificates.
// Example: 1500.50 -> "Rupees One Thousand Five Hundred and Paise Fifty Only"
func AmountToWords(amount decimal.Decimal) string {
	amount = amount.Round(2)
	if amount.IsNegative() {
		return "Minus " + AmountToWords(amount.Neg())
	}

	rupees := amount.IntPart()
	paise := amount.Sub(decimal.NewFromInt(rupees)).Mul(hundred).IntPart()

	words := "Rupees " + titleWords(num2words.Convert(int(rupees)))
	if paise > 0 {
		words = fmt.Sprintf("%s and Paise %s", words, titleWords(num2words.Convert(int(paise))))
	}
	return words + " Only"
}

func titleWords(s string) string {
	parts := strings.Fields(strings.ReplaceAll(s, "-", " "))
	for i, p := range parts {
		if p == "and" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
