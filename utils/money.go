package utils

import (
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// Minor-unit digits for currencies that do not use two.
var currencyScales = map[string]int32{
	"BIF": 0, "CLP": 0, "ISK": 0, "JPY": 0, "KRW": 0, "PYG": 0, "UGX": 0, "VND": 0, "XAF": 0, "XOF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// CurrencyScale returns the number of minor-unit digits for an ISO 4217 code.
func CurrencyScale(code string) int32 {
	if s, ok := currencyScales[code]; ok {
		return s
	}
	return 2
}

// FitsScale reports whether amount has no digits beyond the currency's minor unit.
func FitsScale(amount decimal.Decimal, currency string) bool {
	scale := CurrencyScale(currency)
	return amount.Equal(amount.Truncate(scale))
}

func RoundMoney(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(CurrencyScale(currency))
}

func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// FormatMoney renders an amount with its currency's scale, e.g. "12.50 USD".
func FormatMoney(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(CurrencyScale(currency)) + " " + currency
}
