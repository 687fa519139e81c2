package composer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the display currency chosen by the operator.
type Currency struct {
	NameUz string
	NameRu string
	NameEn string
}

func (c Currency) name(lang string) string {
	switch {
	case strings.HasPrefix(lang, "uz"):
		return c.NameUz
	case strings.HasPrefix(lang, "ru"):
		return c.NameRu
	}
	return c.NameEn
}

// FormatPrice renders a decimal price for the product table. With a currency
// it prints at most two decimals followed by the currency name in lang;
// without one it prints dollars with exactly two decimals. Unparseable prices
// render as "0.00".
func FormatPrice(price string, currency *Currency, lang string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return "0.00"
	}
	if currency == nil {
		return "$" + d.StringFixed(2)
	}
	return d.Round(2).String() + " " + currency.name(lang)
}

// ValidPrice reports whether price is empty or a non-negative decimal.
func ValidPrice(price string) bool {
	price = strings.TrimSpace(price)
	if price == "" {
		return true
	}
	d, err := decimal.NewFromString(price)
	return err == nil && !d.IsNegative()
}
