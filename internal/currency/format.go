package currency

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"SGD": "S$",
	"INR": "₹",
	"JPY": "¥",
	"AUD": "A$",
	"CNY": "¥",
	"MYR": "RM",
	"THB": "฿",
	"KRW": "₩",
	"CAD": "C$",
}

// suffixed currencies render the symbol after the number.
var suffixed = map[string]bool{
	"EUR": true,
}

var printer = message.NewPrinter(language.English)

// Symbol returns the conventional symbol for code, or the code itself.
func Symbol(code string) string {
	code = normalizeCode(code)
	if s, ok := symbols[code]; ok {
		return s
	}
	return code
}

// Format renders amount with thousands grouping, two decimals and the
// currency symbol, e.g. "S$1,234.56" or "1,234.56 €".
func Format(amount float64, code string) string {
	code = normalizeCode(code)
	d := decimal.NewFromFloat(amount).Round(2)
	negative := d.IsNegative()

	number := printer.Sprintf("%.2f", d.Abs().InexactFloat64())

	var out string
	switch symbol := Symbol(code); {
	case code == "":
		out = number
	case suffixed[code]:
		out = number + " " + symbol
	default:
		out = symbol + number
	}

	if negative {
		return "-" + out
	}
	return out
}
