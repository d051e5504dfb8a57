package portal

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatAmount renders a minor-unit amount in its currency for display.
// Whole amounts lose their trailing zero cents ("$10.00" becomes "$10").
func FormatAmount(minor int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%d %s", minor, strings.ToUpper(code))
	}

	scale, _ := currency.Cash.Rounding(unit)
	value := float64(minor) / math.Pow10(scale)

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%v", currency.Symbol(unit.Amount(value)))

	formatted = strings.TrimSuffix(formatted, ".00")
	formatted = strings.TrimSuffix(formatted, ".0")
	return formatted
}
