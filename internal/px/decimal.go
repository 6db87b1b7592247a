package px

import (
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// decimalContext is the arithmetic context of computed fields:
// 28 significant digits, half-even rounding.
var decimalContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(28)
	c.Rounding = apd.RoundHalfEven
	return c
}()

// FormatDecimal renders d in plain notation without trailing fractional
// zeros or a trailing decimal point: 12.50 is "12.5", 12.00 is "12".
func FormatDecimal(d *apd.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	s := d.Text('f')
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
