// Package format renders prices, volumes and ratios for terminal output.
package format

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ISK renders an amount with two decimals and thousands separators,
// e.g. "1,234,567.89 ISK".
func ISK(v float64) string {
	return Number(decimal.NewFromFloat(v), 2) + " ISK"
}

// Percent renders a ratio as a percentage with two decimals.
func Percent(ratio float64) string {
	return decimal.NewFromFloat(ratio).Shift(2).StringFixed(2) + "%"
}

// Units renders an integer count with thousands separators.
func Units(n int64) string {
	return group(strconv.FormatInt(n, 10))
}

var suffixes = []struct {
	exp    int32
	suffix string
}{
	{12, "T"},
	{9, "B"},
	{6, "M"},
	{3, "k"},
}

// Compact renders large amounts with a magnitude suffix, e.g. "1.23B".
func Compact(v float64) string {
	d := decimal.NewFromFloat(v)
	abs := d.Abs()
	for _, s := range suffixes {
		if abs.GreaterThanOrEqual(decimal.New(1, s.exp)) {
			return d.Shift(-s.exp).StringFixed(2) + s.suffix
		}
	}
	return d.StringFixed(2)
}

// Number renders d rounded to places with thousands separators.
func Number(d decimal.Decimal, places int32) string {
	return group(d.StringFixed(places))
}

// group inserts commas into the integer part of a plain decimal string.
func group(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return sign + s
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}
