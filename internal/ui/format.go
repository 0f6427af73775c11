package ui

import (
	"fmt"
	"math"
	"strings"
)

// FormatPercent renders v with two decimals: 12.50%.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// FormatLargeNumber abbreviates thousands and millions: 1.50K, 2.00M.
func FormatLargeNumber(v float64) string {
	switch {
	case math.Abs(v) >= 1_000_000:
		return fmt.Sprintf("%.2fM", v/1_000_000)
	case math.Abs(v) >= 1_000:
		return fmt.Sprintf("%.2fK", v/1_000)
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatAmount renders a token amount with four decimals.
func FormatAmount(v float64, symbol string) string {
	return strings.TrimSpace(fmt.Sprintf("%.4f %s", v, symbol))
}

// FormatUSD renders an approximate dollar value.
func FormatUSD(v float64) string {
	return fmt.Sprintf("≈ $%.2f", v)
}

// FormatRate renders a per-block reward rate in exponent form: 1.00e-6.
func FormatRate(v float64) string {
	s := fmt.Sprintf("%.2e", v)
	// Go pads the exponent to two digits.
	s = strings.Replace(s, "e-0", "e-", 1)
	s = strings.Replace(s, "e+0", "e+", 1)
	return s
}

// FormatRewards renders small reward amounts with six decimals.
func FormatRewards(v float64, symbol string) string {
	return fmt.Sprintf("%.6f %s", v, symbol)
}
