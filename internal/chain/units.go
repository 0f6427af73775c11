package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidAmount is returned when a decimal amount cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseUnits converts a decimal string such as "1.25" into base units.
// Negative values and fractions finer than decimals are rejected.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	n, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return n, nil
}

// ParseEther parses an 18-decimal amount.
func ParseEther(s string) (*big.Int, error) { return ParseUnits(s, 18) }

// FormatUnits renders base units as a decimal string without trailing zeros,
// keeping at least one fractional digit ("1.0", "0.5").
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		raw = new(big.Int)
	}
	neg := raw.Sign() < 0
	abs := new(big.Int).Abs(raw)
	if decimals <= 0 {
		return raw.String() + ".0"
	}

	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	q, r := new(big.Int).QuoRem(abs, div, new(big.Int))

	frac := fmt.Sprintf("%0*s", decimals, r.String())
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	out := q.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// FormatEther renders wei as ether.
func FormatEther(wei *big.Int) string { return FormatUnits(wei, 18) }

// ToFloat converts base units to a float64 for display arithmetic.
func ToFloat(raw *big.Int, decimals int) float64 {
	if raw == nil {
		return 0
	}
	f := new(big.Float).SetInt(raw)
	if decimals > 0 {
		div := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
		f.Quo(f, div)
	}
	v, _ := f.Float64()
	return v
}
