package tokens

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ToSmallestUnit converts a human amount such as "1.5" into integer smallest
// units using the asset's decimals. Amounts with more fractional digits than
// the asset supports are rejected instead of rounded.
func ToSmallestUnit(amount string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be greater than 0")
	}

	units := d.Shift(int32(decimals))
	if !units.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	bi := units.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s is too large", amount)
	}
	return bi.Uint64(), nil
}

// FormatAmount renders smallest units as a decimal string without trailing
// zeros. Only used at the display boundary.
func FormatAmount(units uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals)).String()
}

// PriceImpactSeverity classifies a price impact percentage for display.
func PriceImpactSeverity(pct string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(pct))
	if err != nil {
		return "unknown"
	}
	bps := d.Abs().Mul(decimal.NewFromInt(100))

	switch {
	case bps.LessThan(decimal.NewFromInt(10)):
		return "none"
	case bps.LessThan(decimal.NewFromInt(100)):
		return "low"
	case bps.LessThan(decimal.NewFromInt(300)):
		return "moderate"
	case bps.LessThan(decimal.NewFromInt(500)):
		return "high"
	default:
		return "extreme"
	}
}
