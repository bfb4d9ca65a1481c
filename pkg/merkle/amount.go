package merkle

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	weiDecimals  = 18
	minAmountLen = 1
	maxAmountLen = 30
)

// ParseDecimalToWei parses a decimal (possibly fractional) token-amount
// string into its integer wei value, scaling by 18 decimals per spec §3.
// The string must be 1-30 characters, non-negative, and carry no more than
// 18 fractional digits (anything finer than a wei is rejected rather than
// silently rounded).
func ParseDecimalToWei(amount string) (*big.Int, error) {
	if len(amount) < minAmountLen || len(amount) > maxAmountLen {
		return nil, fmt.Errorf("amount %q must be between %d and %d characters", amount, minAmountLen, maxAmountLen)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q is not a valid decimal: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q must be non-negative", amount)
	}

	wei := d.Shift(weiDecimals)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d fractional digits", amount, weiDecimals)
	}

	return wei.BigInt(), nil
}

// FormatWeiDecimal returns the base-10 string of a wei integer, the form
// stored in the proofs table and emitted in leaf encoding (spec §4.3).
func FormatWeiDecimal(wei *big.Int) string {
	return wei.String()
}
