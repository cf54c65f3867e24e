// Package money converts between decimal amounts and the integer minor units
// stored by the SQL adapters.
package money

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "ledgertx/internal/platform/errors"
)

const Scale = 2

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// Parse reads an amount with at most two decimal places.
func Parse(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: amount %q: %v", apperrors.ErrInvalidInput, raw, err)
	}
	if _, err := ToMinor(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// ToMinor returns d in minor units. Amounts with sub-cent precision are rejected.
func ToMinor(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(Scale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: amount %s has more than %d decimal places", apperrors.ErrInvalidInput, d.String(), Scale)
	}
	if shifted.Abs().GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: amount %s out of range", apperrors.ErrInvalidInput, d.String())
	}
	return shifted.IntPart(), nil
}

func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -Scale)
}

func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// RequirePositive rejects zero and negative amounts.
func RequirePositive(d decimal.Decimal) error {
	if d.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrInvalidInput)
	}
	return nil
}
