package token

import (
	"math"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

// ErrAmountOutOfRange indicates a value that cannot be represented as an
// unsigned 64-bit token amount.
var ErrAmountOutOfRange = errors.New("amount out of range")

// Amount is a quantity of the smallest token unit. It is always encoded as 8
// little-endian bytes.
type Amount uint64

// maxExactFloat is the largest integer a float64 is guaranteed to hold exactly.
const maxExactFloat = 1 << 53

var maxAmount = new(big.Int).SetUint64(math.MaxUint64)

func AmountFromInt64(v int64) (Amount, error) {
	if v < 0 {
		return 0, errors.Wrapf(ErrAmountOutOfRange, "negative amount: %d", v)
	}
	return Amount(v), nil
}

// AmountFromFloat64 accepts whole, non-negative values up to 2^53. Larger
// values have already lost precision and are rejected.
func AmountFromFloat64(v float64) (Amount, error) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, errors.Wrapf(ErrAmountOutOfRange, "non-finite amount: %v", v)
	case v < 0:
		return 0, errors.Wrapf(ErrAmountOutOfRange, "negative amount: %v", v)
	case v != math.Trunc(v):
		return 0, errors.Wrapf(ErrAmountOutOfRange, "fractional amount: %v", v)
	case v > maxExactFloat:
		return 0, errors.Wrapf(ErrAmountOutOfRange, "amount exceeds exact float range: %v", v)
	}
	return Amount(v), nil
}

func AmountFromBig(v *big.Int) (Amount, error) {
	if v == nil {
		return 0, errors.Wrap(ErrAmountOutOfRange, "nil amount")
	}
	if v.Sign() < 0 || v.Cmp(maxAmount) > 0 {
		return 0, errors.Wrapf(ErrAmountOutOfRange, "amount %s not in [0, %s]", v, maxAmount)
	}
	return Amount(v.Uint64()), nil
}

// ParseAmount parses a base 10 integer string.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0, errors.Wrapf(ErrAmountOutOfRange, "invalid amount: %q", s)
	}
	return AmountFromBig(v)
}

func (a Amount) Big() *big.Int {
	return new(big.Int).SetUint64(uint64(a))
}

func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}
