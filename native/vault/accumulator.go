package vault

import (
	"math/bits"

	"github.com/holiman/uint256"
)

// Scale is the fixed-point precision of the reward accumulator.
const Scale uint64 = 1_000_000_000_000

var scale = uint256.NewInt(Scale)

func fitsU128(x *uint256.Int) bool { return x.BitLen() <= 128 }

// Accrue folds distributable revenue into the accumulator. The scaled amount
// plus the carried remainder is divided across minted shares; the quotient is
// added to acc and the new remainder returned.
func Accrue(acc uint256.Int, remainder, distributable, minted uint64) (uint256.Int, uint64, error) {
	if minted == 0 {
		return acc, remainder, ErrNoShareholders
	}
	total := new(uint256.Int).Mul(uint256.NewInt(distributable), scale)
	total.Add(total, uint256.NewInt(remainder))
	if !fitsU128(total) {
		return acc, remainder, ErrMathOverflow
	}
	increment, rem := new(uint256.Int).DivMod(total, uint256.NewInt(minted), new(uint256.Int))
	next, overflow := new(uint256.Int).AddOverflow(&acc, increment)
	if overflow || !fitsU128(next) {
		return acc, remainder, ErrMathOverflow
	}
	return *next, rem.Uint64(), nil
}

// Owed returns the revenue accrued to quantity shares since checkpoint,
// rounded down, and the checkpoint the position should move to.
func Owed(acc, checkpoint uint256.Int, quantity uint64) (uint64, uint256.Int, error) {
	if acc.Lt(&checkpoint) {
		return 0, checkpoint, ErrAccumulatorRegression
	}
	delta := new(uint256.Int).Sub(&acc, &checkpoint)
	product, overflow := new(uint256.Int).MulOverflow(delta, uint256.NewInt(quantity))
	if overflow {
		return 0, checkpoint, ErrMathOverflow
	}
	amount := product.Div(product, scale)
	if !amount.IsUint64() {
		return 0, checkpoint, ErrMathOverflow
	}
	return amount.Uint64(), acc, nil
}

// SplitRevenue divides a deposit into the performance fee (rounded down) and
// the distributable remainder.
func SplitRevenue(amount uint64, feeBps uint16) (fee, distributable uint64, err error) {
	if feeBps > MaxPerformanceFeeBps {
		return 0, 0, ErrPerformanceFeeExceedsMax
	}
	hi, lo := bits.Mul64(amount, uint64(feeBps))
	fee, _ = bits.Div64(hi, lo, FeeBpsDenominator)
	return fee, amount - fee, nil
}

func mulU64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrMathOverflow
	}
	return lo, nil
}

func addU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrMathOverflow
	}
	return sum, nil
}
