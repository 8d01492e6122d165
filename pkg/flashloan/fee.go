package flashloan

import (
	"math"
)

const (
	// FeeBasisPoints is the flat borrow fee: 500 bps = 5%.
	FeeBasisPoints = 500

	basisPoints = 10_000
)

// Fee computes the borrow fee, floor(amount * 500 / 10_000). The
// multiplication is overflow-checked; integer division truncates, so small
// borrows can be fee-free.
func Fee(amount uint64) (uint64, error) {
	if amount > math.MaxUint64/FeeBasisPoints {
		return 0, ErrOverflow
	}
	return amount * FeeBasisPoints / basisPoints, nil
}

// RepayTotal computes the full repayment owed for a borrow: the principal
// plus the fee, with checked addition.
func RepayTotal(amount uint64) (uint64, error) {
	fee, err := Fee(amount)
	if err != nil {
		return 0, err
	}
	if amount > math.MaxUint64-fee {
		return 0, ErrOverflow
	}
	return amount + fee, nil
}
