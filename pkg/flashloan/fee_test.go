package flashloan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFee(t *testing.T) {
	for _, tc := range []struct {
		amount   uint64
		expected uint64
	}{
		{0, 0},
		{1, 0},
		{3, 0},       // truncates to zero
		{19, 0},      // largest fee-free borrow
		{20, 1},      // smallest fee-bearing borrow
		{100, 5},
		{1_000_000, 50_000},
		{math.MaxUint64 / FeeBasisPoints, 1_844_674_407_370_955},
	} {
		actual, err := Fee(tc.amount)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, actual, "amount %d", tc.amount)
	}
}

func TestFee_Overflow(t *testing.T) {
	_, err := Fee(math.MaxUint64)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Fee(math.MaxUint64/FeeBasisPoints + 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = RepayTotal(math.MaxUint64)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestRepayTotal(t *testing.T) {
	total, err := RepayTotal(1_000_000)
	require.NoError(t, err)
	assert.EqualValues(t, 1_050_000, total)

	total, err = RepayTotal(3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}
