package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
)

func TestSwapOutput_ReferenceScenario(t *testing.T) {
	// 1e12 tokens against 0.1 SOL, fee 0: buying 0.1 SOL takes half the tokens.
	out, err := SwapOutput(100_000_000, 100_000_000, 1_000_000_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000_000), out)
}

func TestSwapOutput_AppliesFee(t *testing.T) {
	// 1% fee: adjusted input 99, out = 1000*99/(1000+99) = 90
	out, err := SwapOutput(100, 1_000, 1_000, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), out)
}

func TestSwapOutput_Errors(t *testing.T) {
	_, err := SwapOutput(10, 0, 100, 0)
	assert.ErrorIs(t, err, program.ErrEmptyPool)

	_, err = SwapOutput(10, 100, 0, 0)
	assert.ErrorIs(t, err, program.ErrEmptyPool)

	_, err = SwapOutput(10, 100, 100, 10_001)
	assert.ErrorIs(t, err, program.ErrInvalidFee)
}

func TestSwapOutput_Monotonic(t *testing.T) {
	reserveIn := uint64(150_000_000_000)
	reserveOut := uint64(1_000_000_000_000_000)

	var prev uint64
	for amount := uint64(0); amount <= 10_000_000_000; amount += 37_000_017 {
		out, err := SwapOutput(amount, reserveIn, reserveOut, 100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out, prev, "output decreased at amount %d", amount)
		prev = out
	}
}

func TestSwapOutput_NeverDrains(t *testing.T) {
	cases := []struct {
		name       string
		amountIn   uint64
		reserveIn  uint64
		reserveOut uint64
		fee        uint16
	}{
		{"max input tiny pool", math.MaxUint64, 1, 1, 0},
		{"max input max pool", math.MaxUint64, math.MaxUint64, math.MaxUint64, 0},
		{"large input with fee", math.MaxUint64, 1_000, 1_000_000_000, 9_999},
		{"one lamport", 1, 1, math.MaxUint64, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := SwapOutput(tc.amountIn, tc.reserveIn, tc.reserveOut, tc.fee)
			require.NoError(t, err)
			assert.Less(t, out, tc.reserveOut)
		})
	}
}

func TestSwapOutput_FullFeeYieldsNothing(t *testing.T) {
	out, err := SwapOutput(1_000_000, 1_000, 1_000, program.BasisPoints)
	require.NoError(t, err)
	assert.Zero(t, out)
}

func TestApplyBps(t *testing.T) {
	tax, err := ApplyBps(120_000_000, 5_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(60_000_000), tax)

	tax, err = ApplyBps(3, 5_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tax, "floor division")

	_, err = ApplyBps(1, 10_001)
	assert.ErrorIs(t, err, program.ErrInvalidTaxBps)
}

func TestMulDiv(t *testing.T) {
	v, err := MulDiv(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)

	_, err = MulDiv(math.MaxUint64, 2, 1)
	assert.ErrorIs(t, err, program.ErrArithmeticOverflow)

	_, err = MulDiv(1, 1, 0)
	assert.ErrorIs(t, err, program.ErrArithmeticOverflow)
}

func TestCheckedAddSub(t *testing.T) {
	_, err := CheckedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, program.ErrArithmeticOverflow)

	_, err = CheckedSub(1, 2)
	assert.ErrorIs(t, err, program.ErrArithmeticOverflow)

	v, err := CheckedSub(5, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v)
}

func TestRatio(t *testing.T) {
	costBasis := Ratio{Num: 100_000_000, Den: 500_000_000_000}

	assert.True(t, SpotPrice(150_000_000, 1_000_000_000_000).Less(costBasis))
	assert.False(t, SpotPrice(200_000_000, 1_000_000_000_000).Less(costBasis))
	assert.Equal(t, 0, SpotPrice(200_000_000, 1_000_000_000_000).Cmp(costBasis))

	// cross products exceed 64 bits
	big := Ratio{Num: math.MaxUint64, Den: math.MaxUint64 - 1}
	assert.True(t, Ratio{Num: 1, Den: 1}.Less(big))
	assert.False(t, Ratio{}.Defined())
}
