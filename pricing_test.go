package paymaster

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPriceSource_RejectsWrongDecimals(t *testing.T) {
	good := &mockOracle{answer: big.NewInt(100_000_000), updatedAt: testNow, decimals: 8}

	for _, decimals := range []uint8{0, 6, 18} {
		bad := &mockOracle{answer: big.NewInt(100_000_000), updatedAt: testNow, decimals: decimals}

		_, err := NewPriceSource(bad, good, 6, testStaleAfter)
		require.ErrorIs(t, err, ErrOracleDecimalsInvalid)

		_, err = NewPriceSource(good, bad, 6, testStaleAfter)
		require.ErrorIs(t, err, ErrOracleDecimalsInvalid)
	}
}

func TestPriceSource_Price(t *testing.T) {
	// $1 token, $2000 native, 6-decimal token:
	// 2000e8 * 1e6 / 1e8 = 2_000_000_000 token units per 1e18 wei.
	prices := testPrices(t)

	price, err := prices.Price(testNow)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2_000_000_000), price)
}

func TestPriceSource_PriceScalesWithTokenQuote(t *testing.T) {
	// A $0.50 token doubles the per-native rate.
	prices, err := NewPriceSource(
		&mockOracle{answer: big.NewInt(50_000_000), updatedAt: testNow, decimals: 8},
		&mockOracle{answer: big.NewInt(200_000_000_000), updatedAt: testNow, decimals: 8},
		6,
		testStaleAfter,
	)
	require.NoError(t, err)

	price, err := prices.Price(testNow)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(4_000_000_000), price)
}

func TestPriceSource_RejectsNonPositiveAnswer(t *testing.T) {
	for _, answer := range []*big.Int{big.NewInt(0), big.NewInt(-1)} {
		prices, err := NewPriceSource(
			&mockOracle{answer: answer, updatedAt: testNow, decimals: 8},
			&mockOracle{answer: big.NewInt(200_000_000_000), updatedAt: testNow, decimals: 8},
			6,
			testStaleAfter,
		)
		require.NoError(t, err)

		_, err = prices.Price(testNow)
		require.ErrorIs(t, err, ErrOraclePriceNotPositive)
	}
}

// An update exactly staleAfter seconds old is still fresh; one second more
// is stale.
func TestPriceSource_StalenessBoundary(t *testing.T) {
	boundary := func(updatedAt uint64) error {
		prices, err := NewPriceSource(
			&mockOracle{answer: big.NewInt(100_000_000), updatedAt: updatedAt, decimals: 8},
			&mockOracle{answer: big.NewInt(200_000_000_000), updatedAt: testNow, decimals: 8},
			6,
			testStaleAfter,
		)
		require.NoError(t, err)
		_, err = prices.Price(testNow)
		return err
	}

	require.NoError(t, boundary(testNow-testStaleAfter))
	require.ErrorIs(t, boundary(testNow-testStaleAfter-1), ErrOraclePriceStale)
}

func TestPriceSource_ChecksBothLegs(t *testing.T) {
	prices, err := NewPriceSource(
		&mockOracle{answer: big.NewInt(100_000_000), updatedAt: testNow, decimals: 8},
		&mockOracle{answer: big.NewInt(200_000_000_000), updatedAt: testNow - testStaleAfter - 100, decimals: 8},
		6,
		testStaleAfter,
	)
	require.NoError(t, err)

	_, err = prices.Price(testNow)
	require.ErrorIs(t, err, ErrOraclePriceStale)
}
