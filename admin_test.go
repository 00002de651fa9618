package paymaster

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSetMarkup(t *testing.T) {
	ledger := newMockLedger(engineAddr)
	sink := &memorySink{}
	pm := newTestERC20Paymaster(t, ledger, sink)

	t.Run("non-owner rejected", func(t *testing.T) {
		err := pm.SetMarkup(strangerAddr, MarkupScale)
		require.ErrorIs(t, err, ErrUnauthorized)
		require.Equal(t, uint32(1_100_000), pm.Markup())
	})

	t.Run("below floor rejected, markup unchanged", func(t *testing.T) {
		err := pm.SetMarkup(ownerAddr, tokenMarkupFloor-1)
		require.ErrorIs(t, err, ErrMarkupOutOfRange)
		require.Equal(t, uint32(1_100_000), pm.Markup())
	})

	t.Run("above ceiling rejected, markup unchanged", func(t *testing.T) {
		err := pm.SetMarkup(ownerAddr, 1_200_001)
		require.ErrorIs(t, err, ErrMarkupOutOfRange)
		require.Equal(t, uint32(1_100_000), pm.Markup())
	})

	t.Run("floor and ceiling accepted", func(t *testing.T) {
		require.NoError(t, pm.SetMarkup(ownerAddr, tokenMarkupFloor))
		require.Equal(t, tokenMarkupFloor, pm.Markup())

		require.NoError(t, pm.SetMarkup(ownerAddr, 1_200_000))
		require.Equal(t, uint32(1_200_000), pm.Markup())

		require.Equal(t, MarkupUpdated{Markup: 1_200_000}, sink.events[len(sink.events)-1])
	})
}

func TestSetTreasury(t *testing.T) {
	ledger := newMockLedger(engineAddr)
	sink := &memorySink{}
	pm := newTestERC20Paymaster(t, ledger, sink)

	require.ErrorIs(t, pm.SetTreasury(strangerAddr, userAddr), ErrUnauthorized)
	require.ErrorIs(t, pm.SetTreasury(ownerAddr, common.Address{}), ErrZeroAddress)
	require.Equal(t, treasuryAddr, pm.Treasury())

	require.NoError(t, pm.SetTreasury(ownerAddr, userAddr))
	require.Equal(t, userAddr, pm.Treasury())
	require.Equal(t, TreasuryUpdated{Treasury: userAddr}, sink.events[len(sink.events)-1])
}

func TestSetVerifyingSigner(t *testing.T) {
	ledger := newMockLedger(engineAddr)
	sink := &memorySink{}
	pm := newTestUniversalPaymaster(t, ledger, sink)
	original := pm.VerifyingSigner()

	require.ErrorIs(t, pm.SetVerifyingSigner(strangerAddr, userAddr), ErrUnauthorized)
	require.ErrorIs(t, pm.SetVerifyingSigner(ownerAddr, common.Address{}), ErrZeroAddress)
	require.Equal(t, original, pm.VerifyingSigner())

	require.NoError(t, pm.SetVerifyingSigner(ownerAddr, userAddr))
	require.Equal(t, userAddr, pm.VerifyingSigner())
	require.Equal(t, VerifyingSignerChanged{Signer: userAddr}, sink.events[len(sink.events)-1])
}

func TestWithdraw(t *testing.T) {
	ledger := newMockLedger(engineAddr)
	ledger.credit(engineAddr, 5_000)
	pm := newTestERC20Paymaster(t, ledger, &memorySink{})

	require.ErrorIs(t, pm.Withdraw(strangerAddr, userAddr, big.NewInt(5_000)), ErrUnauthorized)

	require.NoError(t, pm.Withdraw(ownerAddr, userAddr, big.NewInt(3_000)))
	balance, _ := ledger.BalanceOf(userAddr)
	require.Equal(t, big.NewInt(3_000), balance)

	// More than custody holds fails and moves nothing.
	require.Error(t, pm.Withdraw(ownerAddr, userAddr, big.NewInt(3_000)))
	balance, _ = ledger.BalanceOf(userAddr)
	require.Equal(t, big.NewInt(3_000), balance)
}

func TestRescueToken(t *testing.T) {
	ledger := newMockLedger(engineAddr)
	pm := newTestERC20Paymaster(t, ledger, &memorySink{})

	// A different token stranded at the engine address.
	stray := newMockLedger(engineAddr)
	stray.credit(engineAddr, 777)

	require.ErrorIs(t, pm.RescueToken(strangerAddr, stray, userAddr, big.NewInt(777)), ErrUnauthorized)

	require.NoError(t, pm.RescueToken(ownerAddr, stray, userAddr, big.NewInt(777)))
	balance, _ := stray.BalanceOf(userAddr)
	require.Equal(t, big.NewInt(777), balance)
}

type mockNative struct {
	sent map[common.Address]*big.Int
}

func (m *mockNative) Send(to common.Address, amount *big.Int) error {
	if m.sent == nil {
		m.sent = make(map[common.Address]*big.Int)
	}
	m.sent[to] = new(big.Int).Set(amount)
	return nil
}

func TestRescueNative(t *testing.T) {
	ledger := newMockLedger(engineAddr)

	pm := newTestERC20Paymaster(t, ledger, &memorySink{})
	require.ErrorIs(t, pm.RescueNative(ownerAddr, userAddr, big.NewInt(1)), ErrNativeUnavailable)

	native := &mockNative{}
	cfg := testConfig(t, ledger, &memorySink{})
	cfg.Native = native
	pm, err := NewERC20Paymaster(cfg)
	require.NoError(t, err)

	require.ErrorIs(t, pm.RescueNative(strangerAddr, userAddr, big.NewInt(42)), ErrUnauthorized)
	require.NoError(t, pm.RescueNative(ownerAddr, userAddr, big.NewInt(42)))
	require.Equal(t, big.NewInt(42), native.sent[userAddr])
}
