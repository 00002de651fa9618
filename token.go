package paymaster

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenLedger is the boundary to the fungible-token contract that holds
// balances and accepts transfers. Rebasing-down and fee-on-transfer tokens
// are unsupported: a transfer of n must move exactly n.
//
// TransferFrom returns an error when the source balance or allowance cannot
// cover the amount; the settlement engine relies on that error to pick the
// guarantor-pays path.
type TokenLedger interface {
	BalanceOf(addr common.Address) (*big.Int, error)
	Transfer(to common.Address, amount *big.Int) error
	TransferFrom(from, to common.Address, amount *big.Int) error
}

// NativeMover moves native value held by the engine. Only the emergency
// rescue path uses it; hosts that never rescue native value may leave it nil.
type NativeMover interface {
	Send(to common.Address, amount *big.Int) error
}

// Authorizer is the host's access-control collaborator. The engine asks it
// whether a caller may invoke the admin surface; ownership semantics live
// entirely on the host side.
type Authorizer interface {
	IsOwner(caller common.Address) bool
}
