package paymaster

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ERC20Paymaster settles gas sponsorship in a fungible token. Four payment
// modes are supported on the wire: plain and guarantor-backed charging, each
// with or without a caller-declared spend ceiling. The markup may discount
// down to half scale.
type ERC20Paymaster struct {
	basePaymaster
}

// NewERC20Paymaster validates the configuration and builds the engine.
func NewERC20Paymaster(cfg Config) (*ERC20Paymaster, error) {
	base, err := newBasePaymaster(cfg, tokenMarkupFloor)
	if err != nil {
		return nil, err
	}
	return &ERC20Paymaster{basePaymaster: base}, nil
}

// ValidatePaymasterUserOp decides whether the operation can be sponsored and
// pre-charges the payer for the worst case.
//
// All rejecting checks run before the balance-affecting transfer, so any
// returned error is side-effect free. A bad guarantor signature is not an
// error: it is encoded into the verdict together with the data's validity
// window and nothing is charged.
//
// Returns:
//   - []byte: the opaque settlement context, empty on soft rejection.
//   - Verdict: rejection flag plus validity window.
//   - error: hard aborts only (malformed data, stale oracle, limits).
func (p *ERC20Paymaster) ValidatePaymasterUserOp(op *UserOperation, opHash common.Hash, maxCost *big.Int) ([]byte, Verdict, error) {
	pd, err := ParsePaymasterData(op.PaymasterAndData)
	if err != nil {
		return nil, Verdict{}, err
	}

	price, err := p.prices.Price(p.now())
	if err != nil {
		return nil, Verdict{}, err
	}

	needed := p.tokenAmount(maxCost, op.MaxFeePerGas, p.settlementGas(pd.Mode.HasGuarantor()), price)

	if pd.Mode.WithLimit() {
		if pd.TokenLimit.Sign() == 0 {
			return nil, Verdict{}, ErrTokenLimitZero
		}
		if needed.Cmp(pd.TokenLimit) > 0 {
			return nil, Verdict{}, ErrTokenAmountTooHigh
		}
	}

	verdict := Verdict{ValidUntil: pd.ValidUntil, ValidAfter: pd.ValidAfter}

	chargeFrom := op.Sender
	if pd.Mode.HasGuarantor() {
		digest, err := SponsorshipHash(op, p.chainID, p.self, pd.ValidationGas,
			pd.ValidUntil, pd.ValidAfter, pd.TokenLimit)
		if err != nil {
			return nil, Verdict{}, err
		}
		signer, err := recoverSigner(digest, pd.Signature)
		if err != nil || signer != pd.Guarantor {
			verdict.SigFailed = true
			p.logger.Warn("guarantor signature rejected",
				"opHash", opHash, "guarantor", pd.Guarantor)
			return nil, verdict, nil
		}
		chargeFrom = pd.Guarantor
	}

	if err := p.token.TransferFrom(chargeFrom, p.self, needed); err != nil {
		return nil, Verdict{}, fmt.Errorf("token pre-charge: %w", err)
	}

	ctx := &SettlementContext{
		PreCharge: needed,
		Price:     price,
		Payer:     op.Sender,
		OpHash:    opHash,
	}
	if pd.Mode.HasGuarantor() {
		guarantor := pd.Guarantor
		ctx.Guarantor = &guarantor
	}

	encoded, err := ctx.Encode()
	if err != nil {
		return nil, Verdict{}, err
	}

	p.logger.Debug("operation pre-charged",
		"opHash", opHash, "mode", pd.Mode, "from", chargeFrom, "amount", needed)
	return encoded, verdict, nil
}

// PostOp settles the context emitted by ValidatePaymasterUserOp once the
// operation's real gas cost is known. Invoked by the host exactly once per
// context, strictly after the matching validate call.
func (p *ERC20Paymaster) PostOp(mode PostOpMode, context []byte, actualGasCost, actualFeePerGas *big.Int) error {
	ctx, err := DecodeSettlementContext(context)
	if err != nil {
		return err
	}

	if mode == PostOpReverted {
		p.logger.Debug("settling reverted operation", "opHash", ctx.OpHash)
	}

	actual, paidByGuarantor, err := p.settle(ctx, actualGasCost, actualFeePerGas)
	if err != nil {
		return err
	}

	p.emitSponsored(ctx, actual, paidByGuarantor)
	return nil
}
