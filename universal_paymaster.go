package paymaster

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UniversalPaymaster is the variant for hosts that either charge the sender
// directly in tokens or sponsor an operation for free against the verifying
// signer's authorization. No discounting below break-even: the markup floor
// is full scale.
type UniversalPaymaster struct {
	basePaymaster
	verifyingSigner common.Address
}

// NewUniversalPaymaster validates the configuration and builds the engine.
// A zero verifying signer is rejected.
func NewUniversalPaymaster(cfg Config, verifyingSigner common.Address) (*UniversalPaymaster, error) {
	if verifyingSigner == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	base, err := newBasePaymaster(cfg, universalMarkupFloor)
	if err != nil {
		return nil, err
	}
	return &UniversalPaymaster{
		basePaymaster:   base,
		verifyingSigner: verifyingSigner,
	}, nil
}

// VerifyingSigner returns the authority whose signature authorizes
// sponsored operations.
func (p *UniversalPaymaster) VerifyingSigner() common.Address {
	return p.verifyingSigner
}

// SetVerifyingSigner rotates the verifying signer; the zero address is
// rejected.
func (p *UniversalPaymaster) SetVerifyingSigner(caller common.Address, signer common.Address) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if signer == (common.Address{}) {
		return ErrZeroAddress
	}
	p.verifyingSigner = signer
	p.events.Emit(VerifyingSignerChanged{Signer: signer})
	p.logger.Info("verifying signer changed", "signer", signer)
	return nil
}

// ValidatePaymasterUserOp decides whether the operation can be sponsored.
// Direct-charge operations pre-charge the sender exactly like the token
// engine's plain mode; sponsored operations charge nobody and only verify
// the verifying signer's signature, a failure being a soft rejection.
func (p *UniversalPaymaster) ValidatePaymasterUserOp(op *UserOperation, opHash common.Hash, maxCost *big.Int) ([]byte, Verdict, error) {
	sd, err := ParseSponsorData(op.PaymasterAndData)
	if err != nil {
		return nil, Verdict{}, err
	}

	if sd.Mode == ModeSponsored {
		verdict := Verdict{ValidUntil: sd.ValidUntil, ValidAfter: sd.ValidAfter}

		digest, err := SponsoredOperationHash(op, p.chainID, p.self, sd.ValidationGas,
			sd.ValidUntil, sd.ValidAfter)
		if err != nil {
			return nil, Verdict{}, err
		}
		signer, err := recoverSigner(digest, sd.Signature)
		if err != nil || signer != p.verifyingSigner {
			verdict.SigFailed = true
			p.logger.Warn("sponsor signature rejected", "opHash", opHash)
		}
		// Nothing charged, nothing to settle.
		return nil, verdict, nil
	}

	price, err := p.prices.Price(p.now())
	if err != nil {
		return nil, Verdict{}, err
	}

	needed := p.tokenAmount(maxCost, op.MaxFeePerGas, p.refundGas, price)
	if err := p.token.TransferFrom(op.Sender, p.self, needed); err != nil {
		return nil, Verdict{}, fmt.Errorf("token pre-charge: %w", err)
	}

	ctx := &SettlementContext{
		PreCharge: needed,
		Price:     price,
		Payer:     op.Sender,
		OpHash:    opHash,
	}
	encoded, err := ctx.Encode()
	if err != nil {
		return nil, Verdict{}, err
	}

	p.logger.Debug("operation pre-charged",
		"opHash", opHash, "mode", sd.Mode, "from", op.Sender, "amount", needed)
	return encoded, Verdict{}, nil
}

// PostOp settles a direct-charge context. Sponsored operations emit no
// context and settle to a no-op.
func (p *UniversalPaymaster) PostOp(mode PostOpMode, context []byte, actualGasCost, actualFeePerGas *big.Int) error {
	if len(context) == 0 {
		return nil
	}

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
