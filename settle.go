package paymaster

import (
	"fmt"
	"math/big"
)

// PostOpMode is the host's hint about how the operation's execution ended.
// Settlement runs identically for succeeded and reverted operations; the
// gas was spent either way.
type PostOpMode uint8

const (
	PostOpSucceeded PostOpMode = iota
	PostOpReverted
)

// ErrRefundExceedsPreCharge means the settle-time recompute came out above
// the validate-time pre-charge. The pre-charge is sized against a worst-case
// estimate that upper-bounds the actual cost, so this indicates a pricing or
// configuration defect; it propagates as fatal rather than being clamped.
const ErrRefundExceedsPreCharge paymasterError = "actual charge exceeds pre-charge"

// settle reconciles one context against the operation's actual cost:
// refunds the difference to the right party, falls back to the guarantor
// when the payer cannot cover the recompute, and sweeps the engine's
// residual custody to the treasury so the token balance ends at zero.
//
// Returns:
//   - *big.Int: the token amount actually charged.
//   - bool: whether the guarantor absorbed the cost.
//   - error: fatal settlement failures only.
func (p *basePaymaster) settle(ctx *SettlementContext, actualGasCost, actualFeePerGas *big.Int) (*big.Int, bool, error) {
	refundGas := p.settlementGas(ctx.Guarantor != nil)
	actual := p.tokenAmount(actualGasCost, actualFeePerGas, refundGas, ctx.Price)

	paidByGuarantor := false
	if ctx.Guarantor == nil {
		refund := new(big.Int).Sub(ctx.PreCharge, actual)
		if refund.Sign() < 0 {
			return nil, false, ErrRefundExceedsPreCharge
		}
		if refund.Sign() > 0 {
			if err := p.token.Transfer(ctx.Payer, refund); err != nil {
				return nil, false, fmt.Errorf("payer refund: %w", err)
			}
		}
	} else {
		if err := p.token.TransferFrom(ctx.Payer, p.self, actual); err == nil {
			// The payer covered the recompute: the guarantor's pre-charge
			// is returned whole and the user ultimately pays.
			if err := p.token.Transfer(*ctx.Guarantor, ctx.PreCharge); err != nil {
				return nil, false, fmt.Errorf("guarantor refund: %w", err)
			}
		} else {
			// Payer cannot cover it; the guarantor absorbs the cost.
			paidByGuarantor = true
			refund := new(big.Int).Sub(ctx.PreCharge, actual)
			if refund.Sign() < 0 {
				return nil, false, ErrRefundExceedsPreCharge
			}
			if refund.Sign() > 0 {
				if err := p.token.Transfer(*ctx.Guarantor, refund); err != nil {
					return nil, false, fmt.Errorf("guarantor refund: %w", err)
				}
			}
		}
	}

	if err := p.sweep(); err != nil {
		return nil, false, err
	}
	return actual, paidByGuarantor, nil
}

// sweep moves whatever custody balance remains to the treasury. Under
// correct accounting what remains after the refunds is exactly the amount
// charged for this operation; sweeping the full balance also enforces the
// zero-balance invariant if accounting ever drifts.
func (p *basePaymaster) sweep() error {
	balance, err := p.token.BalanceOf(p.self)
	if err != nil {
		return fmt.Errorf("custody balance: %w", err)
	}
	if balance.Sign() == 0 {
		return nil
	}
	if err := p.token.Transfer(p.treasury, balance); err != nil {
		return fmt.Errorf("treasury sweep: %w", err)
	}
	return nil
}

// emitSponsored records the settlement outcome for off-chain observers.
func (p *basePaymaster) emitSponsored(ctx *SettlementContext, actual *big.Int, paidByGuarantor bool) {
	p.events.Emit(OperationSponsored{
		OpHash:          ctx.OpHash,
		User:            ctx.Payer,
		Guarantor:       ctx.Guarantor,
		TokenAmount:     actual,
		Price:           ctx.Price,
		PaidByGuarantor: paidByGuarantor,
	})
	p.logger.Debug("operation settled",
		"opHash", ctx.OpHash,
		"user", ctx.Payer,
		"charged", actual,
		"guarantorPaid", paidByGuarantor,
	)
}
