// Owner-gated configuration and emergency-recovery surface. Each call is
// independently atomic: input validation happens before any mutation, so a
// rejected call leaves the engine untouched.

package paymaster

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const ErrNativeUnavailable paymasterError = "no native mover configured"

// SetMarkup updates the markup after re-validating the floor/ceiling bounds.
func (p *basePaymaster) SetMarkup(caller common.Address, markup uint32) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if err := validateMarkup(markup, p.markupFloor, p.markupCeiling); err != nil {
		return err
	}
	p.markup = markup
	p.events.Emit(MarkupUpdated{Markup: markup})
	p.logger.Info("markup updated", "markup", markup)
	return nil
}

// SetTreasury updates the sweep destination; the zero address is rejected.
func (p *basePaymaster) SetTreasury(caller common.Address, treasury common.Address) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if treasury == (common.Address{}) {
		return ErrZeroAddress
	}
	p.treasury = treasury
	p.events.Emit(TreasuryUpdated{Treasury: treasury})
	p.logger.Info("treasury updated", "treasury", treasury)
	return nil
}

// Withdraw moves an amount of the configured token out of custody.
func (p *basePaymaster) Withdraw(caller common.Address, to common.Address, amount *big.Int) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if err := p.token.Transfer(to, amount); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	p.logger.Info("token withdrawn", "to", to, "amount", amount)
	return nil
}

// RescueToken recovers an arbitrary token sent to the engine by mistake.
// Unrelated to the settlement flow.
func (p *basePaymaster) RescueToken(caller common.Address, token TokenLedger, to common.Address, amount *big.Int) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if err := token.Transfer(to, amount); err != nil {
		return fmt.Errorf("rescue token: %w", err)
	}
	p.logger.Info("token rescued", "to", to, "amount", amount)
	return nil
}

// RescueNative recovers native value held by the engine.
func (p *basePaymaster) RescueNative(caller common.Address, to common.Address, amount *big.Int) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if p.native == nil {
		return ErrNativeUnavailable
	}
	if err := p.native.Send(to, amount); err != nil {
		return fmt.Errorf("rescue native: %w", err)
	}
	p.logger.Info("native rescued", "to", to, "amount", amount)
	return nil
}
