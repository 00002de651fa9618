package paymaster

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ledgerwatch/log/v3"
)

// amountDenominator normalizes the charge formula: 1e18 for the native wei
// leg of the price, 1e6 for the markup scale.
var amountDenominator = new(big.Int).Mul(
	new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
	new(big.Int).SetUint64(uint64(MarkupScale)),
)

// basePaymaster holds the state and helpers shared by both engine variants:
// custody accounting, pricing, markup policy and the admin surface. The host
// serializes every call, so no internal locking is used; correctness relies
// on the host's atomicity and ordering guarantees.
type basePaymaster struct {
	self     common.Address
	chainID  *big.Int
	token    TokenLedger
	prices   *PriceSource
	treasury common.Address
	auth     Authorizer

	markup        uint32
	markupFloor   uint32
	markupCeiling uint32

	refundGas          *big.Int
	guarantorRefundGas *big.Int

	native NativeMover
	now    func() uint64
	logger log.Logger
	events EventSink
}

func newBasePaymaster(cfg Config, markupFloor uint32) (basePaymaster, error) {
	if err := cfg.validate(markupFloor); err != nil {
		return basePaymaster{}, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New()
	}
	events := cfg.Events
	if events == nil {
		events = NewLogSink(logger)
	}
	now := cfg.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}

	return basePaymaster{
		self:               cfg.Address,
		chainID:            new(big.Int).Set(cfg.ChainID),
		token:              cfg.Token,
		prices:             cfg.Prices,
		treasury:           cfg.Treasury,
		auth:               cfg.Auth,
		markup:             cfg.Markup,
		markupFloor:        markupFloor,
		markupCeiling:      cfg.MarkupCeiling,
		refundGas:          new(big.Int).SetUint64(cfg.RefundGas),
		guarantorRefundGas: new(big.Int).SetUint64(cfg.GuarantorRefundGas),
		native:             cfg.Native,
		now:                now,
		logger:             logger,
		events:             events,
	}, nil
}

// Markup returns the current markup in MarkupScale fixed point.
func (p *basePaymaster) Markup() uint32 { return p.markup }

// Treasury returns the current sweep destination.
func (p *basePaymaster) Treasury() common.Address { return p.treasury }

// settlementGas returns the refund gas budget priced into a charge: the
// guarantor budget covers the conditional second transfer attempt at
// settlement time.
func (p *basePaymaster) settlementGas(hasGuarantor bool) *big.Int {
	if hasGuarantor {
		return p.guarantorRefundGas
	}
	return p.refundGas
}

// tokenAmount converts a native gas cost into tokens owed:
//
//	(gasCost + refundGas*feePerGas) * markup * price / (1e18 * 1e6)
//
// Monotone in every input; exact at markup == MarkupScale.
func (p *basePaymaster) tokenAmount(gasCost, feePerGas, refundGas, price *big.Int) *big.Int {
	amount := new(big.Int).Mul(refundGas, feePerGas)
	amount.Add(amount, gasCost)
	amount.Mul(amount, new(big.Int).SetUint64(uint64(p.markup)))
	amount.Mul(amount, price)
	return amount.Quo(amount, amountDenominator)
}

// requireOwner gates the admin surface through the host's access-control
// collaborator.
func (p *basePaymaster) requireOwner(caller common.Address) error {
	if !p.auth.IsOwner(caller) {
		return ErrUnauthorized
	}
	return nil
}
