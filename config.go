package paymaster

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ledgerwatch/log/v3"
)

// Markup is a 1e6 fixed-point multiplier applied to the raw token cost;
// MarkupScale is 100%. The floor differs per engine: the token engine may
// discount down to half scale, the universal engine never below scale.
const (
	MarkupScale          uint32 = 1_000_000
	tokenMarkupFloor            = MarkupScale / 2
	universalMarkupFloor        = MarkupScale
)

const (
	ErrMarkupOutOfRange paymasterError = "markup outside floor/ceiling bounds"
	ErrZeroAddress      paymasterError = "address must not be zero"
	ErrUnauthorized     paymasterError = "caller is not the owning authority"
)

// Config carries the construction-time parameters shared by both engines.
type Config struct {
	// Address is the engine's own address, bound into sponsorship digests
	// and used as the custody account on the token ledger.
	Address common.Address
	ChainID *big.Int

	Token  TokenLedger
	Prices *PriceSource

	Treasury common.Address
	Auth     Authorizer

	// Markup is the initial markup; MarkupCeiling is immutable after
	// construction.
	Markup        uint32
	MarkupCeiling uint32

	// RefundGas is the settlement gas budget priced into every charge;
	// GuarantorRefundGas replaces it when a guarantor is present, covering
	// the conditional second transfer attempt at settlement time.
	RefundGas          uint64
	GuarantorRefundGas uint64

	// Native is optional and only used by RescueNative.
	Native NativeMover

	// Now returns the current unix time; defaults to the wall clock.
	Now func() uint64

	Logger log.Logger
	Events EventSink
}

func (cfg *Config) validate(markupFloor uint32) error {
	if cfg.Address == (common.Address{}) || cfg.Treasury == (common.Address{}) {
		return ErrZeroAddress
	}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return fmt.Errorf("invalid chain id")
	}
	if cfg.Token == nil {
		return fmt.Errorf("token ledger is required")
	}
	if cfg.Prices == nil {
		return fmt.Errorf("price source is required")
	}
	if cfg.Auth == nil {
		return fmt.Errorf("authorizer is required")
	}
	return validateMarkup(cfg.Markup, markupFloor, cfg.MarkupCeiling)
}

// validateMarkup enforces floor <= v <= ceiling; both construction and every
// later markup update go through it.
func validateMarkup(v, floor, ceiling uint32) error {
	if v < floor || v > ceiling {
		return ErrMarkupOutOfRange
	}
	return nil
}

// DataSpec is the JSON description of a paymasterAndData blob, consumed by
// offline tooling. Amounts are hex or decimal strings via BigInt.
type DataSpec struct {
	Paymaster     string  `json:"paymaster" binding:"required,eth_addr"`
	ValidationGas *BigInt `json:"validationGas" binding:"required"`
	PostOpGas     *BigInt `json:"postOpGas" binding:"required"`
	Mode          uint8   `json:"mode" binding:"payment_mode"`
	TokenLimit    *BigInt `json:"tokenLimit,omitempty"`
	Guarantor     string  `json:"guarantor,omitempty" binding:"omitempty,eth_addr"`
	ValidUntil    uint64  `json:"validUntil,omitempty" binding:"valid_window"`
	ValidAfter    uint64  `json:"validAfter,omitempty" binding:"valid_window"`
	Signature     string  `json:"signature,omitempty"`
}

// PaymasterData converts the description into codec form.
func (s *DataSpec) PaymasterData() (*PaymasterData, error) {
	pd := &PaymasterData{
		Mode:          PaymentMode(s.Mode),
		ValidationGas: new(big.Int),
		PostOpGas:     new(big.Int),
		ValidUntil:    s.ValidUntil,
		ValidAfter:    s.ValidAfter,
	}
	if s.ValidationGas != nil {
		pd.ValidationGas = &s.ValidationGas.Int
	}
	if s.PostOpGas != nil {
		pd.PostOpGas = &s.PostOpGas.Int
	}
	if s.TokenLimit != nil {
		pd.TokenLimit = &s.TokenLimit.Int
	}
	if s.Guarantor != "" {
		pd.Guarantor = common.HexToAddress(s.Guarantor)
	}
	if s.Signature != "" {
		sig, err := decodeHexString(s.Signature)
		if err != nil {
			return nil, fmt.Errorf("invalid signature hex: %w", err)
		}
		pd.Signature = sig
	}
	return pd, nil
}

// Custom validation for Ethereum address using go-playground validator.
func validEthAddress(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// Custom validation for the wire mode byte.
func validPaymentMode(fl validator.FieldLevel) bool {
	return fl.Field().Uint() <= uint64(ModeGuarantorWithLimit)
}

// Custom validation for 48-bit validity timestamps.
func validWindow(fl validator.FieldLevel) bool {
	return fl.Field().Uint() < 1<<48
}

// NewValidator registers the package's custom validators with the binding
// engine so hosts and tooling can bind DataSpec and admin DTOs directly.
func NewValidator() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("eth_addr", validEthAddress); err != nil {
			return fmt.Errorf("failed to register validator for eth_addr: %w", err)
		}

		if err := v.RegisterValidation("payment_mode", validPaymentMode); err != nil {
			return fmt.Errorf("failed to register validator for payment_mode: %w", err)
		}

		if err := v.RegisterValidation("valid_window", validWindow); err != nil {
			return fmt.Errorf("failed to register validator for valid_window: %w", err)
		}
	}
	return nil
}
