// This file implements the wire codec for the opaque payment instructions
// appended to a user operation in the PaymasterAndData field.
//
// Layout:
//
//	paymaster address    20 bytes
//	validation gas limit 16 bytes big-endian
//	postOp gas limit     16 bytes big-endian
//	mode                  1 byte
//	mode payload          remaining bytes
//
// Data shorter than the header plus mode byte carries no special
// instructions and decodes to the cheapest policy with an empty payload.

package paymaster

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type paymasterError string

func (e paymasterError) Error() string {
	return string(e)
}

// Hard abort errors surfaced to the host during validation.
const (
	ErrPaymasterDataModeInvalid   paymasterError = "paymaster data mode invalid"
	ErrPaymasterDataLengthInvalid paymasterError = "paymaster data length invalid"
	ErrTokenLimitZero             paymasterError = "token spend limit is zero"
	ErrTokenAmountTooHigh         paymasterError = "token amount exceeds declared spend limit"
)

// PaymentMode selects the payment policy of a token-charging operation.
type PaymentMode byte

const (
	// ModePlainNoLimit charges the sender with no declared spend ceiling.
	ModePlainNoLimit PaymentMode = iota
	// ModePlainWithLimit charges the sender up to a declared spend ceiling.
	ModePlainWithLimit
	// ModeGuarantorNoLimit pre-charges a signing guarantor with no ceiling.
	ModeGuarantorNoLimit
	// ModeGuarantorWithLimit pre-charges a signing guarantor up to a ceiling.
	ModeGuarantorWithLimit
)

// HasGuarantor reports whether the mode pre-charges a third-party guarantor.
func (m PaymentMode) HasGuarantor() bool {
	return m == ModeGuarantorNoLimit || m == ModeGuarantorWithLimit
}

// WithLimit reports whether the mode declares a spend ceiling.
func (m PaymentMode) WithLimit() bool {
	return m == ModePlainWithLimit || m == ModeGuarantorWithLimit
}

func (m PaymentMode) String() string {
	switch m {
	case ModePlainNoLimit:
		return "plain"
	case ModePlainWithLimit:
		return "plain+limit"
	case ModeGuarantorNoLimit:
		return "guarantor"
	case ModeGuarantorWithLimit:
		return "guarantor+limit"
	default:
		return "invalid"
	}
}

const (
	paymasterDataHeaderLength = common.AddressLength + 2*gasLimitLength
	gasLimitLength            = 16
	modeOffset                = paymasterDataHeaderLength
	payloadOffset             = modeOffset + 1

	tokenLimitLength = 32
	validityLength   = 6

	// Guarantor signatures are either 65-byte r||s||v or 64-byte ERC-2098
	// compact r||vs.
	signatureLengthFull    = 65
	signatureLengthCompact = 64
)

// PaymasterData is the decoded payment instruction set of one operation.
// Fields beyond Mode are populated only where the mode defines them.
type PaymasterData struct {
	Mode PaymentMode

	// ValidationGas and PostOpGas are the paymaster gas limits declared in
	// the header; zero when the default short form was used.
	ValidationGas *big.Int
	PostOpGas     *big.Int

	TokenLimit *big.Int
	Guarantor  common.Address
	ValidUntil uint64
	ValidAfter uint64
	Signature  []byte
}

// ParsePaymasterData decodes the PaymasterAndData bytes of an operation.
//
// Returns:
//   - *PaymasterData: the decoded instructions.
//   - error: ErrPaymasterDataModeInvalid for an out-of-range mode byte,
//     ErrPaymasterDataLengthInvalid for a payload that does not match the
//     mode's layout.
func ParsePaymasterData(data []byte) (*PaymasterData, error) {
	if len(data) <= modeOffset {
		// No special instructions: cheapest policy, empty payload.
		return &PaymasterData{
			Mode:          ModePlainNoLimit,
			ValidationGas: new(big.Int),
			PostOpGas:     new(big.Int),
		}, nil
	}

	mode := PaymentMode(data[modeOffset])
	if mode > ModeGuarantorWithLimit {
		return nil, ErrPaymasterDataModeInvalid
	}

	pd := &PaymasterData{
		Mode:          mode,
		ValidationGas: new(big.Int).SetBytes(data[common.AddressLength : common.AddressLength+gasLimitLength]),
		PostOpGas:     new(big.Int).SetBytes(data[common.AddressLength+gasLimitLength : paymasterDataHeaderLength]),
	}

	payload := data[payloadOffset:]
	switch mode {
	case ModePlainNoLimit:
		if len(payload) != 0 {
			return nil, ErrPaymasterDataLengthInvalid
		}

	case ModePlainWithLimit:
		if len(payload) != tokenLimitLength {
			return nil, ErrPaymasterDataLengthInvalid
		}
		pd.TokenLimit = new(big.Int).SetBytes(payload)

	case ModeGuarantorNoLimit:
		if err := pd.parseGuarantor(payload); err != nil {
			return nil, err
		}

	case ModeGuarantorWithLimit:
		if len(payload) < tokenLimitLength {
			return nil, ErrPaymasterDataLengthInvalid
		}
		pd.TokenLimit = new(big.Int).SetBytes(payload[:tokenLimitLength])
		if err := pd.parseGuarantor(payload[tokenLimitLength:]); err != nil {
			return nil, err
		}
	}

	return pd, nil
}

// parseGuarantor decodes guarantor(20) || validUntil(6) || validAfter(6)
// followed by a 64- or 65-byte signature.
func (pd *PaymasterData) parseGuarantor(payload []byte) error {
	const fixed = common.AddressLength + 2*validityLength

	sigLen := len(payload) - fixed
	if sigLen != signatureLengthFull && sigLen != signatureLengthCompact {
		return ErrPaymasterDataLengthInvalid
	}

	pd.Guarantor = common.BytesToAddress(payload[:common.AddressLength])
	pd.ValidUntil = uint48(payload[common.AddressLength : common.AddressLength+validityLength])
	pd.ValidAfter = uint48(payload[common.AddressLength+validityLength : fixed])
	pd.Signature = payload[fixed:]
	return nil
}

// Encode is the inverse of ParsePaymasterData. The paymaster address and gas
// limits form the header; mode and mode payload follow. Used by tests and
// offline tooling, not by the validation path.
func (pd *PaymasterData) Encode(paymaster common.Address) ([]byte, error) {
	out := make([]byte, 0, paymasterDataHeaderLength+1+tokenLimitLength+
		common.AddressLength+2*validityLength+signatureLengthFull)
	out = append(out, paymaster.Bytes()...)

	var err error
	if out, err = appendPadded(out, pd.ValidationGas, gasLimitLength); err != nil {
		return nil, err
	}
	if out, err = appendPadded(out, pd.PostOpGas, gasLimitLength); err != nil {
		return nil, err
	}

	if pd.Mode > ModeGuarantorWithLimit {
		return nil, ErrPaymasterDataModeInvalid
	}
	out = append(out, byte(pd.Mode))

	if pd.Mode.WithLimit() {
		if out, err = appendPadded(out, pd.TokenLimit, tokenLimitLength); err != nil {
			return nil, err
		}
	}

	if pd.Mode.HasGuarantor() {
		if len(pd.Signature) != signatureLengthFull && len(pd.Signature) != signatureLengthCompact {
			return nil, ErrPaymasterDataLengthInvalid
		}
		out = append(out, pd.Guarantor.Bytes()...)
		out = appendUint48(out, pd.ValidUntil)
		out = appendUint48(out, pd.ValidAfter)
		out = append(out, pd.Signature...)
	}

	return out, nil
}

// uint48 reads a 6-byte big-endian unsigned integer.
func uint48(b []byte) uint64 {
	var buf [8]byte
	copy(buf[2:], b[:validityLength])
	return binary.BigEndian.Uint64(buf[:])
}

// appendUint48 writes v as a 6-byte big-endian unsigned integer.
func appendUint48(dst []byte, v uint64) []byte {
	return append(dst,
		byte(v>>40), byte(v>>32), byte(v>>24),
		byte(v>>16), byte(v>>8), byte(v))
}

// appendPadded writes v left-padded to size bytes, rejecting values that do
// not fit. A nil value writes size zero bytes.
func appendPadded(dst []byte, v *big.Int, size int) ([]byte, error) {
	buf := make([]byte, size)
	if v != nil {
		if v.Sign() < 0 || (v.BitLen()+7)/8 > size {
			return nil, ErrPaymasterDataLengthInvalid
		}
		v.FillBytes(buf)
	}
	return append(dst, buf...), nil
}
