// This file encodes the opaque context bridging one operation's validate
// step to its settle step. The layout is fixed-offset:
//
//	preCharge  32 bytes big-endian
//	price      32 bytes big-endian
//	payer      20 bytes
//	opHash     32 bytes
//	guarantor  20 bytes, present only for guarantor modes
//
// The total length distinguishes the two shapes; anything else is rejected.

package paymaster

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const ErrContextLengthInvalid paymasterError = "settlement context length invalid"

const (
	amountWordLength       = 32
	contextBaseLength      = 2*amountWordLength + common.AddressLength + common.HashLength
	contextGuarantorLength = contextBaseLength + common.AddressLength
)

// SettlementContext is the state carried from validation to settlement for
// one operation. Payer is always the operation's sender; when Guarantor is
// set, the pre-charge was pulled from the guarantor instead.
type SettlementContext struct {
	PreCharge *big.Int
	Price     *big.Int
	Payer     common.Address
	OpHash    common.Hash
	Guarantor *common.Address
}

// Encode renders the context into its fixed-offset byte form.
func (c *SettlementContext) Encode() ([]byte, error) {
	out := make([]byte, 0, contextGuarantorLength)

	var err error
	if out, err = appendPadded(out, c.PreCharge, amountWordLength); err != nil {
		return nil, err
	}
	if out, err = appendPadded(out, c.Price, amountWordLength); err != nil {
		return nil, err
	}
	out = append(out, c.Payer.Bytes()...)
	out = append(out, c.OpHash.Bytes()...)
	if c.Guarantor != nil {
		out = append(out, c.Guarantor.Bytes()...)
	}
	return out, nil
}

// DecodeSettlementContext is the inverse of Encode.
func DecodeSettlementContext(data []byte) (*SettlementContext, error) {
	if len(data) != contextBaseLength && len(data) != contextGuarantorLength {
		return nil, ErrContextLengthInvalid
	}

	ctx := &SettlementContext{
		PreCharge: new(big.Int).SetBytes(data[:amountWordLength]),
		Price:     new(big.Int).SetBytes(data[amountWordLength : 2*amountWordLength]),
		Payer:     common.BytesToAddress(data[2*amountWordLength : 2*amountWordLength+common.AddressLength]),
		OpHash:    common.BytesToHash(data[2*amountWordLength+common.AddressLength : contextBaseLength]),
	}
	if len(data) == contextGuarantorLength {
		guarantor := common.BytesToAddress(data[contextBaseLength:])
		ctx.Guarantor = &guarantor
	}
	return ctx, nil
}
