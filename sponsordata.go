package paymaster

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SponsorMode selects the payment policy of the universal engine.
type SponsorMode byte

const (
	// ModeDirectCharge charges the sender in tokens with no ceiling.
	ModeDirectCharge SponsorMode = iota
	// ModeSponsored charges nobody; the verifying signer's signature
	// authorizes the operation instead. Any nonzero mode byte selects it.
	ModeSponsored
)

func (m SponsorMode) String() string {
	if m == ModeDirectCharge {
		return "direct-charge"
	}
	return "sponsored"
}

// SponsorData is the decoded payment instruction set of the universal
// engine: a mode, and for sponsored operations a validity window plus the
// verifying signer's signature.
type SponsorData struct {
	Mode SponsorMode

	ValidationGas *big.Int
	PostOpGas     *big.Int

	ValidUntil uint64
	ValidAfter uint64
	Signature  []byte
}

// ParseSponsorData decodes the PaymasterAndData bytes for the universal
// engine. Sponsored payload: validUntil(6) || validAfter(6) || sig(64|65).
func ParseSponsorData(data []byte) (*SponsorData, error) {
	if len(data) <= modeOffset {
		return &SponsorData{
			Mode:          ModeDirectCharge,
			ValidationGas: new(big.Int),
			PostOpGas:     new(big.Int),
		}, nil
	}

	sd := &SponsorData{
		Mode:          ModeDirectCharge,
		ValidationGas: new(big.Int).SetBytes(data[common.AddressLength : common.AddressLength+gasLimitLength]),
		PostOpGas:     new(big.Int).SetBytes(data[common.AddressLength+gasLimitLength : paymasterDataHeaderLength]),
	}

	payload := data[payloadOffset:]
	if data[modeOffset] == 0 {
		if len(payload) != 0 {
			return nil, ErrPaymasterDataLengthInvalid
		}
		return sd, nil
	}

	sd.Mode = ModeSponsored
	sigLen := len(payload) - 2*validityLength
	if sigLen != signatureLengthFull && sigLen != signatureLengthCompact {
		return nil, ErrPaymasterDataLengthInvalid
	}
	sd.ValidUntil = uint48(payload[:validityLength])
	sd.ValidAfter = uint48(payload[validityLength : 2*validityLength])
	sd.Signature = payload[2*validityLength:]
	return sd, nil
}

// Encode is the inverse of ParseSponsorData, used by tests and tooling.
func (sd *SponsorData) Encode(paymaster common.Address) ([]byte, error) {
	out := make([]byte, 0, paymasterDataHeaderLength+1+2*validityLength+signatureLengthFull)
	out = append(out, paymaster.Bytes()...)

	var err error
	if out, err = appendPadded(out, sd.ValidationGas, gasLimitLength); err != nil {
		return nil, err
	}
	if out, err = appendPadded(out, sd.PostOpGas, gasLimitLength); err != nil {
		return nil, err
	}

	if sd.Mode == ModeDirectCharge {
		return append(out, 0), nil
	}

	if len(sd.Signature) != signatureLengthFull && len(sd.Signature) != signatureLengthCompact {
		return nil, ErrPaymasterDataLengthInvalid
	}
	out = append(out, byte(ModeSponsored))
	out = appendUint48(out, sd.ValidUntil)
	out = appendUint48(out, sd.ValidAfter)
	return append(out, sd.Signature...), nil
}
