package paymaster

import "math/big"

// Verdict is the validation outcome handed back to the host. A failed
// guarantor or sponsor signature never aborts validation; it sets SigFailed
// and leaves the host to apply its own time-bounded rejection, which avoids
// leaking signature-check behaviour through abort channels.
type Verdict struct {
	SigFailed  bool
	ValidUntil uint64
	ValidAfter uint64
}

// PackValidationData renders the verdict as the canonical ERC-4337
// validationData word: the sigFailed flag in the low 160 bits, validUntil at
// bit 160 and validAfter at bit 208.
func (v Verdict) PackValidationData() *big.Int {
	packed := new(big.Int)
	if v.SigFailed {
		packed.SetUint64(1)
	}
	until := new(big.Int).Lsh(new(big.Int).SetUint64(v.ValidUntil), 160)
	after := new(big.Int).Lsh(new(big.Int).SetUint64(v.ValidAfter), 208)
	return packed.Or(packed, until.Or(until, after))
}
