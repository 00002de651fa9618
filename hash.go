// This file derives the digests that guarantor and sponsor signatures are
// verified against. The digest binds the operation, the executing chain, the
// engine's own address, the validity window and (with-limit modes) the
// declared spend ceiling, so a signature cannot be replayed onto another
// operation, chain, window or limit.

package paymaster

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func mustABIType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	typeAddress = mustABIType("address")
	typeUint256 = mustABIType("uint256")
	typeUint48  = mustABIType("uint48")
	typeBytes32 = mustABIType("bytes32")
)

// Argument layout shared by the no-limit digest; the with-limit digest
// appends the uint256 spend ceiling.
var sponsorshipHashArgs = abi.Arguments{
	{Type: typeAddress}, // sender
	{Type: typeUint256}, // nonce
	{Type: typeBytes32}, // keccak(initCode)
	{Type: typeBytes32}, // keccak(callData)
	{Type: typeBytes32}, // packed account gas limits
	{Type: typeUint256}, // paymaster validation gas
	{Type: typeUint256}, // preVerificationGas
	{Type: typeUint256}, // maxFeePerGas
	{Type: typeUint256}, // maxPriorityFeePerGas
	{Type: typeUint256}, // chain id
	{Type: typeAddress}, // paymaster
	{Type: typeUint48},  // validUntil
	{Type: typeUint48},  // validAfter
}

var sponsorshipHashArgsWithLimit = append(append(abi.Arguments{}, sponsorshipHashArgs...),
	abi.Argument{Type: typeUint256}) // token spend limit

// SponsorshipHash returns the raw digest a guarantor signs to back op.
// tokenLimit is nil for no-limit modes and is then excluded from the digest.
func SponsorshipHash(
	op *UserOperation,
	chainID *big.Int,
	paymaster common.Address,
	validationGas *big.Int,
	validUntil, validAfter uint64,
	tokenLimit *big.Int,
) (common.Hash, error) {
	values := []interface{}{
		op.Sender,
		op.Nonce,
		op.InitCodeHash(),
		op.CallDataHash(),
		op.PackedGasLimits(),
		validationGas,
		op.PreVerificationGas,
		op.MaxFeePerGas,
		op.MaxPriorityFeePerGas,
		chainID,
		paymaster,
		new(big.Int).SetUint64(validUntil),
		new(big.Int).SetUint64(validAfter),
	}

	args := sponsorshipHashArgs
	if tokenLimit != nil {
		args = sponsorshipHashArgsWithLimit
		values = append(values, tokenLimit)
	}

	packed, err := args.Pack(values...)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}

// SponsoredOperationHash is the digest the verifying signer signs in the
// sponsored path: the sponsorship digest wrapped in the EIP-191 personal
// message prefix. Guarantor signatures sign the raw digest instead.
func SponsoredOperationHash(
	op *UserOperation,
	chainID *big.Int,
	paymaster common.Address,
	validationGas *big.Int,
	validUntil, validAfter uint64,
) (common.Hash, error) {
	digest, err := SponsorshipHash(op, chainID, paymaster, validationGas, validUntil, validAfter, nil)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(accounts.TextHash(digest.Bytes())), nil
}

// recoverSigner returns the address that produced sig over digest. Both
// 65-byte r||s||v and 64-byte ERC-2098 compact signatures are accepted; v
// values of 27/28 are normalized.
func recoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	var rsv [signatureLengthFull]byte

	switch len(sig) {
	case signatureLengthFull:
		copy(rsv[:], sig)
		if rsv[64] >= 27 {
			rsv[64] -= 27
		}
	case signatureLengthCompact:
		copy(rsv[:64], sig)
		rsv[64] = sig[32] >> 7
		rsv[32] &= 0x7f
	default:
		return common.Address{}, ErrPaymasterDataLengthInvalid
	}

	pub, err := crypto.SigToPub(digest.Bytes(), rsv[:])
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
