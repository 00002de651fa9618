package paymaster

import (
	"math/big"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func validDataSpec() *DataSpec {
	return &DataSpec{
		Paymaster:     engineAddr.Hex(),
		ValidationGas: &BigInt{*big.NewInt(50_000)},
		PostOpGas:     &BigInt{*big.NewInt(40_000)},
		Mode:          uint8(ModeGuarantorWithLimit),
		TokenLimit:    &BigInt{*big.NewInt(5_000_000)},
		Guarantor:     userAddr.Hex(),
		ValidUntil:    testNow + 600,
		ValidAfter:    testNow - 600,
		Signature:     "0x0102",
	}
}

func TestNewValidator_DataSpecBinding(t *testing.T) {
	require.NoError(t, NewValidator())

	t.Run("valid spec passes", func(t *testing.T) {
		require.NoError(t, binding.Validator.ValidateStruct(validDataSpec()))
	})

	t.Run("malformed paymaster address", func(t *testing.T) {
		spec := validDataSpec()
		spec.Paymaster = "0x1234"
		require.Error(t, binding.Validator.ValidateStruct(spec))
	})

	t.Run("empty guarantor is allowed", func(t *testing.T) {
		spec := validDataSpec()
		spec.Guarantor = ""
		require.NoError(t, binding.Validator.ValidateStruct(spec))
	})

	t.Run("mode byte out of range", func(t *testing.T) {
		spec := validDataSpec()
		spec.Mode = 4
		require.Error(t, binding.Validator.ValidateStruct(spec))
	})

	t.Run("validity beyond 48 bits", func(t *testing.T) {
		spec := validDataSpec()
		spec.ValidUntil = 1 << 48
		require.Error(t, binding.Validator.ValidateStruct(spec))
	})

	t.Run("missing gas fields", func(t *testing.T) {
		spec := validDataSpec()
		spec.ValidationGas = nil
		require.Error(t, binding.Validator.ValidateStruct(spec))
	})
}

func TestDataSpec_PaymasterData(t *testing.T) {
	raw := `{
		"paymaster": "0x00000000000000000000000000000000000000A1",
		"validationGas": "0xc350",
		"postOpGas": "40000",
		"mode": 3,
		"tokenLimit": "0x4c4b40",
		"guarantor": "0x00000000000000000000000000000000000000D4",
		"validUntil": 1700000600,
		"validAfter": 1699999400,
		"signature": "0x0102"
	}`

	var spec DataSpec
	require.NoError(t, json.Unmarshal([]byte(raw), &spec))

	pd, err := spec.PaymasterData()
	require.NoError(t, err)
	require.Equal(t, ModeGuarantorWithLimit, pd.Mode)
	require.Zero(t, pd.ValidationGas.Cmp(big.NewInt(50_000)))
	require.Zero(t, pd.PostOpGas.Cmp(big.NewInt(40_000)))
	require.Zero(t, pd.TokenLimit.Cmp(big.NewInt(5_000_000)))
	require.Equal(t, userAddr, pd.Guarantor)
	require.Equal(t, uint64(1_700_000_600), pd.ValidUntil)
	require.Equal(t, uint64(1_699_999_400), pd.ValidAfter)
	require.Equal(t, []byte{0x01, 0x02}, pd.Signature)
}

func TestDataSpec_PaymasterData_BadSignatureHex(t *testing.T) {
	spec := validDataSpec()
	spec.Signature = "0xzz"
	_, err := spec.PaymasterData()
	require.Error(t, err)
}
