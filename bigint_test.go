package paymaster

import (
	"math/big"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestBigInt_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *big.Int
		wantErr bool
	}{
		{name: "hex", input: `"0x2faf080"`, want: big.NewInt(50_000_000)},
		{name: "hex uppercase prefix", input: `"0X1"`, want: big.NewInt(1)},
		{name: "decimal", input: `"2288000"`, want: big.NewInt(2_288_000)},
		{name: "zero", input: `"0"`, want: new(big.Int)},
		{name: "empty", input: `""`, wantErr: true},
		{name: "null", input: `null`, wantErr: true},
		{name: "negative", input: `"-5"`, wantErr: true},
		{name: "garbage", input: `"12f"`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var b BigInt
			err := json.Unmarshal([]byte(tc.input), &b)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Zero(t, tc.want.Cmp(&b.Int))
		})
	}
}

func TestBigInt_MarshalJSON(t *testing.T) {
	var b BigInt
	b.SetInt64(2_288_000)

	out, err := json.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, `"0x22e9a0"`, string(out))
}

func TestBigInt_RoundTripInsideStruct(t *testing.T) {
	type payload struct {
		Amount *BigInt `json:"amount"`
	}

	var in payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"123456789"}`), &in))
	require.Equal(t, int64(123_456_789), in.Amount.Int64())

	out, err := json.Marshal(in)
	require.NoError(t, err)
	require.Equal(t, `{"amount":"0x75bcd15"}`, string(out))
}
