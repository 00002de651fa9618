package paymaster

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BigInt is a non-negative big.Int that accepts either a 0x-prefixed hex
// string or a decimal string in JSON and always renders as hex. Used by the
// DTOs consumed from hosts and tooling; internal arithmetic stays *big.Int.
type BigInt struct {
	big.Int
}

var errBigIntFormat = errors.New("value must be a hex or decimal string")

func (b *BigInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		return errBigIntFormat
	}

	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		v, err := hexutil.DecodeBig(raw)
		if err != nil {
			return err
		}
		b.Set(v)
		return nil
	}

	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return errBigIntFormat
	}
	b.Set(v)
	return nil
}

func (b BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + hexutil.EncodeBig(&b.Int) + `"`), nil
}

// decodeHexString decodes a 0x-prefixed hex string into bytes.
func decodeHexString(s string) ([]byte, error) {
	return hexutil.Decode(s)
}
