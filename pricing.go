package paymaster

import (
	"fmt"
	"math/big"
)

// Oracle abstraction errors. Staleness and sign are re-checked on every
// price read; decimal precision only at construction.
const (
	ErrOracleDecimalsInvalid  paymasterError = "oracle decimals must be 8"
	ErrOraclePriceNotPositive paymasterError = "oracle price is not positive"
	ErrOraclePriceStale       paymasterError = "oracle price is stale"
)

// oracleDecimals is the decimal precision both price feeds must report.
const oracleDecimals = 8

// Oracle is the boundary to one price feed, Chainlink latestRoundData shape.
// Answer is the quoted price, updatedAt the unix time of the last update.
type Oracle interface {
	LatestAnswer() (answer *big.Int, updatedAt uint64, err error)
	Decimals() uint8
}

// PriceSource converts a token-denominated quote and a native-asset quote
// into a single token-per-native rate scaled to the token's own decimals.
type PriceSource struct {
	token      Oracle
	native     Oracle
	staleAfter uint64
	tokenScale *big.Int
}

// NewPriceSource wires the two price feeds. Both must report exactly
// oracleDecimals decimal places; this is checked here only, not per call.
func NewPriceSource(token, native Oracle, tokenDecimals uint8, staleAfter uint64) (*PriceSource, error) {
	if token.Decimals() != oracleDecimals || native.Decimals() != oracleDecimals {
		return nil, ErrOracleDecimalsInvalid
	}

	return &PriceSource{
		token:      token,
		native:     native,
		staleAfter: staleAfter,
		tokenScale: new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tokenDecimals)), nil),
	}, nil
}

// fetch reads one feed and rejects non-positive or stale answers. An answer
// updated exactly staleAfter seconds ago is still accepted.
func (ps *PriceSource) fetch(o Oracle, now uint64) (*big.Int, error) {
	answer, updatedAt, err := o.LatestAnswer()
	if err != nil {
		return nil, fmt.Errorf("oracle read: %w", err)
	}
	if answer.Sign() <= 0 {
		return nil, ErrOraclePriceNotPositive
	}
	if updatedAt+ps.staleAfter < now {
		return nil, ErrOraclePriceStale
	}
	return answer, nil
}

// Price returns the current token-per-native rate: the amount of token
// smallest units equivalent to 1e18 native wei. Never cached; both feeds are
// read on every call.
func (ps *PriceSource) Price(now uint64) (*big.Int, error) {
	tokenQuote, err := ps.fetch(ps.token, now)
	if err != nil {
		return nil, err
	}
	nativeQuote, err := ps.fetch(ps.native, now)
	if err != nil {
		return nil, err
	}

	price := new(big.Int).Mul(nativeQuote, ps.tokenScale)
	return price.Quo(price, tokenQuote), nil
}
