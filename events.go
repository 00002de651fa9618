package paymaster

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/ledgerwatch/log/v3"
)

// Event is an append-only record consumed by off-chain observers.
type Event interface {
	EventName() string
}

// MarkupUpdated records an accepted markup change.
type MarkupUpdated struct {
	Markup uint32 `json:"markup"`
}

func (MarkupUpdated) EventName() string { return "MarkupUpdated" }

// TreasuryUpdated records a treasury address change.
type TreasuryUpdated struct {
	Treasury common.Address `json:"treasury"`
}

func (TreasuryUpdated) EventName() string { return "TreasuryUpdated" }

// VerifyingSignerChanged records a verifying-signer rotation.
type VerifyingSignerChanged struct {
	Signer common.Address `json:"signer"`
}

func (VerifyingSignerChanged) EventName() string { return "VerifyingSignerChanged" }

// OperationSponsored records one settled sponsorship: who was charged, at
// what price, and whether the guarantor ultimately absorbed the cost.
type OperationSponsored struct {
	OpHash          common.Hash     `json:"opHash"`
	User            common.Address  `json:"user"`
	Guarantor       *common.Address `json:"guarantor,omitempty"`
	TokenAmount     *big.Int        `json:"tokenAmount"`
	Price           *big.Int        `json:"price"`
	PaidByGuarantor bool            `json:"paidByGuarantor"`
}

func (OperationSponsored) EventName() string { return "OperationSponsored" }

// EventSink receives every event the engine emits, in emission order.
type EventSink interface {
	Emit(ev Event)
}

type logSink struct {
	logger log.Logger
}

// NewLogSink returns an EventSink that renders each event as a JSON payload
// on the given structured logger.
func NewLogSink(logger log.Logger) EventSink {
	return logSink{logger: logger}
}

func (s logSink) Emit(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("event marshal failed", "event", ev.EventName(), "err", err)
		return
	}
	s.logger.Info("paymaster event", "event", ev.EventName(), "payload", string(payload))
}
