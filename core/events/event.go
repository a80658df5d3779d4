package events

import (
	"math/big"
	"strconv"

	"routevault/core/types"
)

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for engines whose caller has not wired a subscriber.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans each event out to every subscriber in order.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(event Event) {
	for _, e := range m {
		e.Emit(event)
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func intToString(v int64) string {
	return strconv.FormatInt(v, 10)
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
