package metrics

import (
	"math/big"

	"routevault/core/events"
	"routevault/crypto"
)

// Emitter mirrors engine events into the Prometheus counters. It is wired
// alongside the log emitter so every subscriber sees the same stream.
type Emitter struct {
	metrics *RouterMetrics
}

// NewEmitter creates an event subscriber over the given metrics set.
func NewEmitter(m *RouterMetrics) Emitter {
	return Emitter{metrics: m}
}

// Emit implements events.Emitter.
func (e Emitter) Emit(event events.Event) {
	switch ev := event.(type) {
	case events.SwapExecuted:
		e.metrics.ObserveSwapStep(ev.Adapter)
	case events.RouteExecuted:
		e.metrics.ObserveFeeCollected(crypto.EncodeAddress(ev.OutputMint), amountValue(ev.Fee))
	}
}

func amountValue(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
