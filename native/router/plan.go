package router

import (
	"routevault/native/dex"
)

// Step is one leg of a route plan. Indices point into the caller-supplied
// flat account list: InputIndex and OutputIndex select the engine vaults the
// leg trades between, Accounts selects the adapter's protocol-specific
// account slice (including any variable-length tail).
type Step struct {
	Swap        dex.SwapType
	Percent     uint8
	InputIndex  uint16
	OutputIndex uint16
	Accounts    []uint16
}

// Plan is an ordered list of steps describing how input is split and/or
// chained across adapters. Plans are ephemeral and caller-constructed; they
// are validated on every call and never persisted.
type Plan struct {
	Steps []Step
}

// hopGroups partitions the steps by input index, preserving first-seen
// order. Steps sharing an input hop split that hop's amount by percent;
// distinct groups chain sequentially.
func (p Plan) hopGroups() [][]Step {
	var order []uint16
	grouped := make(map[uint16][]Step)
	for _, step := range p.Steps {
		if _, ok := grouped[step.InputIndex]; !ok {
			order = append(order, step.InputIndex)
		}
		grouped[step.InputIndex] = append(grouped[step.InputIndex], step)
	}
	out := make([][]Step, 0, len(order))
	for _, idx := range order {
		out = append(out, grouped[idx])
	}
	return out
}
