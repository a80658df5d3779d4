package limitorder

// ConditionSource answers whether a stop-loss order's adverse condition has
// fired. Implementations are supplied by the host process; the engine never
// consults pricing on its own.
type ConditionSource interface {
	StopLossTriggered(order *Order) bool
}

// StaticConditionSource is a fixed ConditionSource keyed by order address.
type StaticConditionSource struct {
	Triggered map[[20]byte]bool
}

// StopLossTriggered reports the configured flag for the order, defaulting to
// false.
func (s *StaticConditionSource) StopLossTriggered(order *Order) bool {
	if s == nil || order == nil {
		return false
	}
	return s.Triggered[order.Address]
}
