package limitorder

import (
	"encoding/binary"
	"math/big"

	"routevault/crypto"
)

// Status is the lifecycle state of a limit order. Transitions only move
// forward: Init→Open→{Filled|Cancelled}→Closed.
type Status uint8

const (
	StatusInit Status = iota
	StatusOpen
	StatusFilled
	StatusCancelled
	StatusClosed
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	return s <= StatusClosed
}

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusOpen:
		return "open"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TriggerKind selects how the trigger condition is evaluated at execution
// time.
type TriggerKind uint8

const (
	// TriggerTakeProfit executes when the realized output reaches the
	// trigger-derived target.
	TriggerTakeProfit TriggerKind = iota + 1
	// TriggerStopLoss executes when the integrator-supplied adverse
	// condition fires.
	TriggerStopLoss
)

// Valid reports whether the trigger kind is supported.
func (k TriggerKind) Valid() bool {
	return k == TriggerTakeProfit || k == TriggerStopLoss
}

// Order is a conditional pending trade holding escrowed input in a dedicated
// per-order vault until a trusted operator executes or the creator cancels.
type Order struct {
	Address         [20]byte
	Creator         [20]byte
	Nonce           uint64
	InputMint       [20]byte
	OutputMint      [20]byte
	Vault           [20]byte
	InAmount        *big.Int // locked input, zeroed by exactly one fill or cancel
	MinOut          *big.Int
	TriggerPriceBps uint64
	Kind            TriggerKind
	ExpiresAt       int64
	SlippageBps     uint32
	Destination     [20]byte
	Status          Status
	CreatedAt       int64
	UpdatedAt       int64
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.InAmount != nil {
		clone.InAmount = new(big.Int).Set(o.InAmount)
	}
	if o.MinOut != nil {
		clone.MinOut = new(big.Int).Set(o.MinOut)
	}
	return &clone
}

// TargetOutput computes the take-profit target from the locked input and the
// trigger price: floor(locked * triggerBps / 10000).
func (o *Order) TargetOutput() *big.Int {
	if o == nil || o.InAmount == nil {
		return big.NewInt(0)
	}
	target := new(big.Int).Mul(o.InAmount, new(big.Int).SetUint64(o.TriggerPriceBps))
	return target.Div(target, big.NewInt(10_000))
}

func nonceBytes(nonce uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	return buf[:]
}

// OrderAddress derives the order account address from its creator and nonce.
func OrderAddress(creator [20]byte, nonce uint64) [20]byte {
	return crypto.DeriveAddress("order", creator[:], nonceBytes(nonce))
}

// OrderVaultAddress derives the dedicated per-order vault address.
func OrderVaultAddress(creator [20]byte, nonce uint64) [20]byte {
	return crypto.DeriveAddress("order-vault", creator[:], nonceBytes(nonce))
}
