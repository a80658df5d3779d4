package limitorder

import (
	"math/big"
	"time"

	"routevault/core/events"
	"routevault/core/types"
	"routevault/native/aggregator"
	"routevault/native/common"
	"routevault/native/escrow"
	"routevault/native/router"
)

const moduleName = "limitorder"

type engineState interface {
	common.Snapshotter
	OrderPut(order *Order) error
	OrderGet(addr [20]byte) (*Order, bool)
	OrderDelete(addr [20]byte) error
}

type operatorView interface {
	IsOperator(addr [20]byte) bool
}

// Engine manages the limit order lifecycle. Orders escrow their input in a
// dedicated per-order vault; fills run through the route executor or the
// shared-route delegate under the same authority model.
type Engine struct {
	state      engineState
	escrow     *escrow.Engine
	routes     *router.Engine
	delegate   *aggregator.Delegate
	operators  operatorView
	conditions ConditionSource
	emitter    events.Emitter
	pauses     common.PauseView
	nowFn      func() int64
}

// NewEngine constructs a limit order engine bound to the escrow engine, the
// route executor and the shared-route delegate.
func NewEngine(esc *escrow.Engine, routes *router.Engine, delegate *aggregator.Delegate) *Engine {
	return &Engine{
		escrow:   esc,
		routes:   routes,
		delegate: delegate,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the persistence backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOperatorView wires the registry view used for operator gating.
func (e *Engine) SetOperatorView(v operatorView) { e.operators = v }

// SetConditionSource wires the stop-loss condition source.
func (e *Engine) SetConditionSource(c ConditionSource) { e.conditions = c }

// SetPauses configures the module pause switches honoured by the engine.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetNowFunc overrides the engine's time source.
func (e *Engine) SetNowFunc(now func() int64) {
	if now != nil {
		e.nowFn = now
	}
}

func (e *Engine) now() int64 {
	if e.nowFn != nil {
		return e.nowFn()
	}
	return time.Now().Unix()
}

func (e *Engine) requireOperator(caller [20]byte) error {
	if e.operators == nil || !e.operators.IsOperator(caller) {
		return ErrNotOperator
	}
	return nil
}

func (e *Engine) load(addr [20]byte) (*Order, error) {
	order, ok := e.state.OrderGet(addr)
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Order returns the stored order at the given address.
func (e *Engine) Order(addr [20]byte) (*Order, error) {
	order, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	return order.Clone(), nil
}

// CreateParams carries the conditional trade terms supplied at order
// creation.
type CreateParams struct {
	InputMint       [20]byte
	OutputMint      [20]byte
	InAmount        *big.Int
	MinOut          *big.Int
	TriggerPriceBps uint64
	Kind            TriggerKind
	ExpiresAt       int64
	SlippageBps     uint32
	Destination     [20]byte
}

func (e *Engine) validateParams(params CreateParams, now int64) error {
	if !types.IsPositive(params.InAmount) {
		return ErrInvalidAmount
	}
	if !types.IsPositive(params.MinOut) {
		return ErrInvalidMinOutput
	}
	if params.TriggerPriceBps == 0 || params.TriggerPriceBps > types.MaxTriggerPriceBps {
		return ErrInvalidTriggerPrice
	}
	if !params.Kind.Valid() {
		return ErrInvalidTriggerKind
	}
	if params.ExpiresAt <= now {
		return ErrInvalidExpiry
	}
	if params.SlippageBps > types.MaxBps {
		return ErrInvalidSlippage
	}
	return nil
}

// Init allocates an empty order slot for the creator/nonce pair. The order
// stays in the init state until Create locks funds into it.
func (e *Engine) Init(creator [20]byte, nonce uint64) (*Order, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	addr := OrderAddress(creator, nonce)
	var created *Order
	err := common.Atomic(e.state, func() error {
		if _, ok := e.state.OrderGet(addr); ok {
			return ErrOrderExists
		}
		now := e.now()
		order := &Order{
			Address:   addr,
			Creator:   creator,
			Nonce:     nonce,
			Status:    StatusInit,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.state.OrderPut(order); err != nil {
			return err
		}
		created = order.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Create locks the creator's input into the order's dedicated vault and
// opens the order. The slot must have been initialised and still be empty.
func (e *Engine) Create(creator [20]byte, nonce uint64, params CreateParams) (*Order, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	addr := OrderAddress(creator, nonce)
	var opened *Order
	err := common.Atomic(e.state, func() error {
		order, err := e.load(addr)
		if err != nil {
			return err
		}
		if order.Status != StatusInit {
			return ErrInvalidStatus
		}
		if order.Creator != creator {
			return ErrNotCreator
		}
		now := e.now()
		if err := e.validateParams(params, now); err != nil {
			return err
		}
		vaultAddr := OrderVaultAddress(creator, nonce)
		if _, err := e.escrow.ProvisionVault(vaultAddr, params.InputMint); err != nil {
			return err
		}
		if err := e.escrow.DepositTo(creator, vaultAddr, params.InAmount); err != nil {
			return err
		}
		order.InputMint = params.InputMint
		order.OutputMint = params.OutputMint
		order.Vault = vaultAddr
		order.InAmount = new(big.Int).Set(params.InAmount)
		order.MinOut = new(big.Int).Set(params.MinOut)
		order.TriggerPriceBps = params.TriggerPriceBps
		order.Kind = params.Kind
		order.ExpiresAt = params.ExpiresAt
		order.SlippageBps = params.SlippageBps
		order.Destination = params.Destination
		order.Status = StatusOpen
		order.UpdatedAt = now
		if err := e.state.OrderPut(order); err != nil {
			return err
		}
		opened = order.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.OrderOpened{
		Order:      opened.Address,
		Creator:    opened.Creator,
		InputMint:  opened.InputMint,
		OutputMint: opened.OutputMint,
		Amount:     opened.InAmount,
		TriggerBps: opened.TriggerPriceBps,
		ExpiresAt:  opened.ExpiresAt,
	})
	return opened, nil
}

// checkOpen verifies the order admits execution right now: status first,
// then expiry, then the trigger precondition for stop-loss orders.
func (e *Engine) checkOpen(order *Order, now int64) error {
	if order.Status != StatusOpen {
		return ErrInvalidStatus
	}
	if now >= order.ExpiresAt {
		return ErrOrderExpired
	}
	if order.Kind == TriggerStopLoss {
		if e.conditions == nil || !e.conditions.StopLossTriggered(order) {
			return ErrTriggerNotMet
		}
	}
	return nil
}

// checkOutput verifies the realized net output honours the order's minimum
// and, for take-profit orders, the trigger-derived target.
func (e *Engine) checkOutput(order *Order, net *big.Int) error {
	if net.Cmp(order.MinOut) < 0 {
		return ErrMinOutputNotMet
	}
	if order.Kind == TriggerTakeProfit && net.Cmp(order.TargetOutput()) < 0 {
		return ErrTriggerNotMet
	}
	return nil
}

func (e *Engine) markFilled(order *Order, operator [20]byte, result *router.Result) error {
	filled := new(big.Int).Set(order.InAmount)
	order.InAmount = big.NewInt(0)
	order.Status = StatusFilled
	order.UpdatedAt = e.now()
	if err := e.state.OrderPut(order); err != nil {
		return err
	}
	e.emitter.Emit(events.OrderFilled{
		Order:     order.Address,
		Operator:  operator,
		AmountIn:  filled,
		AmountOut: result.Net,
	})
	return nil
}

// ExecuteParams carries the route the operator chose to fill an order with.
type ExecuteParams struct {
	Accounts       [][20]byte
	Plan           router.Plan
	QuotedOut      *big.Int
	PlatformFeeBps uint32
}

// Execute fills an open order through the route executor. Only registry
// operators may execute; the order's locked input funds the route and the
// net output is paid to the order's destination.
func (e *Engine) Execute(operator [20]byte, addr [20]byte, params ExecuteParams) (*router.Result, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.requireOperator(operator); err != nil {
		return nil, err
	}
	var result *router.Result
	err := common.Atomic(e.state, func() error {
		order, err := e.load(addr)
		if err != nil {
			return err
		}
		if err := e.checkOpen(order, e.now()); err != nil {
			return err
		}
		res, err := e.routes.Route(router.Request{
			Caller:             operator,
			SourceAccount:      order.Vault,
			DestinationAccount: order.Destination,
			Accounts:           params.Accounts,
			Plan:               params.Plan,
			InAmount:           order.InAmount,
			QuotedOut:          params.QuotedOut,
			SlippageBps:        order.SlippageBps,
			PlatformFeeBps:     params.PlatformFeeBps,
		})
		if err != nil {
			return err
		}
		if err := e.checkOutput(order, res.Net); err != nil {
			return err
		}
		if err := e.markFilled(order, operator, res); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SharedExecuteParams carries the aggregator call an operator chose to fill
// an order with.
type SharedExecuteParams struct {
	Accounts       [][20]byte
	Payload        []byte
	QuotedOut      *big.Int
	PlatformFeeBps uint32
}

// SharedExecute fills an open order through the shared-route delegate
// instead of the route executor.
func (e *Engine) SharedExecute(operator [20]byte, addr [20]byte, params SharedExecuteParams) (*router.Result, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.requireOperator(operator); err != nil {
		return nil, err
	}
	var result *router.Result
	err := common.Atomic(e.state, func() error {
		order, err := e.load(addr)
		if err != nil {
			return err
		}
		if err := e.checkOpen(order, e.now()); err != nil {
			return err
		}
		res, err := e.delegate.Route(aggregator.Request{
			Caller:             operator,
			SourceAccount:      order.Vault,
			DestinationAccount: order.Destination,
			InputMint:          order.InputMint,
			OutputMint:         order.OutputMint,
			Accounts:           params.Accounts,
			Payload:            params.Payload,
			InAmount:           order.InAmount,
			QuotedOut:          params.QuotedOut,
			SlippageBps:        order.SlippageBps,
			PlatformFeeBps:     params.PlatformFeeBps,
		})
		if err != nil {
			return err
		}
		if err := e.checkOutput(order, res.Net); err != nil {
			return err
		}
		if err := e.markFilled(order, operator, res); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) refund(order *Order, caller [20]byte, expired bool) error {
	refunded := new(big.Int).Set(order.InAmount)
	if refunded.Sign() > 0 {
		if err := e.escrow.ReleaseFrom(order.Vault, order.Creator, refunded); err != nil {
			return err
		}
	}
	order.InAmount = big.NewInt(0)
	order.Status = StatusCancelled
	order.UpdatedAt = e.now()
	if err := e.state.OrderPut(order); err != nil {
		return err
	}
	e.emitter.Emit(events.OrderCancelled{
		Order:    order.Address,
		Caller:   caller,
		Refunded: refunded,
		Expired:  expired,
	})
	return nil
}

// Cancel lets the creator withdraw an open order at any time. The locked
// input is refunded to the creator.
func (e *Engine) Cancel(caller [20]byte, addr [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		order, err := e.load(addr)
		if err != nil {
			return err
		}
		if order.Status != StatusOpen {
			return ErrInvalidStatus
		}
		if order.Creator != caller {
			return ErrNotCreator
		}
		return e.refund(order, caller, false)
	})
}

// CancelExpired lets an operator sweep an open order whose expiry has
// passed, refunding the locked input to the creator.
func (e *Engine) CancelExpired(operator [20]byte, addr [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireOperator(operator); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		order, err := e.load(addr)
		if err != nil {
			return err
		}
		if order.Status != StatusOpen {
			return ErrInvalidStatus
		}
		if e.now() < order.ExpiresAt {
			return ErrOrderNotExpired
		}
		return e.refund(order, operator, true)
	})
}

// Close retires a filled or cancelled order, removing its empty vault. The
// order record stays behind in the closed state.
func (e *Engine) Close(operator [20]byte, addr [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireOperator(operator); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		order, err := e.load(addr)
		if err != nil {
			return err
		}
		if order.Status != StatusFilled && order.Status != StatusCancelled {
			return ErrInvalidStatus
		}
		if order.Vault != ([20]byte{}) {
			if err := e.escrow.RemoveVault(order.Vault); err != nil {
				return err
			}
		}
		order.Status = StatusClosed
		order.UpdatedAt = e.now()
		if err := e.state.OrderPut(order); err != nil {
			return err
		}
		e.emitter.Emit(events.OrderClosed{Order: order.Address, Creator: order.Creator})
		return nil
	})
}

// openWithOutput opens an order directly in the open state, locking the
// route output that is already sitting in the order vault. Used by the
// route-and-create flows, which skip Init.
func (e *Engine) openWithOutput(creator [20]byte, nonce uint64, params CreateParams, locked *big.Int) (*Order, error) {
	addr := OrderAddress(creator, nonce)
	if _, ok := e.state.OrderGet(addr); ok {
		return nil, ErrOrderExists
	}
	now := e.now()
	params.InAmount = locked
	if err := e.validateParams(params, now); err != nil {
		return nil, err
	}
	order := &Order{
		Address:         addr,
		Creator:         creator,
		Nonce:           nonce,
		InputMint:       params.InputMint,
		OutputMint:      params.OutputMint,
		Vault:           OrderVaultAddress(creator, nonce),
		InAmount:        new(big.Int).Set(locked),
		MinOut:          new(big.Int).Set(params.MinOut),
		TriggerPriceBps: params.TriggerPriceBps,
		Kind:            params.Kind,
		ExpiresAt:       params.ExpiresAt,
		SlippageBps:     params.SlippageBps,
		Destination:     params.Destination,
		Status:          StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	return order.Clone(), nil
}

// RouteAndCreate runs a route and opens a new order locking the route's net
// output as the order input, in one atomic step. The route's destination is
// forced to the new order's vault; params.InputMint must be the route's
// output mint.
func (e *Engine) RouteAndCreate(creator [20]byte, nonce uint64, route router.Request, params CreateParams) (*Order, *router.Result, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	var (
		opened *Order
		result *router.Result
	)
	err := common.Atomic(e.state, func() error {
		vaultAddr := OrderVaultAddress(creator, nonce)
		if _, err := e.escrow.ProvisionVault(vaultAddr, params.InputMint); err != nil {
			return err
		}
		route.Caller = creator
		route.DestinationAccount = vaultAddr
		res, err := e.routes.Route(route)
		if err != nil {
			return err
		}
		order, err := e.openWithOutput(creator, nonce, params, res.Net)
		if err != nil {
			return err
		}
		opened = order
		result = res
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(events.OrderOpened{
		Order:      opened.Address,
		Creator:    opened.Creator,
		InputMint:  opened.InputMint,
		OutputMint: opened.OutputMint,
		Amount:     opened.InAmount,
		TriggerBps: opened.TriggerPriceBps,
		ExpiresAt:  opened.ExpiresAt,
	})
	return opened, result, nil
}

// SharedRouteAndCreate is RouteAndCreate through the shared-route delegate.
func (e *Engine) SharedRouteAndCreate(creator [20]byte, nonce uint64, route aggregator.Request, params CreateParams) (*Order, *router.Result, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	var (
		opened *Order
		result *router.Result
	)
	err := common.Atomic(e.state, func() error {
		vaultAddr := OrderVaultAddress(creator, nonce)
		if _, err := e.escrow.ProvisionVault(vaultAddr, params.InputMint); err != nil {
			return err
		}
		route.Caller = creator
		route.DestinationAccount = vaultAddr
		res, err := e.delegate.Route(route)
		if err != nil {
			return err
		}
		order, err := e.openWithOutput(creator, nonce, params, res.Net)
		if err != nil {
			return err
		}
		opened = order
		result = res
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(events.OrderOpened{
		Order:      opened.Address,
		Creator:    opened.Creator,
		InputMint:  opened.InputMint,
		OutputMint: opened.OutputMint,
		Amount:     opened.InAmount,
		TriggerBps: opened.TriggerPriceBps,
		ExpiresAt:  opened.ExpiresAt,
	})
	return opened, result, nil
}
