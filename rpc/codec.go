package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"routevault/crypto"
	"routevault/native/common"
	"routevault/native/dex"
	"routevault/native/escrow"
	"routevault/native/limitorder"
	"routevault/native/registry"
	"routevault/native/router"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), errorBody{Error: err.Error()})
}

var notFoundErrors = []error{
	escrow.ErrAuthorityNotFound,
	escrow.ErrVaultNotFound,
	registry.ErrRegistryNotFound,
	registry.ErrAdapterNotFound,
	registry.ErrOperatorNotFound,
	limitorder.ErrOrderNotFound,
	dex.ErrPoolNotFound,
}

var conflictErrors = []error{
	escrow.ErrAuthorityExists,
	escrow.ErrVaultExists,
	escrow.ErrVaultNotEmpty,
	registry.ErrRegistryExists,
	registry.ErrAdapterExists,
	registry.ErrOperatorExists,
	registry.ErrPoolExists,
	registry.ErrManagerExists,
	limitorder.ErrOrderExists,
	limitorder.ErrInvalidStatus,
}

var forbiddenErrors = []error{
	errSourceNotCaller,
	escrow.ErrNotAdmin,
	escrow.ErrNotSuperAdmin,
	registry.ErrNotAuthority,
	registry.ErrNotOperator,
	registry.ErrNotManager,
	limitorder.ErrNotCreator,
	limitorder.ErrNotOperator,
}

func httpStatus(err error) int {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	for _, target := range forbiddenErrors {
		if errors.Is(err, target) {
			return http.StatusForbidden
		}
	}
	if errors.Is(err, common.ErrModulePaused) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

func decodeBody(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("rpc: decode request: %w", err)
	}
	return nil
}

func parseAddress(field, raw string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("rpc: invalid %s: %w", field, err)
	}
	return addr, nil
}

func parseAddresses(field string, raw []string) ([][20]byte, error) {
	addrs := make([][20]byte, len(raw))
	for i, item := range raw {
		addr, err := parseAddress(field, item)
		if err != nil {
			return nil, err
		}
		addrs[i] = addr
	}
	return addrs, nil
}

func parseAmount(field, raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("rpc: invalid %s amount %q", field, raw)
	}
	return amount, nil
}

type planStepBody struct {
	SwapType    uint8    `json:"swapType"`
	Percent     uint8    `json:"percent"`
	InputIndex  uint16   `json:"inputIndex"`
	OutputIndex uint16   `json:"outputIndex"`
	Accounts    []uint16 `json:"accounts"`
}

func parsePlan(steps []planStepBody) router.Plan {
	plan := router.Plan{Steps: make([]router.Step, len(steps))}
	for i, step := range steps {
		plan.Steps[i] = router.Step{
			Swap:        dex.SwapType(step.SwapType),
			Percent:     step.Percent,
			InputIndex:  step.InputIndex,
			OutputIndex: step.OutputIndex,
			Accounts:    step.Accounts,
		}
	}
	return plan
}

type routeResultBody struct {
	Output string `json:"output"`
	Fee    string `json:"fee"`
	Net    string `json:"net"`
	Steps  int    `json:"steps"`
}

func renderResult(result *router.Result) routeResultBody {
	return routeResultBody{
		Output: result.Output.String(),
		Fee:    result.Fee.String(),
		Net:    result.Net.String(),
		Steps:  result.Steps,
	}
}

type orderBody struct {
	Address         string `json:"address"`
	Creator         string `json:"creator"`
	Nonce           uint64 `json:"nonce"`
	InputMint       string `json:"inputMint"`
	OutputMint      string `json:"outputMint"`
	Vault           string `json:"vault"`
	InAmount        string `json:"inAmount"`
	MinOut          string `json:"minOut"`
	TriggerPriceBps uint64 `json:"triggerPriceBps"`
	Kind            uint8  `json:"kind"`
	ExpiresAt       int64  `json:"expiresAt"`
	SlippageBps     uint32 `json:"slippageBps"`
	Destination     string `json:"destination"`
	Status          string `json:"status"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}

func renderOrder(order *limitorder.Order) orderBody {
	body := orderBody{
		Address:         crypto.EncodeAddress(order.Address),
		Creator:         crypto.EncodeAddress(order.Creator),
		Nonce:           order.Nonce,
		InputMint:       crypto.EncodeAddress(order.InputMint),
		OutputMint:      crypto.EncodeAddress(order.OutputMint),
		Vault:           crypto.EncodeAddress(order.Vault),
		TriggerPriceBps: order.TriggerPriceBps,
		Kind:            uint8(order.Kind),
		ExpiresAt:       order.ExpiresAt,
		SlippageBps:     order.SlippageBps,
		Destination:     crypto.EncodeAddress(order.Destination),
		Status:          order.Status.String(),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	if order.InAmount != nil {
		body.InAmount = order.InAmount.String()
	}
	if order.MinOut != nil {
		body.MinOut = order.MinOut.String()
	}
	return body
}
