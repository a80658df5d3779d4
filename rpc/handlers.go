package rpc

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"routevault/core/types"
	"routevault/crypto"
	"routevault/native/aggregator"
	"routevault/native/dex"
	"routevault/native/escrow"
	"routevault/native/limitorder"
	"routevault/native/router"
)

type okBody struct {
	OK bool `json:"ok"`
}

var errSourceNotCaller = errors.New("rpc: source account does not match authenticated caller")

// authorizeSource restricts user-role tokens to spending from their own
// account. Admin and operator tokens may route on behalf of any account.
func authorizeSource(r *http.Request, source [20]byte) error {
	role, _ := RoleFromContext(r.Context())
	if role != RoleUser {
		return nil
	}
	caller, _ := CallerFromContext(r.Context())
	if source != caller {
		return errSourceNotCaller
	}
	return nil
}

// platformFee substitutes the node's configured platform fee when the
// request does not carry one.
func (s *Server) platformFee(requested uint32) uint32 {
	if requested == 0 {
		return s.feeBps
	}
	return requested
}

// --- registry ---

func (s *Server) handleRegistryInit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Authority string `json:"authority"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	authority, err := parseAddress("authority", body.Authority)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.registry.Initialize(authority); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusCreated, okBody{OK: true})
}

func (s *Server) adapterRequest(w http.ResponseWriter, r *http.Request) (caller [20]byte, name string, program [20]byte, swapType dex.SwapType, ok bool) {
	var body struct {
		Name     string `json:"name"`
		Program  string `json:"program"`
		SwapType uint8  `json:"swapType"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, found := CallerFromContext(r.Context())
	if !found {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing caller"})
		return
	}
	program, err := parseAddress("program", body.Program)
	if err != nil {
		writeError(w, err)
		return
	}
	return caller, body.Name, program, dex.SwapType(body.SwapType), true
}

func (s *Server) handleAdapterInit(w http.ResponseWriter, r *http.Request) {
	caller, name, program, swapType, ok := s.adapterRequest(w, r)
	if !ok {
		return
	}
	if err := s.registry.InitializeAdapter(caller, name, program, swapType); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusCreated, okBody{OK: true})
}

func (s *Server) handleAdapterConfigure(w http.ResponseWriter, r *http.Request) {
	caller, name, program, swapType, ok := s.adapterRequest(w, r)
	if !ok {
		return
	}
	if err := s.registry.ConfigureAdapter(caller, name, program, swapType); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleAdapterDisable(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SwapType uint8 `json:"swapType"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	if err := s.registry.DisableAdapter(caller, dex.SwapType(body.SwapType)); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) poolRequest(w http.ResponseWriter, r *http.Request) (caller [20]byte, swapType dex.SwapType, pool [20]byte, ok bool) {
	var body struct {
		SwapType uint8  `json:"swapType"`
		Address  string `json:"address"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ = CallerFromContext(r.Context())
	pool, err := parseAddress("address", body.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	return caller, dex.SwapType(body.SwapType), pool, true
}

func (s *Server) handlePoolInit(w http.ResponseWriter, r *http.Request) {
	caller, swapType, pool, ok := s.poolRequest(w, r)
	if !ok {
		return
	}
	if err := s.registry.InitializePool(caller, swapType, pool); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusCreated, okBody{OK: true})
}

func (s *Server) handlePoolDisable(w http.ResponseWriter, r *http.Request) {
	caller, swapType, pool, ok := s.poolRequest(w, r)
	if !ok {
		return
	}
	if err := s.registry.DisablePool(caller, swapType, pool); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) operatorRequest(w http.ResponseWriter, r *http.Request) (caller, operator [20]byte, ok bool) {
	var body struct {
		Operator string `json:"operator"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ = CallerFromContext(r.Context())
	operator, err := parseAddress("operator", body.Operator)
	if err != nil {
		writeError(w, err)
		return
	}
	return caller, operator, true
}

func (s *Server) handleOperatorAdd(w http.ResponseWriter, r *http.Request) {
	caller, operator, ok := s.operatorRequest(w, r)
	if !ok {
		return
	}
	if err := s.registry.AddOperator(caller, operator); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusCreated, okBody{OK: true})
}

func (s *Server) handleOperatorRemove(w http.ResponseWriter, r *http.Request) {
	caller, operator, ok := s.operatorRequest(w, r)
	if !ok {
		return
	}
	if err := s.registry.RemoveOperator(caller, operator); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleRegistryAuthority(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Next string `json:"next"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	next, err := parseAddress("next", body.Next)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.registry.SetAuthority(caller, next); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleRegistryReset(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())
	if err := s.registry.Reset(caller); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleManagerInit(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())
	if err := s.registry.InitializeManager(caller); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusCreated, okBody{OK: true})
}

func (s *Server) handleManagerTransfer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Next string `json:"next"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	next, err := parseAddress("next", body.Next)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.registry.TransferManager(caller, next); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

// --- escrow ---

func (s *Server) handleAuthorityCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Admin string `json:"admin"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	admin, err := parseAddress("admin", body.Admin)
	if err != nil {
		writeError(w, err)
		return
	}
	authority, err := s.escrow.CreateAuthority(admin)
	if err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusCreated, map[string]string{
		"authority": crypto.EncodeAddress(authority.Address),
		"admin":     crypto.EncodeAddress(authority.Admin),
	})
}

func (s *Server) handleAdminChange(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Next string `json:"next"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	next, err := parseAddress("next", body.Next)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.escrow.ChangeAdmin(caller, next); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleAggregatorSet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Program string `json:"program"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	program, err := parseAddress("program", body.Program)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.escrow.SetAggregator(caller, program); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleVaultCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mint     string `json:"mint"`
		Standard uint8  `json:"standard"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	mint, err := parseAddress("mint", body.Mint)
	if err != nil {
		writeError(w, err)
		return
	}
	vault, err := s.escrow.CreateVault(caller, mint, escrow.TokenStandard(body.Standard))
	if err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusCreated, map[string]string{
		"vault": crypto.EncodeAddress(vault.Address),
		"mint":  crypto.EncodeAddress(vault.Mint),
	})
}

func (s *Server) handleVaultClose(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mint string `json:"mint"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	mint, err := parseAddress("mint", body.Mint)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.escrow.CloseVault(caller, mint); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleFeesWithdraw(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mint string `json:"mint"`
		To   string `json:"to"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	mint, err := parseAddress("mint", body.Mint)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseAddress("to", body.To)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := s.escrow.WithdrawFees(caller, mint, to)
	if err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

func (s *Server) handleVaultGet(w http.ResponseWriter, r *http.Request) {
	mint, err := parseAddress("mint", chi.URLParam(r, "mint"))
	if err != nil {
		writeError(w, err)
		return
	}
	vault, err := s.escrow.Vault(mint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vault":   crypto.EncodeAddress(vault.Address),
		"mint":    crypto.EncodeAddress(vault.Mint),
		"balance": s.escrow.VaultBalance(mint).String(),
	})
}

// --- swap ---

type routeRequestBody struct {
	Source         string         `json:"source"`
	Destination    string         `json:"destination"`
	Accounts       []string       `json:"accounts"`
	Plan           []planStepBody `json:"plan"`
	InAmount       string         `json:"inAmount"`
	QuotedOut      string         `json:"quotedOut"`
	SlippageBps    uint32         `json:"slippageBps"`
	PlatformFeeBps uint32         `json:"platformFeeBps"`
}

func (s *Server) parseRouteRequest(r *http.Request) (router.Request, error) {
	var body routeRequestBody
	if err := decodeBody(r, &body); err != nil {
		return router.Request{}, err
	}
	caller, _ := CallerFromContext(r.Context())
	source, err := parseAddress("source", body.Source)
	if err != nil {
		return router.Request{}, err
	}
	if err := authorizeSource(r, source); err != nil {
		return router.Request{}, err
	}
	destination, err := parseAddress("destination", body.Destination)
	if err != nil {
		return router.Request{}, err
	}
	accounts, err := parseAddresses("accounts", body.Accounts)
	if err != nil {
		return router.Request{}, err
	}
	inAmount, err := parseAmount("inAmount", body.InAmount)
	if err != nil {
		return router.Request{}, err
	}
	quoted, err := parseAmount("quotedOut", body.QuotedOut)
	if err != nil {
		return router.Request{}, err
	}
	return router.Request{
		Caller:             caller,
		SourceAccount:      source,
		DestinationAccount: destination,
		Accounts:           accounts,
		Plan:               parsePlan(body.Plan),
		InAmount:           inAmount,
		QuotedOut:          quoted,
		SlippageBps:        body.SlippageBps,
		PlatformFeeBps:     s.platformFee(body.PlatformFeeBps),
	}, nil
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRouteRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.routes.Route(req)
	if err != nil {
		s.metrics.ObserveRouteFailed(err.Error())
		writeError(w, err)
		return
	}
	s.metrics.ObserveRouteExecuted("route")
	s.commit(w, http.StatusOK, renderResult(result))
}

type sharedRouteRequestBody struct {
	Source         string   `json:"source"`
	Destination    string   `json:"destination"`
	InputMint      string   `json:"inputMint"`
	OutputMint     string   `json:"outputMint"`
	Accounts       []string `json:"accounts"`
	Payload        []byte   `json:"payload"`
	InAmount       string   `json:"inAmount"`
	QuotedOut      string   `json:"quotedOut"`
	SlippageBps    uint32   `json:"slippageBps"`
	PlatformFeeBps uint32   `json:"platformFeeBps"`
}

func (s *Server) parseSharedRouteRequest(r *http.Request) (aggregator.Request, error) {
	var body sharedRouteRequestBody
	if err := decodeBody(r, &body); err != nil {
		return aggregator.Request{}, err
	}
	caller, _ := CallerFromContext(r.Context())
	source, err := parseAddress("source", body.Source)
	if err != nil {
		return aggregator.Request{}, err
	}
	if err := authorizeSource(r, source); err != nil {
		return aggregator.Request{}, err
	}
	destination, err := parseAddress("destination", body.Destination)
	if err != nil {
		return aggregator.Request{}, err
	}
	inputMint, err := parseAddress("inputMint", body.InputMint)
	if err != nil {
		return aggregator.Request{}, err
	}
	outputMint, err := parseAddress("outputMint", body.OutputMint)
	if err != nil {
		return aggregator.Request{}, err
	}
	accounts, err := parseAddresses("accounts", body.Accounts)
	if err != nil {
		return aggregator.Request{}, err
	}
	inAmount, err := parseAmount("inAmount", body.InAmount)
	if err != nil {
		return aggregator.Request{}, err
	}
	quoted, err := parseAmount("quotedOut", body.QuotedOut)
	if err != nil {
		return aggregator.Request{}, err
	}
	return aggregator.Request{
		Caller:             caller,
		SourceAccount:      source,
		DestinationAccount: destination,
		InputMint:          inputMint,
		OutputMint:         outputMint,
		Accounts:           accounts,
		Payload:            body.Payload,
		InAmount:           inAmount,
		QuotedOut:          quoted,
		SlippageBps:        body.SlippageBps,
		PlatformFeeBps:     s.platformFee(body.PlatformFeeBps),
	}, nil
}

func (s *Server) handleSharedRoute(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseSharedRouteRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.delegate.Route(req)
	if err != nil {
		s.metrics.ObserveRouteFailed(err.Error())
		writeError(w, err)
		return
	}
	s.metrics.ObserveRouteExecuted("shared")
	s.commit(w, http.StatusOK, renderResult(result))
}

// --- limit orders ---

type orderParamsBody struct {
	InputMint       string `json:"inputMint"`
	OutputMint      string `json:"outputMint"`
	InAmount        string `json:"inAmount"`
	MinOut          string `json:"minOut"`
	TriggerPriceBps uint64 `json:"triggerPriceBps"`
	Kind            uint8  `json:"kind"`
	ExpiresAt       int64  `json:"expiresAt"`
	SlippageBps     uint32 `json:"slippageBps"`
	Destination     string `json:"destination"`
}

func parseOrderParams(body orderParamsBody, requireAmount bool) (limitorder.CreateParams, error) {
	var params limitorder.CreateParams
	inputMint, err := parseAddress("inputMint", body.InputMint)
	if err != nil {
		return params, err
	}
	outputMint, err := parseAddress("outputMint", body.OutputMint)
	if err != nil {
		return params, err
	}
	destination, err := parseAddress("destination", body.Destination)
	if err != nil {
		return params, err
	}
	params = limitorder.CreateParams{
		InputMint:       inputMint,
		OutputMint:      outputMint,
		MinOut:          nil,
		TriggerPriceBps: body.TriggerPriceBps,
		Kind:            limitorder.TriggerKind(body.Kind),
		ExpiresAt:       body.ExpiresAt,
		SlippageBps:     body.SlippageBps,
		Destination:     destination,
	}
	if params.MinOut, err = parseAmount("minOut", body.MinOut); err != nil {
		return params, err
	}
	if requireAmount {
		if params.InAmount, err = parseAmount("inAmount", body.InAmount); err != nil {
			return params, err
		}
	}
	return params, nil
}

func (s *Server) handleOrderInit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	order, err := s.orders.Init(caller, body.Nonce)
	if err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusCreated, renderOrder(order))
}

func (s *Server) handleOrderCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nonce  uint64          `json:"nonce"`
		Params orderParamsBody `json:"params"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	params, err := parseOrderParams(body.Params, true)
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := s.orders.Create(caller, body.Nonce, params)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ObserveOrderOpened()
	s.commit(w, http.StatusCreated, renderOrder(order))
}

func (s *Server) orderAddressParam(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	addr, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, err)
		return [20]byte{}, false
	}
	return addr, true
}

func (s *Server) handleOrderGet(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.orderAddressParam(w, r)
	if !ok {
		return
	}
	order, err := s.orders.Order(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderOrder(order))
}

func (s *Server) handleOrderExecute(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.orderAddressParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Accounts       []string       `json:"accounts"`
		Plan           []planStepBody `json:"plan"`
		QuotedOut      string         `json:"quotedOut"`
		PlatformFeeBps uint32         `json:"platformFeeBps"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	accounts, err := parseAddresses("accounts", body.Accounts)
	if err != nil {
		writeError(w, err)
		return
	}
	quoted, err := parseAmount("quotedOut", body.QuotedOut)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.orders.Execute(caller, addr, limitorder.ExecuteParams{
		Accounts:       accounts,
		Plan:           parsePlan(body.Plan),
		QuotedOut:      quoted,
		PlatformFeeBps: s.platformFee(body.PlatformFeeBps),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ObserveOrderFilled()
	s.commit(w, http.StatusOK, renderResult(result))
}

func (s *Server) handleOrderSharedExecute(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.orderAddressParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Accounts       []string `json:"accounts"`
		Payload        []byte   `json:"payload"`
		QuotedOut      string   `json:"quotedOut"`
		PlatformFeeBps uint32   `json:"platformFeeBps"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	accounts, err := parseAddresses("accounts", body.Accounts)
	if err != nil {
		writeError(w, err)
		return
	}
	quoted, err := parseAmount("quotedOut", body.QuotedOut)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.orders.SharedExecute(caller, addr, limitorder.SharedExecuteParams{
		Accounts:       accounts,
		Payload:        body.Payload,
		QuotedOut:      quoted,
		PlatformFeeBps: s.platformFee(body.PlatformFeeBps),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ObserveOrderFilled()
	s.commit(w, http.StatusOK, renderResult(result))
}

func (s *Server) handleOrderCancel(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.orderAddressParam(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFromContext(r.Context())
	if err := s.orders.Cancel(caller, addr); err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ObserveOrderCancelled()
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleOrderCancelExpired(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.orderAddressParam(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFromContext(r.Context())
	if err := s.orders.CancelExpired(caller, addr); err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ObserveOrderCancelled()
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleOrderClose(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.orderAddressParam(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFromContext(r.Context())
	if err := s.orders.Close(caller, addr); err != nil {
		writeError(w, err)
		return
	}
	s.commit(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleOrderRouteAndCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nonce  uint64           `json:"nonce"`
		Route  routeRequestBody `json:"route"`
		Params orderParamsBody  `json:"params"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	route, err := s.parseNestedRoute(r, body.Route)
	if err != nil {
		writeError(w, err)
		return
	}
	params, err := parseOrderParams(body.Params, false)
	if err != nil {
		writeError(w, err)
		return
	}
	order, result, err := s.orders.RouteAndCreate(caller, body.Nonce, route, params)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ObserveRouteExecuted("route")
	s.metrics.ObserveOrderOpened()
	s.commit(w, http.StatusCreated, map[string]interface{}{
		"order": renderOrder(order),
		"route": renderResult(result),
	})
}

func (s *Server) handleOrderSharedRouteAndCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nonce  uint64                 `json:"nonce"`
		Route  sharedRouteRequestBody `json:"route"`
		Params orderParamsBody        `json:"params"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	route, err := s.parseNestedSharedRoute(r, body.Route)
	if err != nil {
		writeError(w, err)
		return
	}
	params, err := parseOrderParams(body.Params, false)
	if err != nil {
		writeError(w, err)
		return
	}
	order, result, err := s.orders.SharedRouteAndCreate(caller, body.Nonce, route, params)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ObserveRouteExecuted("shared")
	s.metrics.ObserveOrderOpened()
	s.commit(w, http.StatusCreated, map[string]interface{}{
		"order": renderOrder(order),
		"route": renderResult(result),
	})
}

func (s *Server) parseNestedRoute(r *http.Request, body routeRequestBody) (router.Request, error) {
	caller, _ := CallerFromContext(r.Context())
	source, err := parseAddress("source", body.Source)
	if err != nil {
		return router.Request{}, err
	}
	if err := authorizeSource(r, source); err != nil {
		return router.Request{}, err
	}
	accounts, err := parseAddresses("accounts", body.Accounts)
	if err != nil {
		return router.Request{}, err
	}
	inAmount, err := parseAmount("inAmount", body.InAmount)
	if err != nil {
		return router.Request{}, err
	}
	quoted, err := parseAmount("quotedOut", body.QuotedOut)
	if err != nil {
		return router.Request{}, err
	}
	return router.Request{
		Caller:             caller,
		SourceAccount:      source,
		DestinationAccount: types.ZeroAddress,
		Accounts:           accounts,
		Plan:               parsePlan(body.Plan),
		InAmount:           inAmount,
		QuotedOut:          quoted,
		SlippageBps:        body.SlippageBps,
		PlatformFeeBps:     s.platformFee(body.PlatformFeeBps),
	}, nil
}

func (s *Server) parseNestedSharedRoute(r *http.Request, body sharedRouteRequestBody) (aggregator.Request, error) {
	caller, _ := CallerFromContext(r.Context())
	source, err := parseAddress("source", body.Source)
	if err != nil {
		return aggregator.Request{}, err
	}
	if err := authorizeSource(r, source); err != nil {
		return aggregator.Request{}, err
	}
	inputMint, err := parseAddress("inputMint", body.InputMint)
	if err != nil {
		return aggregator.Request{}, err
	}
	outputMint, err := parseAddress("outputMint", body.OutputMint)
	if err != nil {
		return aggregator.Request{}, err
	}
	accounts, err := parseAddresses("accounts", body.Accounts)
	if err != nil {
		return aggregator.Request{}, err
	}
	inAmount, err := parseAmount("inAmount", body.InAmount)
	if err != nil {
		return aggregator.Request{}, err
	}
	quoted, err := parseAmount("quotedOut", body.QuotedOut)
	if err != nil {
		return aggregator.Request{}, err
	}
	return aggregator.Request{
		Caller:         caller,
		SourceAccount:  source,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		Accounts:       accounts,
		Payload:        body.Payload,
		InAmount:       inAmount,
		QuotedOut:      quoted,
		SlippageBps:    body.SlippageBps,
		PlatformFeeBps: s.platformFee(body.PlatformFeeBps),
	}, nil
}
