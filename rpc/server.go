package rpc

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"routevault/core/state"
	"routevault/native/aggregator"
	"routevault/native/escrow"
	"routevault/native/limitorder"
	"routevault/native/registry"
	"routevault/native/router"
	"routevault/observability/metrics"
)

// Server exposes the engines over JSON/HTTP.
type Server struct {
	log      *slog.Logger
	auth     *Authenticator
	limiter  *RateLimiter
	metrics  *metrics.RouterMetrics
	feeBps   uint32
	state    *state.State
	escrow   *escrow.Engine
	registry *registry.Engine
	routes   *router.Engine
	delegate *aggregator.Delegate
	orders   *limitorder.Engine

	// mu serializes handler access to state and the engines. The state
	// overlay and its journal are not safe for concurrent use.
	mu sync.Mutex
}

// Options wires the server's collaborators.
type Options struct {
	Logger             *slog.Logger
	JWTSecret          string
	RateLimitPerMinute int
	PlatformFeeBps     uint32
	State              *state.State
	Escrow             *escrow.Engine
	Registry           *registry.Engine
	Router             *router.Engine
	Delegate           *aggregator.Delegate
	Orders             *limitorder.Engine
}

// NewServer constructs the RPC server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		log:      logger,
		auth:     NewAuthenticator(opts.JWTSecret),
		limiter:  NewRateLimiter(opts.RateLimitPerMinute),
		metrics:  metrics.Router(),
		feeBps:   opts.PlatformFeeBps,
		state:    opts.State,
		escrow:   opts.Escrow,
		registry: opts.Registry,
		routes:   opts.Router,
		delegate: opts.Delegate,
		orders:   opts.Orders,
	}
}

// Authenticator exposes the token minter for operational tooling.
func (s *Server) Authenticator() *Authenticator { return s.auth }

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()
		r.Header.Set("X-Request-Id", requestID)
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		s.metrics.ObserveRequestDuration(r.URL.Path, elapsed.Seconds())
		s.log.Info("rpc request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func (s *Server) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(s.limiter.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/registry", func(sr chi.Router) {
		sr.Use(s.serialize)
		sr.Use(s.auth.Middleware(RoleAdmin, RoleOperator))
		sr.Post("/init", s.handleRegistryInit)
		sr.Post("/adapters/init", s.handleAdapterInit)
		sr.Post("/adapters/configure", s.handleAdapterConfigure)
		sr.Post("/adapters/disable", s.handleAdapterDisable)
		sr.Post("/pools/init", s.handlePoolInit)
		sr.Post("/pools/disable", s.handlePoolDisable)
		sr.Post("/operators/add", s.handleOperatorAdd)
		sr.Post("/operators/remove", s.handleOperatorRemove)
		sr.Post("/authority", s.handleRegistryAuthority)
		sr.Post("/reset", s.handleRegistryReset)
		sr.Post("/manager/init", s.handleManagerInit)
		sr.Post("/manager/transfer", s.handleManagerTransfer)
	})

	r.Route("/v1/escrow", func(sr chi.Router) {
		sr.Use(s.serialize)
		sr.Use(s.auth.Middleware(RoleAdmin))
		sr.Post("/authority", s.handleAuthorityCreate)
		sr.Post("/admin", s.handleAdminChange)
		sr.Post("/aggregator", s.handleAggregatorSet)
		sr.Post("/vaults", s.handleVaultCreate)
		sr.Post("/vaults/close", s.handleVaultClose)
		sr.Post("/fees/withdraw", s.handleFeesWithdraw)
		sr.Get("/vaults/{mint}", s.handleVaultGet)
	})

	r.Route("/v1", func(sr chi.Router) {
		sr.Use(s.serialize)
		sr.Use(s.auth.Middleware())
		sr.Post("/route", s.handleRoute)
		sr.Post("/shared-route", s.handleSharedRoute)
	})

	r.Route("/v1/orders", func(sr chi.Router) {
		sr.Use(s.serialize)
		sr.Use(s.auth.Middleware())
		sr.Post("/init", s.handleOrderInit)
		sr.Post("/create", s.handleOrderCreate)
		sr.Post("/route-and-create", s.handleOrderRouteAndCreate)
		sr.Post("/shared-route-and-create", s.handleOrderSharedRouteAndCreate)
		sr.Get("/{address}", s.handleOrderGet)
		sr.Post("/{address}/cancel", s.handleOrderCancel)

		sr.Group(func(or chi.Router) {
			or.Use(s.auth.Middleware(RoleOperator, RoleAdmin))
			or.Post("/{address}/execute", s.handleOrderExecute)
			or.Post("/{address}/shared-execute", s.handleOrderSharedExecute)
			or.Post("/{address}/cancel-expired", s.handleOrderCancelExpired)
			or.Post("/{address}/close", s.handleOrderClose)
		})
	})

	return r
}

// commit flushes engine writes after a successful mutation and reports the
// outcome.
func (s *Server) commit(w http.ResponseWriter, status int, payload interface{}) {
	if err := s.state.Commit(); err != nil {
		s.log.Error("state commit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, payload)
}
