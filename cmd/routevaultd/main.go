package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"routevault/config"
	"routevault/core/events"
	"routevault/core/state"
	"routevault/core/types"
	"routevault/crypto"
	"routevault/native/aggregator"
	"routevault/native/common"
	"routevault/native/dex"
	"routevault/native/escrow"
	"routevault/native/fees"
	"routevault/native/limitorder"
	"routevault/native/registry"
	"routevault/native/router"
	"routevault/observability/logging"
	"routevault/observability/metrics"
	"routevault/rpc"
	"routevault/storage"
)

// logEmitter forwards engine events to the structured log.
type logEmitter struct {
	log *slog.Logger
}

func (l logEmitter) Emit(event events.Event) {
	payload := event.Event()
	attrs := make([]any, 0, len(payload.Attributes)*2)
	for key, value := range payload.Attributes {
		attrs = append(attrs, key, value)
	}
	l.log.Info(payload.Type, attrs...)
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("routevaultd", cfg.Environment, logging.Options{File: cfg.LogFile})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	st := state.New(db)
	emitter := events.MultiEmitter{
		logEmitter{log: logger},
		metrics.NewEmitter(metrics.Router()),
	}
	pauses := common.StaticPauses(cfg.Pauses())

	collector := fees.NewCollector(st)
	collector.SetEmitter(emitter)

	registryEngine := registry.NewEngine()
	registryEngine.SetState(st)
	registryEngine.SetPauses(pauses)

	escrowEngine := escrow.NewEngine()
	escrowEngine.SetState(st)
	escrowEngine.SetManagerView(registryEngine)
	escrowEngine.SetCollector(collector)
	escrowEngine.SetPauses(pauses)
	escrowEngine.SetEmitter(emitter)

	host := dex.NewHost()
	registerPrograms(host, cfg, logger)

	dispatcher := dex.NewDispatcher(registryEngine)

	routerEngine := router.NewEngine(escrowEngine, dispatcher, host)
	routerEngine.SetState(st)
	routerEngine.SetPauses(pauses)
	routerEngine.SetEmitter(emitter)

	delegate := aggregator.NewDelegate(escrowEngine, host)
	delegate.SetState(st)
	delegate.SetPauses(pauses)
	delegate.SetEmitter(emitter)

	orderEngine := limitorder.NewEngine(escrowEngine, routerEngine, delegate)
	orderEngine.SetState(st)
	orderEngine.SetOperatorView(registryEngine)
	orderEngine.SetConditionSource(&limitorder.StaticConditionSource{})
	orderEngine.SetPauses(pauses)
	orderEngine.SetEmitter(emitter)

	if err := bootstrap(cfg, st, escrowEngine, registryEngine, logger); err != nil {
		logger.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.NewServer(rpc.Options{
		Logger:             logger,
		JWTSecret:          cfg.JWTSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		PlatformFeeBps:     cfg.PlatformFeeBps,
		State:              st,
		Escrow:             escrowEngine,
		Registry:           registryEngine,
		Router:             routerEngine,
		Delegate:           delegate,
		Orders:             orderEngine,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("rpc listening", slog.String("address", cfg.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.Any("error", err))
	}
	logger.Info("stopped")
}

// registerPrograms installs the in-process exchange programs at derived
// addresses. The registry authority points adapters at these addresses when
// configuring the node.
func registerPrograms(host *dex.Host, cfg *config.Config, logger *slog.Logger) {
	programs := map[string]dex.Program{
		"cpmm": dex.NewCpmmProgram(),
		"clmm": dex.NewClmmProgram(),
		"dlmm": dex.NewDlmmProgram(),
	}
	for name, program := range programs {
		addr := crypto.DeriveAddress("program", []byte(name))
		host.Register(addr, program)
		logger.Info("program registered",
			slog.String("name", name),
			slog.String("address", crypto.EncodeAddress(addr)),
		)
	}
	aggregatorAddr, err := cfg.AggregatorProgramAddress()
	if err == nil && aggregatorAddr != types.ZeroAddress {
		host.Register(aggregatorAddr, aggregator.NewInventoryProgram(aggregatorAddr))
		logger.Info("aggregator program registered",
			slog.String("address", crypto.EncodeAddress(aggregatorAddr)),
		)
	}
}

// bootstrap creates the escrow authority and registry singletons on first
// start when the config names them.
func bootstrap(cfg *config.Config, st *state.State, esc *escrow.Engine, reg *registry.Engine, logger *slog.Logger) error {
	if cfg.Admin != "" {
		admin, err := cfg.AdminAddress()
		if err != nil {
			return err
		}
		if _, err := esc.Authority(); errors.Is(err, escrow.ErrAuthorityNotFound) {
			if _, err := esc.CreateAuthority(admin); err != nil {
				return err
			}
			logger.Info("escrow authority created", slog.String("admin", cfg.Admin))
		}
	}
	if cfg.RegistryAuthority != "" {
		authority, err := cfg.RegistryAuthorityAddress()
		if err != nil {
			return err
		}
		if _, err := reg.Registry(); errors.Is(err, registry.ErrRegistryNotFound) {
			if err := reg.Initialize(authority); err != nil {
				return err
			}
			operators, err := cfg.OperatorAddresses()
			if err != nil {
				return err
			}
			for _, operator := range operators {
				if err := reg.AddOperator(authority, operator); err != nil && !errors.Is(err, registry.ErrOperatorExists) {
					return err
				}
			}
			logger.Info("registry initialised", slog.String("authority", cfg.RegistryAuthority))
		}
	}
	return st.Commit()
}
