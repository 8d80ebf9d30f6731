package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	authorization "maestro/contexts/orchestration/authorization-service"
	authpostgres "maestro/contexts/orchestration/authorization-service/adapters/postgres"
	authworkers "maestro/contexts/orchestration/authorization-service/application/workers"
	authentities "maestro/contexts/orchestration/authorization-service/domain/entities"
	authports "maestro/contexts/orchestration/authorization-service/ports"
	processor "maestro/contexts/orchestration/processor-service"
	procmemory "maestro/contexts/orchestration/processor-service/adapters/memory"
	procpostgres "maestro/contexts/orchestration/processor-service/adapters/postgres"
	procapp "maestro/contexts/orchestration/processor-service/application"
	procworkers "maestro/contexts/orchestration/processor-service/application/workers"
	procentities "maestro/contexts/orchestration/processor-service/domain/entities"
	procports "maestro/contexts/orchestration/processor-service/ports"
	routing "maestro/contexts/orchestration/routing-service"
	routingapp "maestro/contexts/orchestration/routing-service/application"
	routingworkers "maestro/contexts/orchestration/routing-service/application/workers"
	routingentities "maestro/contexts/orchestration/routing-service/domain/entities"
	orchv1 "maestro/contracts/orchestration/v1"
	"maestro/internal/platform/config"
	"maestro/internal/platform/db"
	"maestro/internal/platform/httpserver"
	"maestro/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

// Runtime holds the wired orchestration triad: the authorization
// registry, one processor per domain and the router with its bridge
// consumers, all sharing the in-process event bus.
type Runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	bus      *messaging.Bus
	postgres *db.Postgres
	subCtx   context.Context

	directory     *processorDirectory
	routing       routing.Module
	authorization authorization.Module
	mainProcessor processor.Module

	outboxRelay authworkers.OutboxRelay

	mu    sync.Mutex
	ticks []procworkers.TickKeeper
}

type APIApp struct {
	server  *httpserver.Server
	runtime *Runtime
	logger  *slog.Logger
}

type WorkerApp struct {
	runtime *Runtime
	logger  *slog.Logger
}

func newRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{
		cfg:       cfg,
		logger:    logger,
		bus:       messaging.NewBus(logger),
		subCtx:    ctx,
		directory: newProcessorDirectory(),
	}

	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		rt.postgres = pg
	}

	rt.routing = routing.NewInMemoryModule(
		rt.directory,
		rt.bus,
		cfg.MainProcessorAddress,
		cfg.AuthorizationContract,
		logger,
	)

	var outbox authports.OutboxWriter
	if rt.postgres != nil {
		repo := authpostgres.NewRepository(rt.postgres.DB, logger)
		rt.authorization = authorization.NewModule(authorization.Dependencies{
			Repository:    repo,
			CallbackDedup: repo,
			Outbox:        repo,
			Router:        domainRouter{runtime: rt},
			Clock:         authpostgres.SystemClock{},
			IDGenerator:   authpostgres.UUIDGenerator{},
			Owner:         cfg.Owner,
			MainProcessor: cfg.MainProcessorAddress,
			Logger:        logger,
		})
		outbox = repo
	} else {
		rt.authorization = authorization.NewInMemoryModule(
			domainRouter{runtime: rt},
			cfg.Owner,
			cfg.MainProcessorAddress,
			logger,
		)
		outbox = rt.authorization.Store
	}

	rt.outboxRelay = authworkers.OutboxRelay{
		Outbox:    outbox,
		Publisher: outboxBusPublisher{bus: rt.bus},
		BatchSize: cfg.OutboxRelayBatchSize,
		Logger:    logger,
	}

	mainModule, err := rt.newProcessor(ctx, orchv1.MainDomain(), cfg.MainProcessorAddress, mainCallbackSender{
		authorization: rt.authorization.Service,
		caller:        cfg.MainProcessorAddress,
		bus:           rt.bus,
	})
	if err != nil {
		return nil, err
	}
	rt.mainProcessor = mainModule
	rt.directory.Register(cfg.MainProcessorAddress, mainModule.Service)
	rt.registerTick(mainModule.Service)

	relay := routingworkers.CallbackRelay{
		Routes:        rt.routing.Store,
		Authorization: registryGateway{authorization: rt.authorization.Service},
		Logger:        logger,
	}
	if err := rt.bus.Subscribe(ctx, routingapp.CallbackTopic, "routing-callback-relay-cg", relay.Handle); err != nil {
		return nil, err
	}

	return rt, nil
}

// newProcessor builds one processor instance for a domain. With a
// Postgres DSN the queue lives in the database keyed by the processor
// address; scripted execution libraries stay in memory either way.
func (rt *Runtime) newProcessor(ctx context.Context, domain orchv1.Domain, address string, callbacks procports.CallbackSender) (processor.Module, error) {
	processorConfig := procentities.Config{
		AuthorizationContract: rt.cfg.AuthorizationContract,
		Domain:                domain,
		State:                 procentities.ProcessorActive,
	}

	if rt.postgres == nil {
		return processor.NewInMemoryModule(processorConfig, callbacks, rt.logger), nil
	}

	queue := procpostgres.NewRepository(rt.postgres.DB, address, rt.logger)
	if err := queue.SaveConfig(ctx, processorConfig); err != nil {
		return processor.Module{}, err
	}
	libraries := procmemory.NewLibraryRegistry()
	module := processor.NewModule(processor.Dependencies{
		Queue:          queue,
		Executor:       libraries,
		AtomicExecutor: libraries,
		Callbacks:      callbacks,
		Clock:          procpostgres.SystemClock{},
		Logger:         rt.logger,
	})
	module.Libraries = libraries
	return module, nil
}

func (rt *Runtime) registerTick(service procapp.Service) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.ticks = append(rt.ticks, procworkers.TickKeeper{Service: service, Logger: rt.logger})
}

// provisionDomain spins up the local half of a newly registered external
// domain: its processor instance, the receiving bridge consumer and the
// router entry. CosmWasm domains also get their proxy creation call
// dispatched.
func (rt *Runtime) provisionDomain(ctx context.Context, domain authentities.ExternalDomain) error {
	target := routingentities.RouteTarget{
		Name:             domain.Name,
		ProcessorAddress: domain.ProcessorAddress,
		CallbackOrigin:   domain.CallbackOrigin,
		Caller:           rt.cfg.AuthorizationContract,
	}
	if domain.Polytone != nil {
		target.Polytone = &routingentities.PolytoneRoute{
			NoteAddress:    domain.Polytone.NoteAddress,
			VoiceAddress:   domain.Polytone.VoiceAddress,
			TimeoutSeconds: uint64(domain.Polytone.TimeoutSeconds),
		}
	}
	if domain.Hyperlane != nil {
		target.Hyperlane = &routingentities.HyperlaneRoute{
			MailboxAddress: domain.Hyperlane.MailboxAddress,
			DomainID:       domain.Hyperlane.DomainID,
		}
	}

	module, err := rt.newProcessor(ctx, orchv1.ExternalDomain(domain.Name), domain.ProcessorAddress, bridgeCallbackSender{
		routing: rt.routing.Service,
		domain:  domain.Name,
		bus:     rt.bus,
	})
	if err != nil {
		return err
	}
	rt.directory.Register(domain.ProcessorAddress, module.Service)
	rt.registerTick(module.Service)

	switch domain.Environment {
	case authentities.EnvironmentCosmwasm:
		target.Environment = routingentities.EnvironmentCosmwasm
		voice := routingworkers.PolytoneVoice{
			Routes:     rt.routing.Store,
			Processors: rt.directory,
			Publisher:  rt.routing.Service,
			Clock:      rt.routing.Store,
			Logger:     rt.logger,
		}
		group := "polytone-voice-" + domain.Name + "-cg"
		if err := rt.bus.Subscribe(rt.subCtx, routingapp.PolytoneExecuteTopic(domain.Name), group, voice.Handle); err != nil {
			return err
		}
		return rt.routing.Service.RouteProxyCreation(ctx, target)
	case authentities.EnvironmentEvm:
		target.Environment = routingentities.EnvironmentEVM
		mailbox := routingworkers.HyperlaneMailbox{
			Routes:     rt.routing.Store,
			Processors: rt.directory,
			Publisher:  rt.routing.Service,
			Logger:     rt.logger,
		}
		group := "hyperlane-mailbox-" + domain.Name + "-cg"
		if err := rt.bus.Subscribe(rt.subCtx, routingapp.HyperlaneDispatchTopic(domain.Hyperlane.DomainID), group, mailbox.Handle); err != nil {
			return err
		}
		return rt.routing.Service.RegisterRoute(ctx, target)
	default:
		return fmt.Errorf("unsupported execution environment %q", domain.Environment)
	}
}

// runLoop drives the periodic workers: one tick per processor and the
// registry outbox relay.
func (rt *Runtime) runLoop(ctx context.Context) error {
	interval := time.Duration(rt.cfg.TickIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if rt.cfg.EnableTickKeeper {
			for _, keeper := range rt.tickKeepers() {
				if err := keeper.RunOnce(ctx); err != nil {
					return err
				}
			}
		}
		if rt.cfg.EnableOutboxRelay {
			if err := rt.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (rt *Runtime) tickKeepers() []procworkers.TickKeeper {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	keepers := make([]procworkers.TickKeeper, len(rt.ticks))
	copy(keepers, rt.ticks)
	return keepers
}

func (rt *Runtime) Close() error {
	if rt.postgres != nil {
		return rt.postgres.Close()
	}
	return nil
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	rt, err := newRuntime(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(rt.authorization, rt.mainProcessor, rt.routing, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:  server,
		runtime: rt,
		logger:  logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	rt, err := newRuntime(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{runtime: rt, logger: logger}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.runtime.cfg.EnableTickKeeper || a.runtime.cfg.EnableOutboxRelay {
		go func() {
			if err := a.runtime.runLoop(ctx); err != nil {
				a.logger.Error("background worker loop stopped",
					"event", "bootstrap_worker_loop_stopped",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}()
	}
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *APIApp) Close() error {
	return a.runtime.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"tick_interval_seconds", w.runtime.cfg.TickIntervalSeconds,
	)
	return w.runtime.runLoop(ctx)
}

func (w *WorkerApp) Close() error {
	return w.runtime.Close()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
