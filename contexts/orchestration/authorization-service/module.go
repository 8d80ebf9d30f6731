package authorizationservice

import (
	"log/slog"

	httpadapter "maestro/contexts/orchestration/authorization-service/adapters/http"
	"maestro/contexts/orchestration/authorization-service/adapters/memory"
	"maestro/contexts/orchestration/authorization-service/application"
	"maestro/contexts/orchestration/authorization-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Repository    ports.Repository
	CallbackDedup ports.CallbackDedup
	Outbox        ports.OutboxWriter
	Router        ports.Router
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	Owner         string
	MainProcessor string
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:          deps.Repository,
		Dedup:         deps.CallbackDedup,
		Outbox:        deps.Outbox,
		Router:        deps.Router,
		Clock:         deps.Clock,
		IDGen:         deps.IDGenerator,
		Owner:         deps.Owner,
		MainProcessor: deps.MainProcessor,
		Logger:        deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

func NewInMemoryModule(router ports.Router, owner string, mainProcessor string, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:    store,
		CallbackDedup: store,
		Outbox:        store,
		Router:        router,
		Clock:         store,
		IDGenerator:   store,
		Owner:         owner,
		MainProcessor: mainProcessor,
		Logger:        logger,
	})
	module.Store = store
	return module
}
