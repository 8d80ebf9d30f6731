package processorservice

import (
	"log/slog"

	httpadapter "maestro/contexts/orchestration/processor-service/adapters/http"
	"maestro/contexts/orchestration/processor-service/adapters/memory"
	"maestro/contexts/orchestration/processor-service/application"
	"maestro/contexts/orchestration/processor-service/domain/entities"
	"maestro/contexts/orchestration/processor-service/ports"
)

type Module struct {
	Handler   httpadapter.Handler
	Service   application.Service
	Store     *memory.Store
	Libraries *memory.LibraryRegistry
}

type Dependencies struct {
	Queue          ports.QueueRepository
	Executor       ports.Executor
	AtomicExecutor ports.AtomicExecutor
	Callbacks      ports.CallbackSender
	Clock          ports.Clock
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Queue:     deps.Queue,
		Exec:      deps.Executor,
		Atomic:    deps.AtomicExecutor,
		Callbacks: deps.Callbacks,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

// NewInMemoryModule wires one processor instance for a domain on the
// in-memory queue and the scripted library registry.
func NewInMemoryModule(config entities.Config, callbacks ports.CallbackSender, logger *slog.Logger) Module {
	store := memory.NewStore(config)
	libraries := memory.NewLibraryRegistry()
	module := NewModule(Dependencies{
		Queue:          store,
		Executor:       libraries,
		AtomicExecutor: libraries,
		Callbacks:      callbacks,
		Clock:          store,
		Logger:         logger,
	})
	module.Store = store
	module.Libraries = libraries
	return module
}
