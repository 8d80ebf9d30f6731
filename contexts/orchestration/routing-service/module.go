package routingservice

import (
	"log/slog"

	httpadapter "maestro/contexts/orchestration/routing-service/adapters/http"
	"maestro/contexts/orchestration/routing-service/adapters/memory"
	"maestro/contexts/orchestration/routing-service/application"
	"maestro/contexts/orchestration/routing-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Routes                ports.RouteTable
	Processors            ports.ProcessorGateway
	Bus                   ports.BridgePublisher
	Clock                 ports.Clock
	IDGenerator           ports.IDGenerator
	MainProcessorAddress  string
	AuthorizationContract string
	Logger                *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Routes:                deps.Routes,
		Mains:                 deps.Processors,
		Bus:                   deps.Bus,
		Clock:                 deps.Clock,
		IDGen:                 deps.IDGenerator,
		MainProcessorAddress:  deps.MainProcessorAddress,
		AuthorizationContract: deps.AuthorizationContract,
		Logger:                deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

// NewInMemoryModule wires the router on the in-memory route table.
// Gateways stay caller-provided because they reach into other modules.
func NewInMemoryModule(
	processors ports.ProcessorGateway,
	bus ports.BridgePublisher,
	mainProcessorAddress string,
	authorizationContract string,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Routes:                store,
		Processors:            processors,
		Bus:                   bus,
		Clock:                 store,
		IDGenerator:           store,
		MainProcessorAddress:  mainProcessorAddress,
		AuthorizationContract: authorizationContract,
		Logger:                logger,
	})
	module.Store = store
	return module
}
