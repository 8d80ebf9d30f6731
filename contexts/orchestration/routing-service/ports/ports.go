package ports

import (
	"context"
	"time"

	"maestro/contexts/orchestration/routing-service/domain/entities"
	eventsv1 "maestro/contracts/gen/events/v1"
	orchv1 "maestro/contracts/orchestration/v1"
)

// RouteTable persists the external domains the router knows about and
// their proxy status.
type RouteTable interface {
	PutTarget(ctx context.Context, target entities.RouteTarget) error
	GetTarget(ctx context.Context, name string) (entities.RouteTarget, error)
	MarkProxyCreated(ctx context.Context, name string) error
	ListTargets(ctx context.Context) ([]entities.RouteTarget, error)
}

// ProcessorGateway hands a control message to a processor instance
// addressed by its contract address.
type ProcessorGateway interface {
	DeliverMessage(ctx context.Context, processorAddress string, caller string, msg orchv1.ProcessorMessage) error
}

// BridgePublisher pushes bridge envelopes onto the bus. Publication is
// fire-and-forget; delivery is not guaranteed.
type BridgePublisher interface {
	Publish(ctx context.Context, topic string, envelope eventsv1.Envelope) error
}

// AuthorizationGateway delivers relayed callbacks into the authorization
// registry under the relayer identity.
type AuthorizationGateway interface {
	DeliverCallback(ctx context.Context, caller string, callback orchv1.ExecutionCallback) error
	DeliverProxyCallback(ctx context.Context, caller string, callback orchv1.ProxyCallback) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
