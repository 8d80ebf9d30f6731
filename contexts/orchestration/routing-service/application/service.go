package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maestro/contexts/orchestration/routing-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/routing-service/domain/errors"
	"maestro/contexts/orchestration/routing-service/ports"
	eventsv1 "maestro/contracts/gen/events/v1"
	orchv1 "maestro/contracts/orchestration/v1"
)

// Topic layout of the bridge legs. One execute topic per CosmWasm domain,
// one dispatch topic per Hyperlane domain id, one shared callback topic
// back to the main domain.
const (
	CallbackTopic = "bridge.callback"

	polytoneExecuteTopicFormat  = "polytone.%s.execute"
	hyperlaneDispatchTopicFmt   = "hyperlane.%d.dispatch"
	eventTypePolytoneExecute    = "polytone.execute"
	eventTypeHyperlaneDispatch  = "hyperlane.dispatch"
	eventTypeBridgeCallback     = "bridge.callback"
	bridgeEnvelopeSchemaVersion = 1
)

// PolytoneExecuteTopic names the execute topic of one CosmWasm domain.
func PolytoneExecuteTopic(domainName string) string {
	return fmt.Sprintf(polytoneExecuteTopicFormat, domainName)
}

// HyperlaneDispatchTopic names the dispatch topic of one EVM domain id.
func HyperlaneDispatchTopic(domainID uint32) string {
	return fmt.Sprintf(hyperlaneDispatchTopicFmt, domainID)
}

// Service is the domain router: a pure routing core that turns processor
// messages into transport dispatches, plus the delivery legs over the
// in-process gateways and the bridge bus.
type Service struct {
	Routes ports.RouteTable
	Mains  ports.ProcessorGateway
	Bus    ports.BridgePublisher
	Clock  ports.Clock
	IDGen  ports.IDGenerator

	// MainProcessorAddress is where direct dispatches land.
	MainProcessorAddress string
	// AuthorizationContract is the control caller identity carried on
	// every dispatched message.
	AuthorizationContract string
	Logger                *slog.Logger
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

// RegisterRoute adds an external domain to the route table. CosmWasm
// targets start unreachable until their proxy callback arrives.
func (s Service) RegisterRoute(ctx context.Context, target entities.RouteTarget) error {
	target.Name = strings.TrimSpace(target.Name)
	if target.Name == "" {
		return fmt.Errorf("%w: route name is required", domainerrors.ErrInvalidDispatch)
	}
	switch target.Environment {
	case entities.EnvironmentCosmwasm:
		if target.Polytone == nil {
			return domainerrors.ErrMissingBridgeConfig
		}
	case entities.EnvironmentEVM:
		if target.Hyperlane == nil {
			return domainerrors.ErrMissingBridgeConfig
		}
	default:
		return domainerrors.ErrUnsupportedEnvironment
	}
	if _, err := s.Routes.GetTarget(ctx, target.Name); err == nil {
		return domainerrors.ErrDuplicateRoute
	}
	target.RegisteredAt = s.now()
	if err := s.Routes.PutTarget(ctx, target); err != nil {
		return err
	}
	s.logger().Info("route registered",
		"event", "routing_route_registered",
		"module", "contexts/orchestration/routing-service",
		"layer", "application",
		"domain", target.Name,
		"environment", string(target.Environment),
	)
	return nil
}

// Route maps one processor message to its transport dispatch without
// delivering it.
func (s Service) Route(ctx context.Context, domain orchv1.Domain, msg orchv1.ProcessorMessage) (entities.Dispatch, error) {
	if domain.IsMain() {
		return entities.Dispatch{
			Kind: entities.DispatchDirect,
			Direct: &entities.DirectDispatch{
				ProcessorAddress: s.MainProcessorAddress,
				Caller:           s.AuthorizationContract,
				Msg:              msg,
			},
		}, nil
	}

	target, err := s.Routes.GetTarget(ctx, domain.Name)
	if err != nil {
		return entities.Dispatch{}, err
	}
	if !target.Reachable() {
		return entities.Dispatch{}, domainerrors.ErrProxyNotCreated
	}

	switch target.Environment {
	case entities.EnvironmentCosmwasm:
		return entities.Dispatch{
			Kind: entities.DispatchPolytone,
			Polytone: &entities.PolytoneDispatch{
				NoteAddress:    target.Polytone.NoteAddress,
				DomainName:     target.Name,
				Caller:         s.AuthorizationContract,
				Msg:            &msg,
				TimeoutSeconds: target.Polytone.TimeoutSeconds,
			},
		}, nil
	case entities.EnvironmentEVM:
		body, err := json.Marshal(msg)
		if err != nil {
			return entities.Dispatch{}, err
		}
		return entities.Dispatch{
			Kind: entities.DispatchHyperlane,
			Hyperlane: &entities.HyperlaneDispatch{
				MailboxAddress:      target.Hyperlane.MailboxAddress,
				DestinationDomainID: target.Hyperlane.DomainID,
				DomainName:          target.Name,
				Recipient:           target.ProcessorAddress,
				Caller:              s.AuthorizationContract,
				Body:                body,
			},
		}, nil
	default:
		return entities.Dispatch{}, domainerrors.ErrUnsupportedEnvironment
	}
}

// Deliver executes one dispatch leg. Bridge legs are fire-and-forget
// publishes; the resumption arrives later as a separate inbound delivery.
func (s Service) Deliver(ctx context.Context, dispatch entities.Dispatch) error {
	switch dispatch.Kind {
	case entities.DispatchDirect:
		if dispatch.Direct == nil {
			return domainerrors.ErrInvalidDispatch
		}
		return s.Mains.DeliverMessage(ctx, dispatch.Direct.ProcessorAddress, dispatch.Direct.Caller, dispatch.Direct.Msg)
	case entities.DispatchPolytone:
		if dispatch.Polytone == nil {
			return domainerrors.ErrInvalidDispatch
		}
		payload := entities.PolytoneExecutePayload{
			DomainName:     dispatch.Polytone.DomainName,
			Caller:         dispatch.Polytone.Caller,
			Msg:            dispatch.Polytone.Msg,
			TimeoutSeconds: dispatch.Polytone.TimeoutSeconds,
			SentAt:         s.now(),
		}
		return s.publish(ctx, PolytoneExecuteTopic(dispatch.Polytone.DomainName), eventTypePolytoneExecute, dispatch.Polytone.DomainName, payload)
	case entities.DispatchHyperlane:
		if dispatch.Hyperlane == nil {
			return domainerrors.ErrInvalidDispatch
		}
		payload := entities.HyperlaneDispatchPayload{
			DomainName: dispatch.Hyperlane.DomainName,
			DomainID:   dispatch.Hyperlane.DestinationDomainID,
			Recipient:  dispatch.Hyperlane.Recipient,
			Caller:     dispatch.Hyperlane.Caller,
			Body:       dispatch.Hyperlane.Body,
		}
		return s.publish(ctx, HyperlaneDispatchTopic(dispatch.Hyperlane.DestinationDomainID), eventTypeHyperlaneDispatch, dispatch.Hyperlane.DomainName, payload)
	default:
		return domainerrors.ErrInvalidDispatch
	}
}

// RouteProcessorMessage routes and delivers in one step. This is the
// operation the authorization registry drives.
func (s Service) RouteProcessorMessage(ctx context.Context, domain orchv1.Domain, msg orchv1.ProcessorMessage) error {
	dispatch, err := s.Route(ctx, domain, msg)
	if err != nil {
		return err
	}
	return s.Deliver(ctx, dispatch)
}

// RouteProxyCreation registers a route and issues the empty Polytone call
// that materializes the remote proxy account.
func (s Service) RouteProxyCreation(ctx context.Context, target entities.RouteTarget) error {
	if err := s.RegisterRoute(ctx, target); err != nil {
		return err
	}
	if target.Environment != entities.EnvironmentCosmwasm {
		return nil
	}
	dispatch := entities.Dispatch{
		Kind: entities.DispatchPolytone,
		Polytone: &entities.PolytoneDispatch{
			NoteAddress:    target.Polytone.NoteAddress,
			DomainName:     target.Name,
			Caller:         s.AuthorizationContract,
			TimeoutSeconds: target.Polytone.TimeoutSeconds,
		},
	}
	return s.Deliver(ctx, dispatch)
}

// Routes lists the registered targets.
func (s Service) ListRoutes(ctx context.Context) ([]entities.RouteTarget, error) {
	return s.Routes.ListTargets(ctx)
}

// PublishCallback relays a bridge callback payload onto the shared
// callback topic.
func (s Service) PublishCallback(ctx context.Context, payload entities.BridgeCallbackPayload) error {
	return s.publish(ctx, CallbackTopic, eventTypeBridgeCallback, payload.Domain, payload)
}

func (s Service) publish(ctx context.Context, topic string, eventType string, partitionKey string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	eventID := ""
	if s.IDGen != nil {
		eventID, err = s.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
	}
	envelope := eventsv1.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    s.now(),
		SourceService: "orchestration/routing-service",
		SchemaVersion: bridgeEnvelopeSchemaVersion,
		PartitionKey:  partitionKey,
		Data:          data,
	}
	return s.Bus.Publish(ctx, topic, envelope)
}

func (s Service) logger() *slog.Logger {
	return ResolveLogger(s.Logger)
}
