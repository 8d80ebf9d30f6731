package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	authapp "maestro/contexts/orchestration/authorization-service/application"
	authentities "maestro/contexts/orchestration/authorization-service/domain/entities"
	authports "maestro/contexts/orchestration/authorization-service/ports"
	procapp "maestro/contexts/orchestration/processor-service/application"
	routingentities "maestro/contexts/orchestration/routing-service/domain/entities"
	eventsv1 "maestro/contracts/gen/events/v1"
	orchv1 "maestro/contracts/orchestration/v1"
	"maestro/internal/platform/messaging"

	"github.com/google/uuid"
)

// ConfirmationTopic carries confirmation requests raised by processors
// for functions that gate on an external party's approval.
const ConfirmationTopic = "processor.confirmations"

// processorDirectory resolves processor contract addresses to the
// in-process service instances behind them. It is the local stand-in for
// on-chain message delivery.
type processorDirectory struct {
	mu       sync.RWMutex
	services map[string]procapp.Service
}

func newProcessorDirectory() *processorDirectory {
	return &processorDirectory{services: make(map[string]procapp.Service)}
}

func (d *processorDirectory) Register(address string, service procapp.Service) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.services[address] = service
}

func (d *processorDirectory) DeliverMessage(ctx context.Context, processorAddress string, caller string, msg orchv1.ProcessorMessage) error {
	d.mu.RLock()
	service, ok := d.services[processorAddress]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no processor at address %q", processorAddress)
	}
	return service.HandleMessage(ctx, caller, msg)
}

// registryGateway delivers relayed bridge callbacks into the
// authorization registry.
type registryGateway struct {
	authorization authapp.Service
}

func (g registryGateway) DeliverCallback(ctx context.Context, caller string, callback orchv1.ExecutionCallback) error {
	return g.authorization.Callback(ctx, caller, callback)
}

func (g registryGateway) DeliverProxyCallback(ctx context.Context, caller string, callback orchv1.ProxyCallback) error {
	return g.authorization.ProxyCallback(ctx, caller, callback)
}

// domainRouter adapts the routing module to the registry's router port.
// Domain registration also provisions the processor instance and bridge
// consumers for the new domain.
type domainRouter struct {
	runtime *Runtime
}

func (r domainRouter) RouteProcessorMessage(ctx context.Context, domain orchv1.Domain, msg orchv1.ProcessorMessage) error {
	return r.runtime.routing.Service.RouteProcessorMessage(ctx, domain, msg)
}

func (r domainRouter) RegisterDomain(ctx context.Context, domain authentities.ExternalDomain) error {
	return r.runtime.provisionDomain(ctx, domain)
}

// outboxBusPublisher relays registry outbox rows onto the event bus.
type outboxBusPublisher struct {
	bus *messaging.Bus
}

func (p outboxBusPublisher) Publish(ctx context.Context, topic string, event authports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, eventsv1.Envelope{
		EventID:          event.EventID,
		EventType:        event.EventType,
		OccurredAt:       event.OccurredAt,
		SourceService:    event.SourceService,
		TraceID:          event.TraceID,
		SchemaVersion:    event.SchemaVersion,
		PartitionKeyPath: event.PartitionKeyPath,
		PartitionKey:     event.PartitionKey,
		Data:             event.Data,
	})
}

// confirmationRequest is the payload published for a function awaiting
// an external confirmation before its batch may advance.
type confirmationRequest struct {
	Domain      string          `json:"domain"`
	ExecutionID uint64          `json:"execution_id"`
	Address     string          `json:"address"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

func publishConfirmation(ctx context.Context, bus *messaging.Bus, domain string, executionID uint64, address string, payload json.RawMessage) error {
	data, err := json.Marshal(confirmationRequest{
		Domain:      domain,
		ExecutionID: executionID,
		Address:     address,
		Payload:     payload,
	})
	if err != nil {
		return err
	}
	return bus.Publish(ctx, ConfirmationTopic, eventsv1.Envelope{
		EventID:          uuid.NewString(),
		EventType:        "orchestration.processor.confirmation_requested",
		OccurredAt:       time.Now().UTC(),
		SourceService:    "orchestration/processor-service",
		SchemaVersion:    1,
		PartitionKeyPath: "address",
		PartitionKey:     address,
		Data:             data,
	})
}

// mainCallbackSender settles main-domain executions directly against the
// registry. The registry only accepts main-domain callbacks from the
// main processor identity.
type mainCallbackSender struct {
	authorization authapp.Service
	caller        string
	bus           *messaging.Bus
}

func (s mainCallbackSender) SendCallback(ctx context.Context, callback orchv1.ExecutionCallback) error {
	return s.authorization.Callback(ctx, s.caller, callback)
}

func (s mainCallbackSender) RequestConfirmation(ctx context.Context, executionID uint64, address string, payload json.RawMessage) error {
	return publishConfirmation(ctx, s.bus, "main", executionID, address, payload)
}

// bridgeCallbackSender reports external-domain execution results back
// over the bridge callback topic; the relay worker delivers them to the
// registry under the domain's callback origin.
type bridgeCallbackSender struct {
	routing callbackPublisher
	domain  string
	bus     *messaging.Bus
}

type callbackPublisher interface {
	PublishCallback(ctx context.Context, payload routingentities.BridgeCallbackPayload) error
}

func (s bridgeCallbackSender) SendCallback(ctx context.Context, callback orchv1.ExecutionCallback) error {
	return s.routing.PublishCallback(ctx, routingentities.BridgeCallbackPayload{
		Kind:      routingentities.BridgeCallbackExecution,
		Domain:    s.domain,
		Execution: &callback,
	})
}

func (s bridgeCallbackSender) RequestConfirmation(ctx context.Context, executionID uint64, address string, payload json.RawMessage) error {
	return publishConfirmation(ctx, s.bus, s.domain, executionID, address, payload)
}
