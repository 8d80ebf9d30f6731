package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"maestro/contexts/orchestration/routing-service/adapters/memory"
	"maestro/contexts/orchestration/routing-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/routing-service/domain/errors"
	eventsv1 "maestro/contracts/gen/events/v1"
	orchv1 "maestro/contracts/orchestration/v1"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type deliveredMessage struct {
	Address string
	Caller  string
	Msg     orchv1.ProcessorMessage
}

type recordingGateway struct {
	delivered []deliveredMessage
}

func (g *recordingGateway) DeliverMessage(_ context.Context, address string, caller string, msg orchv1.ProcessorMessage) error {
	g.delivered = append(g.delivered, deliveredMessage{Address: address, Caller: caller, Msg: msg})
	return nil
}

type publishedEnvelope struct {
	Topic    string
	Envelope eventsv1.Envelope
}

type recordingBus struct {
	published []publishedEnvelope
}

func (b *recordingBus) Publish(_ context.Context, topic string, envelope eventsv1.Envelope) error {
	b.published = append(b.published, publishedEnvelope{Topic: topic, Envelope: envelope})
	return nil
}

type routerFixture struct {
	store   *memory.Store
	gateway *recordingGateway
	bus     *recordingBus
	clock   *fakeClock
	service Service
}

func newRouterFixture() *routerFixture {
	store := memory.NewStore()
	gateway := &recordingGateway{}
	bus := &recordingBus{}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return &routerFixture{
		store:   store,
		gateway: gateway,
		bus:     bus,
		clock:   clock,
		service: Service{
			Routes:                store,
			Mains:                 gateway,
			Bus:                   bus,
			Clock:                 clock,
			MainProcessorAddress:  "main-processor",
			AuthorizationContract: "authorization",
		},
	}
}

func cosmwasmTarget(name string) entities.RouteTarget {
	return entities.RouteTarget{
		Name:             name,
		Environment:      entities.EnvironmentCosmwasm,
		ProcessorAddress: "processor-" + name,
		CallbackOrigin:   "relayer-" + name,
		Caller:           "authorization",
		Polytone: &entities.PolytoneRoute{
			NoteAddress:    "note-" + name,
			VoiceAddress:   "voice-" + name,
			TimeoutSeconds: 300,
		},
	}
}

func evmTarget(name string, domainID uint32) entities.RouteTarget {
	return entities.RouteTarget{
		Name:             name,
		Environment:      entities.EnvironmentEVM,
		ProcessorAddress: "processor-" + name,
		CallbackOrigin:   "relayer-" + name,
		Caller:           "authorization",
		Hyperlane: &entities.HyperlaneRoute{
			MailboxAddress: "mailbox-" + name,
			DomainID:       domainID,
		},
	}
}

func sendMessage(executionID uint64) orchv1.ProcessorMessage {
	return orchv1.SendMsgsMessage(orchv1.MessageBatch{
		ExecutionID: executionID,
		Messages:    []orchv1.Message{{Type: orchv1.MessageTypeExecute, Body: json.RawMessage(`{}`)}},
		Subroutine: orchv1.Subroutine{
			Kind: orchv1.SubroutineAtomic,
			Atomic: &orchv1.AtomicSubroutine{Functions: []orchv1.AtomicFunction{{
				Domain:          orchv1.ExternalDomain("neutron"),
				ContractAddress: "vault",
				MessageDetails:  orchv1.MessageDetails{Type: orchv1.MessageTypeExecute},
			}}},
		},
		Priority: orchv1.PriorityMedium,
	})
}

func TestRegisterRouteValidation(t *testing.T) {
	f := newRouterFixture()
	ctx := context.Background()

	bare := cosmwasmTarget("neutron")
	bare.Polytone = nil
	err := f.service.RegisterRoute(ctx, bare)
	if !errors.Is(err, domainerrors.ErrMissingBridgeConfig) {
		t.Fatalf("cosmwasm without polytone: got %v, want ErrMissingBridgeConfig", err)
	}

	noMailbox := evmTarget("base", 8453)
	noMailbox.Hyperlane = nil
	err = f.service.RegisterRoute(ctx, noMailbox)
	if !errors.Is(err, domainerrors.ErrMissingBridgeConfig) {
		t.Fatalf("evm without hyperlane: got %v, want ErrMissingBridgeConfig", err)
	}

	odd := cosmwasmTarget("solana")
	odd.Environment = entities.Environment("svm")
	err = f.service.RegisterRoute(ctx, odd)
	if !errors.Is(err, domainerrors.ErrUnsupportedEnvironment) {
		t.Fatalf("unsupported environment: got %v, want ErrUnsupportedEnvironment", err)
	}

	if err := f.service.RegisterRoute(ctx, cosmwasmTarget("neutron")); err != nil {
		t.Fatalf("RegisterRoute: %v", err)
	}
	err = f.service.RegisterRoute(ctx, cosmwasmTarget("neutron"))
	if !errors.Is(err, domainerrors.ErrDuplicateRoute) {
		t.Fatalf("duplicate route: got %v, want ErrDuplicateRoute", err)
	}
}

func TestRouteMainDomainIsDirect(t *testing.T) {
	f := newRouterFixture()

	dispatch, err := f.service.Route(context.Background(), orchv1.MainDomain(), sendMessage(1))
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dispatch.Kind != entities.DispatchDirect || dispatch.Direct == nil {
		t.Fatalf("dispatch = %+v, want direct", dispatch)
	}
	if dispatch.Direct.ProcessorAddress != "main-processor" || dispatch.Direct.Caller != "authorization" {
		t.Fatalf("direct leg = %+v, want main processor called by authorization", dispatch.Direct)
	}

	if err := f.service.Deliver(context.Background(), dispatch); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(f.gateway.delivered) != 1 || f.gateway.delivered[0].Msg.Kind != orchv1.ProcessorSendMsgs {
		t.Fatalf("delivered = %+v, want one send_msgs", f.gateway.delivered)
	}
}

func TestRoutePolytoneRequiresCreatedProxy(t *testing.T) {
	f := newRouterFixture()
	ctx := context.Background()

	_, err := f.service.Route(ctx, orchv1.ExternalDomain("neutron"), sendMessage(1))
	if !errors.Is(err, domainerrors.ErrUnknownRoute) {
		t.Fatalf("unregistered domain: got %v, want ErrUnknownRoute", err)
	}

	if err := f.service.RegisterRoute(ctx, cosmwasmTarget("neutron")); err != nil {
		t.Fatalf("RegisterRoute: %v", err)
	}
	_, err = f.service.Route(ctx, orchv1.ExternalDomain("neutron"), sendMessage(1))
	if !errors.Is(err, domainerrors.ErrProxyNotCreated) {
		t.Fatalf("proxy pending: got %v, want ErrProxyNotCreated", err)
	}

	if err := f.store.MarkProxyCreated(ctx, "neutron"); err != nil {
		t.Fatalf("MarkProxyCreated: %v", err)
	}
	dispatch, err := f.service.Route(ctx, orchv1.ExternalDomain("neutron"), sendMessage(7))
	if err != nil {
		t.Fatalf("Route after proxy: %v", err)
	}
	if dispatch.Kind != entities.DispatchPolytone || dispatch.Polytone == nil {
		t.Fatalf("dispatch = %+v, want polytone", dispatch)
	}
	if dispatch.Polytone.NoteAddress != "note-neutron" || dispatch.Polytone.Msg == nil {
		t.Fatalf("polytone leg = %+v, want note-neutron carrying the message", dispatch.Polytone)
	}
}

func TestDeliverPolytonePublishesExecuteEnvelope(t *testing.T) {
	f := newRouterFixture()
	ctx := context.Background()

	if err := f.service.RegisterRoute(ctx, cosmwasmTarget("neutron")); err != nil {
		t.Fatalf("RegisterRoute: %v", err)
	}
	if err := f.store.MarkProxyCreated(ctx, "neutron"); err != nil {
		t.Fatalf("MarkProxyCreated: %v", err)
	}
	if err := f.service.RouteProcessorMessage(ctx, orchv1.ExternalDomain("neutron"), sendMessage(7)); err != nil {
		t.Fatalf("RouteProcessorMessage: %v", err)
	}

	if len(f.bus.published) != 1 {
		t.Fatalf("published %d envelopes, want 1", len(f.bus.published))
	}
	published := f.bus.published[0]
	if published.Topic != PolytoneExecuteTopic("neutron") {
		t.Fatalf("topic = %s, want %s", published.Topic, PolytoneExecuteTopic("neutron"))
	}

	var payload entities.PolytoneExecutePayload
	if err := json.Unmarshal(published.Envelope.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Msg == nil || payload.Msg.Batch.ExecutionID != 7 {
		t.Fatalf("payload = %+v, want execution 7", payload)
	}
	if payload.TimeoutSeconds != 300 || !payload.SentAt.Equal(f.clock.now) {
		t.Fatalf("payload timing = %d at %s, want 300s from the clock", payload.TimeoutSeconds, payload.SentAt)
	}
}

func TestDeliverHyperlaneCarriesOpaqueBody(t *testing.T) {
	f := newRouterFixture()
	ctx := context.Background()

	if err := f.service.RegisterRoute(ctx, evmTarget("base", 8453)); err != nil {
		t.Fatalf("RegisterRoute: %v", err)
	}
	// EVM routes need no proxy handshake.
	if err := f.service.RouteProcessorMessage(ctx, orchv1.ExternalDomain("base"), sendMessage(9)); err != nil {
		t.Fatalf("RouteProcessorMessage: %v", err)
	}

	published := f.bus.published[0]
	if published.Topic != HyperlaneDispatchTopic(8453) {
		t.Fatalf("topic = %s, want %s", published.Topic, HyperlaneDispatchTopic(8453))
	}
	var payload entities.HyperlaneDispatchPayload
	if err := json.Unmarshal(published.Envelope.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Recipient != "processor-base" || payload.DomainID != 8453 {
		t.Fatalf("payload = %+v, want processor-base on 8453", payload)
	}

	var msg orchv1.ProcessorMessage
	if err := json.Unmarshal(payload.Body, &msg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if msg.Kind != orchv1.ProcessorSendMsgs || msg.Batch.ExecutionID != 9 {
		t.Fatalf("body message = %+v, want send_msgs execution 9", msg)
	}
}

func TestRouteProxyCreationIssuesEmptyCall(t *testing.T) {
	f := newRouterFixture()
	ctx := context.Background()

	if err := f.service.RouteProxyCreation(ctx, cosmwasmTarget("neutron")); err != nil {
		t.Fatalf("RouteProxyCreation: %v", err)
	}

	if _, err := f.store.GetTarget(ctx, "neutron"); err != nil {
		t.Fatalf("GetTarget: %v", err)
	}
	if len(f.bus.published) != 1 {
		t.Fatalf("published %d envelopes, want 1", len(f.bus.published))
	}
	var payload entities.PolytoneExecutePayload
	if err := json.Unmarshal(f.bus.published[0].Envelope.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Msg != nil {
		t.Fatalf("proxy-creation payload carries a message: %+v", payload.Msg)
	}

	// EVM targets register without any bridge traffic.
	if err := f.service.RouteProxyCreation(ctx, evmTarget("base", 8453)); err != nil {
		t.Fatalf("RouteProxyCreation evm: %v", err)
	}
	if len(f.bus.published) != 1 {
		t.Fatalf("published %d envelopes after evm registration, want still 1", len(f.bus.published))
	}
}

func TestPublishCallbackUsesSharedTopic(t *testing.T) {
	f := newRouterFixture()

	err := f.service.PublishCallback(context.Background(), entities.BridgeCallbackPayload{
		Kind:   entities.BridgeCallbackExecution,
		Domain: "neutron",
		Execution: &orchv1.ExecutionCallback{
			ExecutionID: 4,
			Result:      orchv1.SuccessResult(),
			DomainName:  "neutron",
		},
	})
	if err != nil {
		t.Fatalf("PublishCallback: %v", err)
	}

	published := f.bus.published[0]
	if published.Topic != CallbackTopic {
		t.Fatalf("topic = %s, want %s", published.Topic, CallbackTopic)
	}
	if published.Envelope.PartitionKey != "neutron" {
		t.Fatalf("partition key = %s, want neutron", published.Envelope.PartitionKey)
	}
}
