package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"maestro/contexts/orchestration/routing-service/adapters/memory"
	"maestro/contexts/orchestration/routing-service/domain/entities"
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

type fakeGateway struct {
	delivered []deliveredMessage
	failWith  error
}

func (g *fakeGateway) DeliverMessage(_ context.Context, address string, caller string, msg orchv1.ProcessorMessage) error {
	if g.failWith != nil {
		return g.failWith
	}
	g.delivered = append(g.delivered, deliveredMessage{Address: address, Caller: caller, Msg: msg})
	return nil
}

type recordingPublisher struct {
	payloads []entities.BridgeCallbackPayload
}

func (p *recordingPublisher) PublishCallback(_ context.Context, payload entities.BridgeCallbackPayload) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

type recordedCallback struct {
	Caller    string
	Execution *orchv1.ExecutionCallback
	Proxy     *orchv1.ProxyCallback
}

type fakeAuthorizationGateway struct {
	callbacks []recordedCallback
}

func (g *fakeAuthorizationGateway) DeliverCallback(_ context.Context, caller string, callback orchv1.ExecutionCallback) error {
	g.callbacks = append(g.callbacks, recordedCallback{Caller: caller, Execution: &callback})
	return nil
}

func (g *fakeAuthorizationGateway) DeliverProxyCallback(_ context.Context, caller string, callback orchv1.ProxyCallback) error {
	g.callbacks = append(g.callbacks, recordedCallback{Caller: caller, Proxy: &callback})
	return nil
}

func registeredRoutes(t *testing.T, name string) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	err := store.PutTarget(context.Background(), entities.RouteTarget{
		Name:             name,
		Environment:      entities.EnvironmentCosmwasm,
		ProcessorAddress: "processor-" + name,
		CallbackOrigin:   "relayer-" + name,
		Polytone: &entities.PolytoneRoute{
			NoteAddress:    "note-" + name,
			TimeoutSeconds: 300,
		},
	})
	if err != nil {
		t.Fatalf("PutTarget: %v", err)
	}
	return store
}

func polytoneEnvelope(t *testing.T, payload entities.PolytoneExecutePayload) eventsv1.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return eventsv1.Envelope{EventType: "polytone.execute", Data: data}
}

func sendPayload(executionID uint64, sentAt time.Time) entities.PolytoneExecutePayload {
	msg := orchv1.SendMsgsMessage(orchv1.MessageBatch{
		ExecutionID: executionID,
		Messages:    []orchv1.Message{{Type: orchv1.MessageTypeExecute, Body: json.RawMessage(`{}`)}},
	})
	return entities.PolytoneExecutePayload{
		DomainName:     "neutron",
		Caller:         "authorization",
		Msg:            &msg,
		TimeoutSeconds: 300,
		SentAt:         sentAt,
	}
}

func TestPolytoneVoiceMaterializesProxyOnEmptyCall(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	routes := registeredRoutes(t, "neutron")
	publisher := &recordingPublisher{}
	voice := PolytoneVoice{
		Routes:     routes,
		Processors: &fakeGateway{},
		Publisher:  publisher,
		Clock:      &fakeClock{now: now},
	}

	envelope := polytoneEnvelope(t, entities.PolytoneExecutePayload{
		DomainName:     "neutron",
		Caller:         "authorization",
		TimeoutSeconds: 300,
		SentAt:         now,
	})
	if err := voice.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	target, err := routes.GetTarget(context.Background(), "neutron")
	if err != nil {
		t.Fatalf("GetTarget: %v", err)
	}
	if !target.ProxyCreated {
		t.Fatal("proxy not marked created")
	}
	if len(publisher.payloads) != 1 || publisher.payloads[0].Kind != entities.BridgeCallbackProxy {
		t.Fatalf("payloads = %+v, want one proxy callback", publisher.payloads)
	}
	if publisher.payloads[0].Proxy.Outcome != orchv1.ProxyCreated {
		t.Fatalf("outcome = %s, want created", publisher.payloads[0].Proxy.Outcome)
	}
}

func TestPolytoneVoiceForwardsControlMessages(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gateway := &fakeGateway{}
	voice := PolytoneVoice{
		Routes:     registeredRoutes(t, "neutron"),
		Processors: gateway,
		Publisher:  &recordingPublisher{},
		Clock:      &fakeClock{now: now},
	}

	envelope := polytoneEnvelope(t, sendPayload(7, now.Add(-time.Minute)))
	if err := voice.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(gateway.delivered) != 1 {
		t.Fatalf("delivered %d messages, want 1", len(gateway.delivered))
	}
	got := gateway.delivered[0]
	if got.Address != "processor-neutron" || got.Caller != "authorization" {
		t.Fatalf("delivery = %+v, want processor-neutron from authorization", got)
	}
	if got.Msg.Batch.ExecutionID != 7 {
		t.Fatalf("execution id = %d, want 7", got.Msg.Batch.ExecutionID)
	}
}

func TestPolytoneVoiceRejectsStaleEnvelopes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gateway := &fakeGateway{}
	publisher := &recordingPublisher{}
	voice := PolytoneVoice{
		Routes:     registeredRoutes(t, "neutron"),
		Processors: gateway,
		Publisher:  publisher,
		Clock:      &fakeClock{now: now},
	}

	// Sent 301 seconds ago against a 300 second timeout.
	envelope := polytoneEnvelope(t, sendPayload(7, now.Add(-301*time.Second)))
	if err := voice.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(gateway.delivered) != 0 {
		t.Fatalf("stale envelope was delivered: %+v", gateway.delivered)
	}
	if len(publisher.payloads) != 1 || publisher.payloads[0].Kind != entities.BridgeCallbackExecution {
		t.Fatalf("payloads = %+v, want one execution callback", publisher.payloads)
	}
	callback := publisher.payloads[0].Execution
	if callback.ExecutionID != 7 || callback.Result.Kind != orchv1.ResultRejected {
		t.Fatalf("callback = %+v, want rejected execution 7", callback)
	}
}

func TestPolytoneVoiceStaleEmptyCallReportsProxyTimeout(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	routes := registeredRoutes(t, "neutron")
	publisher := &recordingPublisher{}
	voice := PolytoneVoice{
		Routes:     routes,
		Processors: &fakeGateway{},
		Publisher:  publisher,
		Clock:      &fakeClock{now: now},
	}

	envelope := polytoneEnvelope(t, entities.PolytoneExecutePayload{
		DomainName:     "neutron",
		Caller:         "authorization",
		TimeoutSeconds: 300,
		SentAt:         now.Add(-time.Hour),
	})
	if err := voice.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	target, _ := routes.GetTarget(context.Background(), "neutron")
	if target.ProxyCreated {
		t.Fatal("stale empty call still materialized the proxy")
	}
	if len(publisher.payloads) != 1 || publisher.payloads[0].Proxy.Outcome != orchv1.ProxyTimedOut {
		t.Fatalf("payloads = %+v, want one timed_out proxy callback", publisher.payloads)
	}
}

func TestPolytoneVoiceReportsDeliveryFailureAsRejection(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	publisher := &recordingPublisher{}
	voice := PolytoneVoice{
		Routes:     registeredRoutes(t, "neutron"),
		Processors: &fakeGateway{failWith: errors.New("processor paused")},
		Publisher:  publisher,
		Clock:      &fakeClock{now: now},
	}

	envelope := polytoneEnvelope(t, sendPayload(7, now))
	if err := voice.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(publisher.payloads) != 1 {
		t.Fatalf("payloads = %+v, want one execution callback", publisher.payloads)
	}
	callback := publisher.payloads[0].Execution
	if callback.Result.Kind != orchv1.ResultRejected || callback.Result.Reason != "bridge: processor paused" {
		t.Fatalf("callback result = %+v, want bridge rejection", callback.Result)
	}
}

func TestHyperlaneMailboxDecodesBodyAndDelivers(t *testing.T) {
	gateway := &fakeGateway{}
	mailbox := HyperlaneMailbox{
		Routes:     memory.NewStore(),
		Processors: gateway,
		Publisher:  &recordingPublisher{},
	}

	msg := orchv1.SendMsgsMessage(orchv1.MessageBatch{ExecutionID: 9})
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	data, err := json.Marshal(entities.HyperlaneDispatchPayload{
		DomainName: "base",
		DomainID:   8453,
		Recipient:  "processor-base",
		Caller:     "authorization",
		Body:       body,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	if err := mailbox.Handle(context.Background(), eventsv1.Envelope{EventType: "hyperlane.dispatch", Data: data}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(gateway.delivered) != 1 {
		t.Fatalf("delivered %d messages, want 1", len(gateway.delivered))
	}
	got := gateway.delivered[0]
	if got.Address != "processor-base" || got.Msg.Batch.ExecutionID != 9 {
		t.Fatalf("delivery = %+v, want execution 9 at processor-base", got)
	}
}

func TestCallbackRelayDeliversUnderRelayerIdentity(t *testing.T) {
	routes := registeredRoutes(t, "neutron")
	authorization := &fakeAuthorizationGateway{}
	relay := CallbackRelay{Routes: routes, Authorization: authorization}

	executionData, err := json.Marshal(entities.BridgeCallbackPayload{
		Kind:   entities.BridgeCallbackExecution,
		Domain: "neutron",
		Execution: &orchv1.ExecutionCallback{
			ExecutionID: 7,
			Result:      orchv1.SuccessResult(),
			DomainName:  "neutron",
		},
	})
	if err != nil {
		t.Fatalf("marshal execution payload: %v", err)
	}
	if err := relay.Handle(context.Background(), eventsv1.Envelope{EventType: "bridge.callback", Data: executionData}); err != nil {
		t.Fatalf("Handle execution: %v", err)
	}

	proxyData, err := json.Marshal(entities.BridgeCallbackPayload{
		Kind:   entities.BridgeCallbackProxy,
		Domain: "neutron",
		Proxy: &orchv1.ProxyCallback{
			DomainName: "neutron",
			Outcome:    orchv1.ProxyCreated,
		},
	})
	if err != nil {
		t.Fatalf("marshal proxy payload: %v", err)
	}
	if err := relay.Handle(context.Background(), eventsv1.Envelope{EventType: "bridge.callback", Data: proxyData}); err != nil {
		t.Fatalf("Handle proxy: %v", err)
	}

	if len(authorization.callbacks) != 2 {
		t.Fatalf("relayed %d callbacks, want 2", len(authorization.callbacks))
	}
	for i, callback := range authorization.callbacks {
		if callback.Caller != "relayer-neutron" {
			t.Fatalf("callback[%d] caller = %s, want relayer-neutron", i, callback.Caller)
		}
	}
	if authorization.callbacks[0].Execution == nil || authorization.callbacks[0].Execution.ExecutionID != 7 {
		t.Fatalf("first callback = %+v, want execution 7", authorization.callbacks[0])
	}
	if authorization.callbacks[1].Proxy == nil || authorization.callbacks[1].Proxy.Outcome != orchv1.ProxyCreated {
		t.Fatalf("second callback = %+v, want proxy created", authorization.callbacks[1])
	}
}
