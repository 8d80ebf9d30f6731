package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "maestro/contexts/orchestration/routing-service/application"
	"maestro/contexts/orchestration/routing-service/domain/entities"
	"maestro/contexts/orchestration/routing-service/ports"
	eventsv1 "maestro/contracts/gen/events/v1"
	orchv1 "maestro/contracts/orchestration/v1"
)

// CallbackPublisher pushes relayed callback payloads toward the main
// domain. application.Service satisfies it.
type CallbackPublisher interface {
	PublishCallback(ctx context.Context, payload entities.BridgeCallbackPayload) error
}

// PolytoneVoice is the receiving half of the Polytone bridge for one
// CosmWasm domain. It materializes the proxy on the first empty call,
// forwards control messages to the domain's processor, and reports
// timeouts instead of executing stale envelopes.
type PolytoneVoice struct {
	Routes     ports.RouteTable
	Processors ports.ProcessorGateway
	Publisher  CallbackPublisher
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (w PolytoneVoice) Handle(ctx context.Context, envelope eventsv1.Envelope) error {
	logger := application.ResolveLogger(w.Logger)

	var payload entities.PolytoneExecutePayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}

	now := time.Now().UTC()
	if w.Clock != nil {
		now = w.Clock.Now().UTC()
	}

	if payload.TimeoutSeconds > 0 {
		deadline := payload.SentAt.Add(time.Duration(payload.TimeoutSeconds) * time.Second)
		if now.After(deadline) {
			return w.reportTimeout(ctx, payload, logger)
		}
	}

	if payload.Msg == nil {
		return w.materializeProxy(ctx, payload, logger)
	}

	target, err := w.Routes.GetTarget(ctx, payload.DomainName)
	if err != nil {
		return err
	}
	if err := w.Processors.DeliverMessage(ctx, target.ProcessorAddress, payload.Caller, *payload.Msg); err != nil {
		return w.reportDeliveryFailure(ctx, payload, err, logger)
	}
	return nil
}

// materializeProxy handles the empty call that creates the remote proxy
// account. Repeated empty calls are collapsed by the registry's replay
// rule, so re-marking is harmless.
func (w PolytoneVoice) materializeProxy(ctx context.Context, payload entities.PolytoneExecutePayload, logger *slog.Logger) error {
	if err := w.Routes.MarkProxyCreated(ctx, payload.DomainName); err != nil {
		return w.Publisher.PublishCallback(ctx, entities.BridgeCallbackPayload{
			Kind:   entities.BridgeCallbackProxy,
			Domain: payload.DomainName,
			Proxy: &orchv1.ProxyCallback{
				DomainName: payload.DomainName,
				Outcome:    orchv1.ProxyUnexpectedError,
				Reason:     err.Error(),
			},
		})
	}
	logger.Info("proxy account materialized",
		"event", "routing_proxy_materialized",
		"module", "contexts/orchestration/routing-service",
		"layer", "worker",
		"domain", payload.DomainName,
	)
	return w.Publisher.PublishCallback(ctx, entities.BridgeCallbackPayload{
		Kind:   entities.BridgeCallbackProxy,
		Domain: payload.DomainName,
		Proxy: &orchv1.ProxyCallback{
			DomainName: payload.DomainName,
			Outcome:    orchv1.ProxyCreated,
		},
	})
}

func (w PolytoneVoice) reportTimeout(ctx context.Context, payload entities.PolytoneExecutePayload, logger *slog.Logger) error {
	logger.Warn("stale polytone envelope",
		"event", "routing_polytone_timeout",
		"module", "contexts/orchestration/routing-service",
		"layer", "worker",
		"domain", payload.DomainName,
	)
	if payload.Msg == nil {
		return w.Publisher.PublishCallback(ctx, entities.BridgeCallbackPayload{
			Kind:   entities.BridgeCallbackProxy,
			Domain: payload.DomainName,
			Proxy: &orchv1.ProxyCallback{
				DomainName: payload.DomainName,
				Outcome:    orchv1.ProxyTimedOut,
				Reason:     "polytone relay timed out",
			},
		})
	}
	if payload.Msg.Kind == orchv1.ProcessorSendMsgs && payload.Msg.Batch != nil {
		return w.Publisher.PublishCallback(ctx, entities.BridgeCallbackPayload{
			Kind:   entities.BridgeCallbackExecution,
			Domain: payload.DomainName,
			Execution: &orchv1.ExecutionCallback{
				ExecutionID: payload.Msg.Batch.ExecutionID,
				Result:      orchv1.RejectedResult("bridge: polytone relay timed out"),
				DomainName:  payload.DomainName,
			},
		})
	}
	return nil
}

// reportDeliveryFailure turns a rejected send into an execution callback
// so the batch settles exactly once. Other control kinds have no
// execution to settle and are only logged.
func (w PolytoneVoice) reportDeliveryFailure(ctx context.Context, payload entities.PolytoneExecutePayload, deliveryErr error, logger *slog.Logger) error {
	logger.Error("processor delivery failed",
		"event", "routing_delivery_failed",
		"module", "contexts/orchestration/routing-service",
		"layer", "worker",
		"domain", payload.DomainName,
		"kind", string(payload.Msg.Kind),
		"error", deliveryErr.Error(),
	)
	if payload.Msg.Kind == orchv1.ProcessorSendMsgs && payload.Msg.Batch != nil {
		return w.Publisher.PublishCallback(ctx, entities.BridgeCallbackPayload{
			Kind:   entities.BridgeCallbackExecution,
			Domain: payload.DomainName,
			Execution: &orchv1.ExecutionCallback{
				ExecutionID: payload.Msg.Batch.ExecutionID,
				Result:      orchv1.RejectedResult("bridge: " + deliveryErr.Error()),
				DomainName:  payload.DomainName,
			},
		})
	}
	return nil
}
