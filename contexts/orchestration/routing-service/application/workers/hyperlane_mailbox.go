package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "maestro/contexts/orchestration/routing-service/application"
	"maestro/contexts/orchestration/routing-service/domain/entities"
	"maestro/contexts/orchestration/routing-service/ports"
	eventsv1 "maestro/contracts/gen/events/v1"
	orchv1 "maestro/contracts/orchestration/v1"
)

// HyperlaneMailbox is the receiving half of the Hyperlane bridge for one
// EVM domain. It decodes the opaque body back into a control message and
// forwards it to the domain's processor.
type HyperlaneMailbox struct {
	Routes     ports.RouteTable
	Processors ports.ProcessorGateway
	Publisher  CallbackPublisher
	Logger     *slog.Logger
}

func (w HyperlaneMailbox) Handle(ctx context.Context, envelope eventsv1.Envelope) error {
	logger := application.ResolveLogger(w.Logger)

	var payload entities.HyperlaneDispatchPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}

	var msg orchv1.ProcessorMessage
	if err := json.Unmarshal(payload.Body, &msg); err != nil {
		return err
	}

	if err := w.Processors.DeliverMessage(ctx, payload.Recipient, payload.Caller, msg); err != nil {
		logger.Error("processor delivery failed",
			"event", "routing_delivery_failed",
			"module", "contexts/orchestration/routing-service",
			"layer", "worker",
			"domain", payload.DomainName,
			"kind", string(msg.Kind),
			"error", err.Error(),
		)
		if msg.Kind == orchv1.ProcessorSendMsgs && msg.Batch != nil {
			return w.Publisher.PublishCallback(ctx, entities.BridgeCallbackPayload{
				Kind:   entities.BridgeCallbackExecution,
				Domain: payload.DomainName,
				Execution: &orchv1.ExecutionCallback{
					ExecutionID: msg.Batch.ExecutionID,
					Result:      orchv1.RejectedResult("bridge: " + err.Error()),
					DomainName:  payload.DomainName,
				},
			})
		}
	}
	return nil
}
