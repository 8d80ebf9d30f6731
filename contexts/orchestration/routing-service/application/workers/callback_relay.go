package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "maestro/contexts/orchestration/routing-service/application"
	"maestro/contexts/orchestration/routing-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/routing-service/domain/errors"
	"maestro/contexts/orchestration/routing-service/ports"
	eventsv1 "maestro/contracts/gen/events/v1"
)

// CallbackRelay consumes the bridge callback topic and delivers the
// payloads into the authorization registry under the per-domain relayer
// identity the registry expects.
type CallbackRelay struct {
	Routes        ports.RouteTable
	Authorization ports.AuthorizationGateway
	Logger        *slog.Logger
}

func (w CallbackRelay) Handle(ctx context.Context, envelope eventsv1.Envelope) error {
	logger := application.ResolveLogger(w.Logger)

	var payload entities.BridgeCallbackPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}

	target, err := w.Routes.GetTarget(ctx, payload.Domain)
	if err != nil {
		return err
	}

	switch payload.Kind {
	case entities.BridgeCallbackExecution:
		if payload.Execution == nil {
			return domainerrors.ErrInvalidDispatch
		}
		err = w.Authorization.DeliverCallback(ctx, target.CallbackOrigin, *payload.Execution)
	case entities.BridgeCallbackProxy:
		if payload.Proxy == nil {
			return domainerrors.ErrInvalidDispatch
		}
		err = w.Authorization.DeliverProxyCallback(ctx, target.CallbackOrigin, *payload.Proxy)
	default:
		return domainerrors.ErrInvalidDispatch
	}

	if err != nil {
		logger.Error("callback relay failed",
			"event", "routing_callback_relay_failed",
			"module", "contexts/orchestration/routing-service",
			"layer", "worker",
			"domain", payload.Domain,
			"kind", string(payload.Kind),
			"error", err.Error(),
		)
		return err
	}
	return nil
}
