package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"maestro/contexts/orchestration/authorization-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/authorization-service/domain/errors"
	"maestro/contexts/orchestration/authorization-service/ports"
	orchv1 "maestro/contracts/orchestration/v1"
)

// Callback reconciles a terminal execution result delivered by a
// processor or bridge relayer. Delivery is idempotent per execution id:
// replays with the same result are acknowledged no-ops, a replay with a
// different result is a conflict.
func (s Service) Callback(ctx context.Context, caller string, callback orchv1.ExecutionCallback) error {
	execution, err := s.Repo.GetExecution(ctx, callback.ExecutionID)
	if err != nil {
		return err
	}
	if err := s.checkCallbackOrigin(ctx, caller, execution.Domain); err != nil {
		return err
	}

	resultHash := hashResult(callback.Result)
	alreadyProcessed, storedHash, err := s.Dedup.ReserveCallback(ctx, callback.ExecutionID, resultHash)
	if err != nil {
		return err
	}
	if alreadyProcessed {
		if storedHash != resultHash {
			return domainerrors.ErrCallbackConflict
		}
		// Replay of an already settled result; bookkeeping stays untouched.
		return nil
	}

	now := s.now()
	result := callback.Result
	execution.Status = entities.ExecutionFinalized
	execution.Result = &result
	execution.FinalizedAt = &now
	if err := s.Repo.UpdateExecution(ctx, execution); err != nil {
		return err
	}

	// A rejected batch never ran, so a consumed grant use flows back;
	// every other terminal outcome burns it.
	if execution.ConsumedMint && result.Kind == orchv1.ResultRejected {
		s.refundMintUse(ctx, execution.Label, execution.Initiator)
	}

	if err := s.appendExecutionFinalizedOutbox(ctx, execution, result); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("execution finalized",
		"event", "authz_execution_finalized",
		"module", "orchestration/authorization-service",
		"layer", "application",
		"execution_id", execution.ExecutionID,
		"label", execution.Label,
		"result", string(result.Kind),
		"executed_count", result.ExecutedCount,
	)
	return nil
}

// ProxyCallback settles the lifecycle of a Polytone proxy creation for an
// external domain. Replays of the settled outcome are no-ops.
func (s Service) ProxyCallback(ctx context.Context, caller string, callback orchv1.ProxyCallback) error {
	domain, err := s.Repo.GetExternalDomain(ctx, strings.TrimSpace(callback.DomainName))
	if err != nil {
		return err
	}
	if strings.TrimSpace(caller) != domain.CallbackOrigin {
		return domainerrors.ErrCallbackOrigin
	}

	target, err := proxyStateFor(callback.Outcome)
	if err != nil {
		return err
	}
	if domain.ProxyState == target {
		return nil
	}
	if domain.ProxyState != entities.ProxyStatePendingResponse {
		return domainerrors.ErrProxyTransition
	}

	domain.ProxyState = target
	domain.ProxyError = strings.TrimSpace(callback.Reason)
	if err := s.Repo.UpdateExternalDomain(ctx, domain); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("proxy state settled",
		"event", "authz_proxy_state_settled",
		"module", "orchestration/authorization-service",
		"layer", "application",
		"domain", domain.Name,
		"state", string(target),
	)
	return nil
}

func proxyStateFor(outcome orchv1.ProxyOutcome) (entities.ProxyState, error) {
	switch outcome {
	case orchv1.ProxyCreated:
		return entities.ProxyStateCreated, nil
	case orchv1.ProxyTimedOut:
		return entities.ProxyStateTimedOut, nil
	case orchv1.ProxyUnexpectedError:
		return entities.ProxyStateUnexpectedError, nil
	default:
		return "", domainerrors.ErrInvalidInput
	}
}

// checkCallbackOrigin restricts callback delivery to the configured
// processor (main) or the domain's registered relayer (external).
func (s Service) checkCallbackOrigin(ctx context.Context, caller string, domain orchv1.Domain) error {
	caller = strings.TrimSpace(caller)
	if domain.IsMain() {
		if caller != strings.TrimSpace(s.MainProcessor) || caller == "" {
			return domainerrors.ErrCallbackOrigin
		}
		return nil
	}
	external, err := s.Repo.GetExternalDomain(ctx, domain.Name)
	if err != nil {
		return err
	}
	if caller != external.CallbackOrigin {
		return domainerrors.ErrCallbackOrigin
	}
	return nil
}

func (s Service) appendExecutionFinalizedOutbox(ctx context.Context, execution entities.Execution, result orchv1.ExecutionResult) error {
	if s.Outbox == nil {
		return nil
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]any{
		"execution_id":   execution.ExecutionID,
		"label":          execution.Label,
		"domain":         execution.Domain.String(),
		"initiator":      execution.Initiator,
		"result":         string(result.Kind),
		"reason":         result.Reason,
		"executed_count": result.ExecutedCount,
		"finalized_at":   execution.FinalizedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return s.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          strings.TrimSpace(eventID),
		EventType:        "execution.finalized",
		OccurredAt:       execution.FinalizedAt.UTC(),
		SourceService:    "authorization-service",
		TraceID:          strings.TrimSpace(eventID),
		SchemaVersion:    1,
		PartitionKeyPath: "label",
		PartitionKey:     execution.Label,
		Data:             data,
	})
}

func hashResult(result orchv1.ExecutionResult) string {
	raw, _ := json.Marshal(result)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
