package application

import (
	"context"
	"strings"

	"maestro/contexts/orchestration/authorization-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/authorization-service/domain/errors"
	orchv1 "maestro/contracts/orchestration/v1"
)

// SendMsgs is the permissionless trigger entry point. It validates the
// caller against the authorization mode, checks every message against the
// subroutine's message details, wraps the batch under a fresh execution id
// and routes it to the target domain's processor. Any failure rejects
// synchronously; nothing is queued.
func (s Service) SendMsgs(ctx context.Context, caller string, label string, messages []orchv1.Message) (uint64, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return 0, domainerrors.ErrCallerNotPermitted
	}
	authorization, err := s.Repo.GetAuthorization(ctx, strings.TrimSpace(label))
	if err != nil {
		return 0, err
	}
	if authorization.State != entities.StateEnabled {
		return 0, domainerrors.ErrDisabled
	}
	now := s.now()
	if active, _ := authorization.ActiveAt(now); !active {
		return 0, domainerrors.ErrNotActive
	}

	active, err := s.Repo.CountActiveExecutions(ctx, authorization.Label)
	if err != nil {
		return 0, err
	}
	if active >= authorization.MaxConcurrentExecutions {
		return 0, domainerrors.ErrConcurrencyLimit
	}

	consumedMint, err := s.checkSendPermission(ctx, authorization, caller)
	if err != nil {
		return 0, err
	}
	// A reserved use is given back when the send is rejected before
	// anything reaches a queue.
	accepted := false
	defer func() {
		if consumedMint && !accepted {
			s.refundMintUse(ctx, authorization.Label, caller)
		}
	}()

	if err := validateMessages(authorization.Subroutine, messages); err != nil {
		return 0, err
	}

	target, _ := authorization.Subroutine.TargetDomain()
	if !target.IsMain() {
		domain, err := s.Repo.GetExternalDomain(ctx, target.Name)
		if err != nil {
			return 0, err
		}
		if reachable, _ := domain.Reachable(); !reachable {
			return 0, domainerrors.ErrProxyNotCreated
		}
	}

	executionID, err := s.Repo.NextExecutionID(ctx)
	if err != nil {
		return 0, err
	}
	batch := orchv1.MessageBatch{
		ExecutionID: executionID,
		Messages:    messages,
		Subroutine:  authorization.Subroutine,
		Priority:    authorization.Priority,
	}
	if !authorization.Expiration.IsZero() {
		expiration := authorization.Expiration
		batch.ExpiresAt = &expiration
	}

	execution := entities.Execution{
		ExecutionID:  executionID,
		Label:        authorization.Label,
		Domain:       target,
		Initiator:    caller,
		Messages:     messages,
		ConsumedMint: consumedMint,
		Status:       entities.ExecutionQueued,
		SubmittedAt:  now,
	}
	if err := s.Repo.SaveExecution(ctx, execution); err != nil {
		return 0, err
	}
	if err := s.Router.RouteProcessorMessage(ctx, target, orchv1.SendMsgsMessage(batch)); err != nil {
		// A routing failure is a synchronous rejection. The bookkeeping
		// row must not keep holding one of the label's concurrency slots.
		result := orchv1.RejectedResult(err.Error())
		finalizedAt := now
		execution.Status = entities.ExecutionFinalized
		execution.Result = &result
		execution.FinalizedAt = &finalizedAt
		if updateErr := s.Repo.UpdateExecution(ctx, execution); updateErr != nil {
			ResolveLogger(s.Logger).Error("rejected send left a queued execution row",
				"event", "authz_send_finalize_failed",
				"module", "orchestration/authorization-service",
				"layer", "application",
				"execution_id", executionID,
				"error", updateErr.Error(),
			)
		}
		return 0, err
	}

	accepted = true
	ResolveLogger(s.Logger).Info("send accepted",
		"event", "authz_send_accepted",
		"module", "orchestration/authorization-service",
		"layer", "application",
		"label", authorization.Label,
		"execution_id", executionID,
		"domain", target.String(),
		"priority", string(batch.Priority),
	)
	return executionID, nil
}

// checkSendPermission enforces the authorization mode and reserves one
// grant use for permissioned_with_limit labels.
func (s Service) checkSendPermission(ctx context.Context, authorization entities.Authorization, caller string) (bool, error) {
	switch authorization.Mode {
	case entities.ModePermissionless:
		return false, nil
	case entities.ModePermissionedWithoutLimit:
		if _, err := s.Repo.GetGrant(ctx, authorization.Label, caller); err != nil {
			return false, domainerrors.ErrCallerNotPermitted
		}
		return false, nil
	case entities.ModePermissionedWithLimit:
		grant, err := s.Repo.GetGrant(ctx, authorization.Label, caller)
		if err != nil {
			return false, domainerrors.ErrCallerNotPermitted
		}
		if grant.Unlimited {
			return false, nil
		}
		if grant.RemainingUses == 0 {
			return false, domainerrors.ErrCallerNotPermitted
		}
		grant.RemainingUses--
		grant.UpdatedAt = s.now()
		if err := s.Repo.UpsertGrant(ctx, grant); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, domainerrors.ErrInvalidInput
	}
}

func (s Service) refundMintUse(ctx context.Context, label string, grantee string) {
	grant, err := s.Repo.GetGrant(ctx, label, grantee)
	if err != nil {
		ResolveLogger(s.Logger).Warn("mint refund lookup failed",
			"event", "authz_mint_refund_failed",
			"module", "orchestration/authorization-service",
			"layer", "application",
			"label", label,
			"grantee", grantee,
			"error", err.Error(),
		)
		return
	}
	if grant.Unlimited {
		return
	}
	grant.RemainingUses++
	grant.UpdatedAt = s.now()
	if err := s.Repo.UpsertGrant(ctx, grant); err != nil {
		ResolveLogger(s.Logger).Warn("mint refund write failed",
			"event", "authz_mint_refund_failed",
			"module", "orchestration/authorization-service",
			"layer", "application",
			"label", label,
			"grantee", grantee,
			"error", err.Error(),
		)
	}
}

// resolveDomain maps an operator-facing domain name to a routing target.
// Empty or "main" selects the local processor.
func (s Service) resolveDomain(ctx context.Context, name string) (orchv1.Domain, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "main" {
		return orchv1.MainDomain(), nil
	}
	if _, err := s.Repo.GetExternalDomain(ctx, name); err != nil {
		return orchv1.Domain{}, err
	}
	return orchv1.ExternalDomain(name), nil
}

// RemoveMsgs forwards a queue-position cancellation to a domain's
// processor.
func (s Service) RemoveMsgs(ctx context.Context, caller string, domainName string, priority orchv1.Priority, position uint64) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	domain, err := s.resolveDomain(ctx, domainName)
	if err != nil {
		return err
	}
	return s.Router.RouteProcessorMessage(ctx, domain, orchv1.RemoveMsgsMessage(orchv1.NormalizePriority(priority), position))
}

// AddMsgs re-queues a previously submitted execution's batch at an
// explicit queue position on its domain's processor.
func (s Service) AddMsgs(ctx context.Context, caller string, executionID uint64, position uint64) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	execution, err := s.Repo.GetExecution(ctx, executionID)
	if err != nil {
		return err
	}
	authorization, err := s.Repo.GetAuthorization(ctx, execution.Label)
	if err != nil {
		return err
	}
	batch := orchv1.MessageBatch{
		ExecutionID: execution.ExecutionID,
		Messages:    execution.Messages,
		Subroutine:  authorization.Subroutine,
		Priority:    authorization.Priority,
	}
	if !authorization.Expiration.IsZero() {
		expiration := authorization.Expiration
		batch.ExpiresAt = &expiration
	}
	return s.Router.RouteProcessorMessage(ctx, execution.Domain, orchv1.InsertMsgsMessage(batch, position))
}

// EvictMsgs cancels a not-yet-started batch by execution id.
func (s Service) EvictMsgs(ctx context.Context, caller string, executionID uint64) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	execution, err := s.Repo.GetExecution(ctx, executionID)
	if err != nil {
		return err
	}
	return s.Router.RouteProcessorMessage(ctx, execution.Domain, orchv1.EvictMsgsMessage(executionID))
}

// PauseProcessor halts a domain's processor.
func (s Service) PauseProcessor(ctx context.Context, caller string, domainName string) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	domain, err := s.resolveDomain(ctx, domainName)
	if err != nil {
		return err
	}
	return s.Router.RouteProcessorMessage(ctx, domain, orchv1.PauseMessage())
}

// ResumeProcessor re-activates a paused processor.
func (s Service) ResumeProcessor(ctx context.Context, caller string, domainName string) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	domain, err := s.resolveDomain(ctx, domainName)
	if err != nil {
		return err
	}
	return s.Router.RouteProcessorMessage(ctx, domain, orchv1.ResumeMessage())
}
