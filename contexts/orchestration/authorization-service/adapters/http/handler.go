package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"maestro/contexts/orchestration/authorization-service/application"
	"maestro/contexts/orchestration/authorization-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/authorization-service/domain/errors"
	"maestro/contexts/orchestration/authorization-service/ports"
	httptransport "maestro/contexts/orchestration/authorization-service/transport/http"
	orchv1 "maestro/contracts/orchestration/v1"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) CreateAuthorizationsHandler(
	ctx context.Context,
	caller string,
	req httptransport.CreateAuthorizationsRequest,
) (httptransport.StatusResponse, error) {
	inputs := make([]ports.AuthorizationInput, 0, len(req.Authorizations))
	for _, spec := range req.Authorizations {
		input, err := authorizationInputFromDTO(spec)
		if err != nil {
			return httptransport.StatusResponse{}, err
		}
		inputs = append(inputs, input)
	}
	if err := h.Service.CreateAuthorizations(ctx, caller, inputs); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) ModifyAuthorizationHandler(
	ctx context.Context,
	caller string,
	label string,
	req httptransport.ModifyAuthorizationRequest,
) (httptransport.StatusResponse, error) {
	var input ports.ModifyAuthorizationInput
	if req.NotBefore != nil {
		notBefore, err := parseTimestamp(*req.NotBefore)
		if err != nil {
			return httptransport.StatusResponse{}, err
		}
		input.NotBefore = &notBefore
	}
	if req.Expiration != nil {
		expiration, err := parseTimestamp(*req.Expiration)
		if err != nil {
			return httptransport.StatusResponse{}, err
		}
		input.Expiration = &expiration
	}
	input.MaxConcurrentExecutions = req.MaxConcurrentExecutions
	if req.Priority != nil {
		priority := orchv1.NormalizePriority(orchv1.Priority(*req.Priority))
		input.Priority = &priority
	}
	if err := h.Service.ModifyAuthorization(ctx, caller, label, input); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) DisableAuthorizationHandler(ctx context.Context, caller string, label string) (httptransport.StatusResponse, error) {
	if err := h.Service.DisableAuthorization(ctx, caller, label); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) EnableAuthorizationHandler(ctx context.Context, caller string, label string) (httptransport.StatusResponse, error) {
	if err := h.Service.EnableAuthorization(ctx, caller, label); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) MintAuthorizationsHandler(
	ctx context.Context,
	caller string,
	label string,
	req httptransport.MintAuthorizationsRequest,
) (httptransport.StatusResponse, error) {
	if err := h.Service.MintAuthorizations(ctx, caller, label, grantInputsFromDTOs(req.Grants)); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) ListAuthorizationsHandler(
	ctx context.Context,
	limit int,
	offset int,
) (httptransport.AuthorizationListResponse, error) {
	items, err := h.Service.Authorizations(ctx, limit, offset)
	if err != nil {
		return httptransport.AuthorizationListResponse{}, err
	}
	resp := httptransport.AuthorizationListResponse{
		Status: "success",
		Data:   make([]httptransport.AuthorizationDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, authorizationToDTO(item))
	}
	return resp, nil
}

func (h Handler) ListGrantsHandler(ctx context.Context, label string) (httptransport.GrantListResponse, error) {
	items, err := h.Service.Grants(ctx, label)
	if err != nil {
		return httptransport.GrantListResponse{}, err
	}
	resp := httptransport.GrantListResponse{
		Status: "success",
		Data:   make([]httptransport.GrantDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, httptransport.GrantDTO{
			Grantee:   item.Grantee,
			Unlimited: item.Unlimited,
			Uses:      item.RemainingUses,
		})
	}
	return resp, nil
}

func (h Handler) AddExternalDomainsHandler(
	ctx context.Context,
	caller string,
	req httptransport.AddExternalDomainsRequest,
) (httptransport.StatusResponse, error) {
	inputs := make([]ports.ExternalDomainInput, 0, len(req.Domains))
	for _, spec := range req.Domains {
		input := ports.ExternalDomainInput{
			Name:             spec.Name,
			Environment:      entities.ExecutionEnvironment(spec.Environment),
			ProcessorAddress: spec.ProcessorAddress,
			CallbackOrigin:   spec.CallbackOrigin,
		}
		if spec.Polytone != nil {
			input.Polytone = &entities.PolytoneConfig{
				NoteAddress:    spec.Polytone.NoteAddress,
				VoiceAddress:   spec.Polytone.VoiceAddress,
				TimeoutSeconds: int64(spec.Polytone.TimeoutSeconds),
			}
		}
		if spec.Hyperlane != nil {
			input.Hyperlane = &entities.HyperlaneConfig{
				MailboxAddress: spec.Hyperlane.MailboxAddress,
				DomainID:       spec.Hyperlane.DomainID,
			}
		}
		inputs = append(inputs, input)
	}
	if err := h.Service.AddExternalDomains(ctx, caller, inputs); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) ListExternalDomainsHandler(
	ctx context.Context,
	limit int,
	offset int,
) (httptransport.ExternalDomainListResponse, error) {
	items, err := h.Service.ExternalDomains(ctx, limit, offset)
	if err != nil {
		return httptransport.ExternalDomainListResponse{}, err
	}
	resp := httptransport.ExternalDomainListResponse{
		Status: "success",
		Data:   make([]httptransport.ExternalDomainDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, externalDomainToDTO(item))
	}
	return resp, nil
}

func (h Handler) AddSubOwnerHandler(ctx context.Context, caller string, req httptransport.SubOwnerRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.AddSubOwner(ctx, caller, req.Address); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) RemoveSubOwnerHandler(ctx context.Context, caller string, req httptransport.SubOwnerRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.RemoveSubOwner(ctx, caller, req.Address); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) ListSubOwnersHandler(ctx context.Context) (httptransport.SubOwnerListResponse, error) {
	items, err := h.Service.SubOwners(ctx)
	if err != nil {
		return httptransport.SubOwnerListResponse{}, err
	}
	return httptransport.SubOwnerListResponse{Status: "success", Data: items}, nil
}

func (h Handler) ProcessorHandler(_ context.Context) (httptransport.ProcessorResponse, error) {
	resp := httptransport.ProcessorResponse{Status: "success"}
	resp.Data.Address = h.Service.Processor()
	return resp, nil
}

func (h Handler) SendMsgsHandler(
	ctx context.Context,
	caller string,
	label string,
	req httptransport.SendMsgsRequest,
) (httptransport.SendMsgsResponse, error) {
	executionID, err := h.Service.SendMsgs(ctx, caller, label, req.Messages)
	if err != nil {
		return httptransport.SendMsgsResponse{}, err
	}
	resp := httptransport.SendMsgsResponse{Status: "success"}
	resp.Data.ExecutionID = executionID
	return resp, nil
}

func (h Handler) CallbackHandler(ctx context.Context, caller string, req httptransport.CallbackRequest) (httptransport.StatusResponse, error) {
	callback := orchv1.ExecutionCallback{
		ExecutionID: req.ExecutionID,
		Result: orchv1.ExecutionResult{
			Kind:          orchv1.ExecutionResultKind(req.Result.Kind),
			Reason:        req.Result.Reason,
			ExecutedCount: req.Result.ExecutedCount,
		},
		DomainName: req.DomainName,
	}
	if err := h.Service.Callback(ctx, caller, callback); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) ProxyCallbackHandler(ctx context.Context, caller string, req httptransport.ProxyCallbackRequest) (httptransport.StatusResponse, error) {
	callback := orchv1.ProxyCallback{
		DomainName: req.DomainName,
		Outcome:    orchv1.ProxyOutcome(req.Outcome),
		Reason:     req.Reason,
	}
	if err := h.Service.ProxyCallback(ctx, caller, callback); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) GetExecutionHandler(ctx context.Context, executionID uint64) (httptransport.ExecutionResponse, error) {
	item, err := h.Service.Execution(ctx, executionID)
	if err != nil {
		return httptransport.ExecutionResponse{}, err
	}
	return httptransport.ExecutionResponse{Status: "success", Data: executionToDTO(item)}, nil
}

func (h Handler) ListExecutionsHandler(ctx context.Context, limit int, offset int) (httptransport.ExecutionListResponse, error) {
	items, err := h.Service.Executions(ctx, limit, offset)
	if err != nil {
		return httptransport.ExecutionListResponse{}, err
	}
	resp := httptransport.ExecutionListResponse{
		Status: "success",
		Data:   make([]httptransport.ExecutionDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, executionToDTO(item))
	}
	return resp, nil
}

func (h Handler) RemoveMsgsHandler(ctx context.Context, caller string, req httptransport.RemoveMsgsRequest) (httptransport.StatusResponse, error) {
	priority := orchv1.NormalizePriority(orchv1.Priority(req.Priority))
	if err := h.Service.RemoveMsgs(ctx, caller, req.DomainName, priority, req.Position); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) AddMsgsHandler(ctx context.Context, caller string, req httptransport.AddMsgsRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.AddMsgs(ctx, caller, req.ExecutionID, req.Position); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) EvictMsgsHandler(ctx context.Context, caller string, req httptransport.EvictMsgsRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.EvictMsgs(ctx, caller, req.ExecutionID); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) PauseProcessorHandler(ctx context.Context, caller string, req httptransport.ProcessorControlRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.PauseProcessor(ctx, caller, req.DomainName); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) ResumeProcessorHandler(ctx context.Context, caller string, req httptransport.ProcessorControlRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.ResumeProcessor(ctx, caller, req.DomainName); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func authorizationInputFromDTO(spec httptransport.AuthorizationSpecDTO) (ports.AuthorizationInput, error) {
	input := ports.AuthorizationInput{
		Label:                   spec.Label,
		Mode:                    entities.AuthorizationMode(spec.Mode),
		Subroutine:              spec.Subroutine,
		Priority:                orchv1.NormalizePriority(orchv1.Priority(spec.Priority)),
		MaxConcurrentExecutions: spec.MaxConcurrentExecutions,
		Grants:                  grantInputsFromDTOs(spec.Grants),
	}
	if spec.NotBefore != "" {
		notBefore, err := parseTimestamp(spec.NotBefore)
		if err != nil {
			return ports.AuthorizationInput{}, err
		}
		input.NotBefore = notBefore
	}
	if spec.Expiration != "" {
		expiration, err := parseTimestamp(spec.Expiration)
		if err != nil {
			return ports.AuthorizationInput{}, err
		}
		input.Expiration = expiration
	}
	return input, nil
}

func grantInputsFromDTOs(grants []httptransport.GrantDTO) []ports.GrantInput {
	inputs := make([]ports.GrantInput, 0, len(grants))
	for _, grant := range grants {
		inputs = append(inputs, ports.GrantInput{
			Grantee:   grant.Grantee,
			Unlimited: grant.Unlimited,
			Uses:      grant.Uses,
		})
	}
	return inputs
}

func parseTimestamp(raw string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q is not RFC 3339", domainerrors.ErrInvalidInput, raw)
	}
	return parsed.UTC(), nil
}

func authorizationToDTO(item entities.Authorization) httptransport.AuthorizationDTO {
	dto := httptransport.AuthorizationDTO{
		Label:                   item.Label,
		Mode:                    string(item.Mode),
		Subroutine:              item.Subroutine,
		Priority:                string(item.Priority),
		MaxConcurrentExecutions: item.MaxConcurrentExecutions,
		State:                   string(item.State),
		CreatedAt:               item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !item.NotBefore.IsZero() {
		dto.NotBefore = item.NotBefore.UTC().Format(time.RFC3339)
	}
	if !item.Expiration.IsZero() {
		dto.Expiration = item.Expiration.UTC().Format(time.RFC3339)
	}
	return dto
}

func externalDomainToDTO(item entities.ExternalDomain) httptransport.ExternalDomainDTO {
	dto := httptransport.ExternalDomainDTO{
		Name:             item.Name,
		Environment:      string(item.Environment),
		ProcessorAddress: item.ProcessorAddress,
		CallbackOrigin:   item.CallbackOrigin,
		ProxyState:       string(item.ProxyState),
		ProxyError:       item.ProxyError,
		RegisteredAt:     item.RegisteredAt.UTC().Format(time.RFC3339),
	}
	if item.Polytone != nil {
		dto.Polytone = &httptransport.PolytoneConfigDTO{
			NoteAddress:    item.Polytone.NoteAddress,
			VoiceAddress:   item.Polytone.VoiceAddress,
			TimeoutSeconds: uint64(item.Polytone.TimeoutSeconds),
		}
	}
	if item.Hyperlane != nil {
		dto.Hyperlane = &httptransport.HyperlaneConfigDTO{
			MailboxAddress: item.Hyperlane.MailboxAddress,
			DomainID:       item.Hyperlane.DomainID,
		}
	}
	return dto
}

func executionToDTO(item entities.Execution) httptransport.ExecutionDTO {
	dto := httptransport.ExecutionDTO{
		ExecutionID: item.ExecutionID,
		Label:       item.Label,
		Domain:      item.Domain.String(),
		Initiator:   item.Initiator,
		Status:      string(item.Status),
		SubmittedAt: item.SubmittedAt.UTC().Format(time.RFC3339),
	}
	if item.Result != nil {
		dto.Result = &httptransport.ExecutionResultDTO{
			Kind:          string(item.Result.Kind),
			Reason:        item.Result.Reason,
			ExecutedCount: item.Result.ExecutedCount,
		}
	}
	if item.FinalizedAt != nil {
		dto.FinalizedAt = item.FinalizedAt.UTC().Format(time.RFC3339)
	}
	return dto
}
