package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"maestro/contexts/orchestration/processor-service/application"
	httptransport "maestro/contexts/orchestration/processor-service/transport/http"
	orchv1 "maestro/contracts/orchestration/v1"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) TickHandler(ctx context.Context) (httptransport.StatusResponse, error) {
	if err := h.Service.Tick(ctx); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) ConfirmFunctionHandler(ctx context.Context, req httptransport.ConfirmFunctionRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.ConfirmFunction(ctx, req.ExecutionID); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) ConfigHandler(ctx context.Context) (httptransport.ConfigResponse, error) {
	config, err := h.Service.Config(ctx)
	if err != nil {
		return httptransport.ConfigResponse{}, err
	}
	resp := httptransport.ConfigResponse{Status: "success"}
	resp.Data.AuthorizationContract = config.AuthorizationContract
	resp.Data.Domain = config.Domain.String()
	resp.Data.State = string(config.State)
	return resp, nil
}

func (h Handler) QueueHandler(ctx context.Context, priority string) (httptransport.QueueResponse, error) {
	items, err := h.Service.QueueContents(ctx, orchv1.Priority(priority))
	if err != nil {
		return httptransport.QueueResponse{}, err
	}
	resp := httptransport.QueueResponse{
		Status: "success",
		Data:   make([]httptransport.QueuedBatchDTO, 0, len(items)),
	}
	for _, item := range items {
		dto := httptransport.QueuedBatchDTO{
			ExecutionID:          item.Batch.ExecutionID,
			Priority:             string(orchv1.NormalizePriority(item.Batch.Priority)),
			Messages:             item.Batch.Messages,
			NextFunction:         item.NextFunction,
			ExecutedCount:        item.ExecutedCount,
			AwaitingConfirmation: item.AwaitingConfirmation,
			EnqueuedAt:           item.EnqueuedAt.UTC().Format(time.RFC3339),
		}
		if item.Batch.ExpiresAt != nil {
			dto.ExpiresAt = item.Batch.ExpiresAt.UTC().Format(time.RFC3339)
		}
		resp.Data = append(resp.Data, dto)
	}
	return resp, nil
}

func (h Handler) RetryStatusHandler(ctx context.Context, executionID uint64, now time.Time) (httptransport.RetryStatusResponse, error) {
	retry, ok, err := h.Service.RetryStatus(ctx, executionID)
	if err != nil {
		return httptransport.RetryStatusResponse{}, err
	}
	resp := httptransport.RetryStatusResponse{Status: "success"}
	resp.Data.ExecutionID = executionID
	if ok {
		resp.Data.Consumed = retry.Consumed
		resp.Data.CooldownUntil = retry.CooldownUntil.UTC().Format(time.RFC3339)
		resp.Data.Blocked = retry.Blocked(now)
	}
	return resp, nil
}

func (h Handler) PauseHandler(ctx context.Context, caller string) (httptransport.StatusResponse, error) {
	if err := h.Service.Pause(ctx, caller); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) ResumeHandler(ctx context.Context, caller string) (httptransport.StatusResponse, error) {
	if err := h.Service.Resume(ctx, caller); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}
