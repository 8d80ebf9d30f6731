package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"maestro/contexts/orchestration/routing-service/application"
	httptransport "maestro/contexts/orchestration/routing-service/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) ListRoutesHandler(ctx context.Context) (httptransport.RouteListResponse, error) {
	items, err := h.Service.ListRoutes(ctx)
	if err != nil {
		return httptransport.RouteListResponse{}, err
	}
	resp := httptransport.RouteListResponse{
		Status: "success",
		Data:   make([]httptransport.RouteTargetDTO, 0, len(items)),
	}
	for _, item := range items {
		dto := httptransport.RouteTargetDTO{
			Name:             item.Name,
			Environment:      string(item.Environment),
			ProcessorAddress: item.ProcessorAddress,
			CallbackOrigin:   item.CallbackOrigin,
			ProxyCreated:     item.ProxyCreated,
			RegisteredAt:     item.RegisteredAt.UTC().Format(time.RFC3339),
		}
		if item.Polytone != nil {
			dto.Polytone = &httptransport.PolytoneRouteDTO{
				NoteAddress:    item.Polytone.NoteAddress,
				VoiceAddress:   item.Polytone.VoiceAddress,
				TimeoutSeconds: item.Polytone.TimeoutSeconds,
			}
		}
		if item.Hyperlane != nil {
			dto.Hyperlane = &httptransport.HyperlaneRouteDTO{
				MailboxAddress: item.Hyperlane.MailboxAddress,
				DomainID:       item.Hyperlane.DomainID,
			}
		}
		resp.Data = append(resp.Data, dto)
	}
	return resp, nil
}
