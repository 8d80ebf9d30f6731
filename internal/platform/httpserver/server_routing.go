package httpserver

import (
	"errors"
	"net/http"

	routingerrors "maestro/contexts/orchestration/routing-service/domain/errors"
	routinghttp "maestro/contexts/orchestration/routing-service/transport/http"
)

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.routing.Handler.ListRoutesHandler(r.Context())
	if err != nil {
		writeRoutingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeRoutingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routingerrors.ErrUnknownRoute):
		writeRoutingError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, routingerrors.ErrDuplicateRoute):
		writeRoutingError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, routingerrors.ErrProxyNotCreated),
		errors.Is(err, routingerrors.ErrMissingBridgeConfig),
		errors.Is(err, routingerrors.ErrUnsupportedEnvironment):
		writeRoutingError(w, http.StatusUnprocessableEntity, "not_routable", err.Error())
	case errors.Is(err, routingerrors.ErrInvalidDispatch):
		writeRoutingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeRoutingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRoutingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, routinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
