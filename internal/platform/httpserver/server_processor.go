package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	processorerrors "maestro/contexts/orchestration/processor-service/domain/errors"
	processorhttp "maestro/contexts/orchestration/processor-service/transport/http"
)

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	resp, err := s.processor.Handler.TickHandler(r.Context())
	if err != nil {
		writeProcessorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfirmFunction(w http.ResponseWriter, r *http.Request) {
	var req processorhttp.ConfirmFunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProcessorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.processor.Handler.ConfirmFunctionHandler(r.Context(), req)
	if err != nil {
		writeProcessorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcessorConfig(w http.ResponseWriter, r *http.Request) {
	resp, err := s.processor.Handler.ConfigHandler(r.Context())
	if err != nil {
		writeProcessorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcessorQueue(w http.ResponseWriter, r *http.Request) {
	resp, err := s.processor.Handler.QueueHandler(r.Context(), r.URL.Query().Get("priority"))
	if err != nil {
		writeProcessorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetryStatus(w http.ResponseWriter, r *http.Request) {
	executionID, err := pathUint(r, "execution_id")
	if err != nil {
		writeProcessorError(w, http.StatusBadRequest, "invalid_execution_id", "execution_id must be an unsigned integer")
		return
	}
	resp, err := s.processor.Handler.RetryStatusHandler(r.Context(), executionID, time.Now().UTC())
	if err != nil {
		writeProcessorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeProcessorDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, processorerrors.ErrUnauthorizedCaller):
		writeProcessorError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, processorerrors.ErrUnknownExecution):
		writeProcessorError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, processorerrors.ErrEmptyQueue),
		errors.Is(err, processorerrors.ErrPositionOutOfRange),
		errors.Is(err, processorerrors.ErrInvalidBatch):
		writeProcessorError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, processorerrors.ErrBatchStarted),
		errors.Is(err, processorerrors.ErrNotAwaitingConfirmation):
		writeProcessorError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeProcessorError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeProcessorError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, processorhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
