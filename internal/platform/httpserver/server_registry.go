package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	registryerrors "maestro/contexts/orchestration/authorization-service/domain/errors"
	registryhttp "maestro/contexts/orchestration/authorization-service/transport/http"
)

func (s *Server) handleCreateAuthorizations(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.CreateAuthorizationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.CreateAuthorizationsHandler(r.Context(), resolveCaller(r), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAuthorizations(w http.ResponseWriter, r *http.Request) {
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	offset, _, err := queryInt(r, "offset")
	if err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
		return
	}
	resp, err := s.authorization.Handler.ListAuthorizationsHandler(r.Context(), limit, offset)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModifyAuthorization(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.ModifyAuthorizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.ModifyAuthorizationHandler(r.Context(), resolveCaller(r), r.PathValue("label"), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDisableAuthorization(w http.ResponseWriter, r *http.Request) {
	resp, err := s.authorization.Handler.DisableAuthorizationHandler(r.Context(), resolveCaller(r), r.PathValue("label"))
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEnableAuthorization(w http.ResponseWriter, r *http.Request) {
	resp, err := s.authorization.Handler.EnableAuthorizationHandler(r.Context(), resolveCaller(r), r.PathValue("label"))
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMintAuthorizations(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.MintAuthorizationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.MintAuthorizationsHandler(r.Context(), resolveCaller(r), r.PathValue("label"), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	resp, err := s.authorization.Handler.ListGrantsHandler(r.Context(), r.PathValue("label"))
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSendMsgs(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeRegistryError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Address header is required")
		return
	}
	var req registryhttp.SendMsgsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.SendMsgsHandler(r.Context(), caller, r.PathValue("label"), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddExternalDomains(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.AddExternalDomainsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.AddExternalDomainsHandler(r.Context(), resolveCaller(r), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListExternalDomains(w http.ResponseWriter, r *http.Request) {
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	offset, _, err := queryInt(r, "offset")
	if err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
		return
	}
	resp, err := s.authorization.Handler.ListExternalDomainsHandler(r.Context(), limit, offset)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddSubOwner(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.SubOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.AddSubOwnerHandler(r.Context(), resolveCaller(r), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveSubOwner(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.SubOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.RemoveSubOwnerHandler(r.Context(), resolveCaller(r), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSubOwners(w http.ResponseWriter, r *http.Request) {
	resp, err := s.authorization.Handler.ListSubOwnersHandler(r.Context())
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcessorAddress(w http.ResponseWriter, r *http.Request) {
	resp, err := s.authorization.Handler.ProcessorHandler(r.Context())
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeRegistryError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Address header is required")
		return
	}
	var req registryhttp.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.CallbackHandler(r.Context(), caller, req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProxyCallback(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeRegistryError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Address header is required")
		return
	}
	var req registryhttp.ProxyCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.ProxyCallbackHandler(r.Context(), caller, req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	offset, _, err := queryInt(r, "offset")
	if err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
		return
	}
	resp, err := s.authorization.Handler.ListExecutionsHandler(r.Context(), limit, offset)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	executionID, err := pathUint(r, "execution_id")
	if err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_execution_id", "execution_id must be an unsigned integer")
		return
	}
	resp, err := s.authorization.Handler.GetExecutionHandler(r.Context(), executionID)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveMsgs(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.RemoveMsgsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.RemoveMsgsHandler(r.Context(), resolveCaller(r), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInsertMsgs(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.AddMsgsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.AddMsgsHandler(r.Context(), resolveCaller(r), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvictMsgs(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.EvictMsgsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.EvictMsgsHandler(r.Context(), resolveCaller(r), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePauseProcessor(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.ProcessorControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.PauseProcessorHandler(r.Context(), resolveCaller(r), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResumeProcessor(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.ProcessorControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authorization.Handler.ResumeProcessorHandler(r.Context(), resolveCaller(r), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeRegistryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registryerrors.ErrUnknownLabel),
		errors.Is(err, registryerrors.ErrUnknownDomain),
		errors.Is(err, registryerrors.ErrUnknownExecution):
		writeRegistryError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, registryerrors.ErrUnauthorized),
		errors.Is(err, registryerrors.ErrCallbackOrigin):
		writeRegistryError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, registryerrors.ErrCallerNotPermitted):
		writeRegistryError(w, http.StatusForbidden, "caller_not_permitted", err.Error())
	case errors.Is(err, registryerrors.ErrLabelExists),
		errors.Is(err, registryerrors.ErrDuplicateDomain),
		errors.Is(err, registryerrors.ErrCallbackConflict):
		writeRegistryError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, registryerrors.ErrConcurrencyLimit):
		writeRegistryError(w, http.StatusConflict, "concurrency_limit_reached", err.Error())
	case errors.Is(err, registryerrors.ErrDisabled),
		errors.Is(err, registryerrors.ErrNotActive),
		errors.Is(err, registryerrors.ErrProxyNotCreated),
		errors.Is(err, registryerrors.ErrProxyTransition),
		errors.Is(err, registryerrors.ErrNotPermissioned):
		writeRegistryError(w, http.StatusUnprocessableEntity, "not_executable", err.Error())
	case errors.Is(err, registryerrors.ErrInvalidInput),
		errors.Is(err, registryerrors.ErrEmptySubroutine),
		errors.Is(err, registryerrors.ErrMixedDomainSubroutine),
		errors.Is(err, registryerrors.ErrMessageShape),
		errors.Is(err, registryerrors.ErrMessageCount):
		writeRegistryError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeRegistryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRegistryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, registryhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
