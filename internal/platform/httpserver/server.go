package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	authorization "maestro/contexts/orchestration/authorization-service"
	processor "maestro/contexts/orchestration/processor-service"
	routing "maestro/contexts/orchestration/routing-service"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "maestro/internal/platform/httpserver/docs"
)

type Server struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	addr          string
	authorization authorization.Module
	processor     processor.Module
	routing       routing.Module
}

func New(
	authorizationModule authorization.Module,
	processorModule processor.Module,
	routingModule routing.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:           http.NewServeMux(),
		logger:        logger,
		addr:          addr,
		authorization: authorizationModule,
		processor:     processorModule,
		routing:       routingModule,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/registry/v1/authorizations", s.handleCreateAuthorizations)
	s.mux.HandleFunc("GET /api/registry/v1/authorizations", s.handleListAuthorizations)
	s.mux.HandleFunc("POST /api/registry/v1/authorizations/{label}/modify", s.handleModifyAuthorization)
	s.mux.HandleFunc("POST /api/registry/v1/authorizations/{label}/disable", s.handleDisableAuthorization)
	s.mux.HandleFunc("POST /api/registry/v1/authorizations/{label}/enable", s.handleEnableAuthorization)
	s.mux.HandleFunc("POST /api/registry/v1/authorizations/{label}/mint", s.handleMintAuthorizations)
	s.mux.HandleFunc("GET /api/registry/v1/authorizations/{label}/grants", s.handleListGrants)
	s.mux.HandleFunc("POST /api/registry/v1/authorizations/{label}/send", s.handleSendMsgs)

	s.mux.HandleFunc("POST /api/registry/v1/domains", s.handleAddExternalDomains)
	s.mux.HandleFunc("GET /api/registry/v1/domains", s.handleListExternalDomains)
	s.mux.HandleFunc("POST /api/registry/v1/sub-owners", s.handleAddSubOwner)
	s.mux.HandleFunc("POST /api/registry/v1/sub-owners/remove", s.handleRemoveSubOwner)
	s.mux.HandleFunc("GET /api/registry/v1/sub-owners", s.handleListSubOwners)
	s.mux.HandleFunc("GET /api/registry/v1/processor", s.handleProcessorAddress)

	s.mux.HandleFunc("POST /api/registry/v1/callbacks", s.handleCallback)
	s.mux.HandleFunc("POST /api/registry/v1/callbacks/proxy", s.handleProxyCallback)
	s.mux.HandleFunc("GET /api/registry/v1/executions", s.handleListExecutions)
	s.mux.HandleFunc("GET /api/registry/v1/executions/{execution_id}", s.handleGetExecution)

	s.mux.HandleFunc("POST /api/registry/v1/queue/remove", s.handleRemoveMsgs)
	s.mux.HandleFunc("POST /api/registry/v1/queue/insert", s.handleInsertMsgs)
	s.mux.HandleFunc("POST /api/registry/v1/queue/evict", s.handleEvictMsgs)
	s.mux.HandleFunc("POST /api/registry/v1/processor/pause", s.handlePauseProcessor)
	s.mux.HandleFunc("POST /api/registry/v1/processor/resume", s.handleResumeProcessor)

	s.mux.HandleFunc("POST /api/processor/v1/tick", s.handleTick)
	s.mux.HandleFunc("POST /api/processor/v1/confirmations", s.handleConfirmFunction)
	s.mux.HandleFunc("GET /api/processor/v1/config", s.handleProcessorConfig)
	s.mux.HandleFunc("GET /api/processor/v1/queue", s.handleProcessorQueue)
	s.mux.HandleFunc("GET /api/processor/v1/retries/{execution_id}", s.handleRetryStatus)

	s.mux.HandleFunc("GET /api/routing/v1/routes", s.handleListRoutes)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// resolveCaller is the caller identity used by every permissioned
// operation. Deployments put their authn layer in front of it.
func resolveCaller(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Caller-Address"))
}

func queryInt(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func pathUint(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(r.PathValue(name), 10, 64)
}
