package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

type Dependencies struct {
	Logger           *zap.Logger
	Addr             string
	HeartbeatService *service.HeartbeatService
	AccessService    *service.AccessService
}

type Server struct {
	httpServer       *http.Server
	logger           *zap.Logger
	mux              *http.ServeMux
	heartbeatService *service.HeartbeatService
	accessService    *service.AccessService
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:           d.Logger,
		mux:              mux,
		heartbeatService: d.HeartbeatService,
		accessService:    d.AccessService,
	}

	mux.HandleFunc("POST /v1/scan", s.handleScan)
	mux.HandleFunc("POST /v1/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleScan is the node-facing access decision endpoint. Operational
// problems never surface as HTTP errors; the node always receives a single
// verdict body.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.accessService.Decide(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidNodeID):
			writeError(w, http.StatusBadRequest, "invalid_node_id", err.Error())
		case errors.Is(err, service.ErrInvalidIdentifier):
			writeError(w, http.StatusBadRequest, "invalid_identifier", err.Error())
		default:
			s.logger.Error("scan handler failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	if !resp.Known {
		// Unknown nodes are blocked from the access flow.
		writeJSON(w, http.StatusForbidden, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.HeartbeatRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.heartbeatService.Record(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidNodeID) {
			writeError(w, http.StatusBadRequest, "invalid_node_id", err.Error())
			return
		}
		s.logger.Error("heartbeat handler failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"server_time": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
