package server

import (
	"encoding/json"
	"errors"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/noeunkim/black-white-siseon/internal/config"
	"github.com/noeunkim/black-white-siseon/internal/logger"
	"github.com/noeunkim/black-white-siseon/internal/pipeline"
	"github.com/noeunkim/black-white-siseon/internal/storage"
)

// Service carries the handlers behind the HTTP surface.
type Service struct {
	pipeline *pipeline.Pipeline
	store    storage.Store
	history  int
}

// NewService creates the HTTP service.
func NewService(p *pipeline.Pipeline, store storage.Store, cfg config.PipelineConfig) *Service {
	return &Service{pipeline: p, store: store, history: cfg.HistoryLimit}
}

// NewHTTPServer builds the kratos HTTP server and registers all routes.
func NewHTTPServer(c config.ServerConfig, s *Service) *http.Server {
	// Streams live for the whole pipeline run; no server-side deadline
	// unless one is configured.
	timeout := time.Duration(0)
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err == nil {
			timeout = d
		}
	}

	opts := []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
		http.Timeout(timeout),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}

	srv := http.NewServer(opts...)

	srv.HandleFunc("/healthz", s.handleHealth)
	srv.HandleFunc("/api/search", s.handleSearch)
	srv.HandleFunc("/api/search/stream", s.handleSearchStream)
	srv.HandlePrefix("/api/history", nethttp.HandlerFunc(s.handleHistory))

	return srv
}

type searchRequest struct {
	Query string `json:"query"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Service) handleHealth(w nethttp.ResponseWriter, r *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"})
}

// handleSearch is the non-streaming variant: the whole pipeline runs, then
// the final result is returned in one response.
func (s *Service) handleSearch(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		writeJSON(w, nethttp.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeJSON(w, nethttp.StatusBadRequest, errorBody{Error: "Query is required"})
		return
	}

	result, err := s.pipeline.Run(r.Context(), req.Query, pipeline.DiscardSink)
	if err != nil {
		logger.Log.Errorf("분석 실패 [%s]: %v", req.Query, err)
		writeJSON(w, nethttp.StatusInternalServerError, errorBody{Error: "Failed to process search"})
		return
	}

	writeJSON(w, nethttp.StatusOK, result)
}

// handleSearchStream runs the pipeline with progress framed as server-sent
// events. The server closes the stream in all cases.
func (s *Service) handleSearchStream(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		writeJSON(w, nethttp.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeJSON(w, nethttp.StatusBadRequest, errorBody{Error: "Query is required"})
		return
	}

	flusher, ok := w.(nethttp.Flusher)
	if !ok {
		writeJSON(w, nethttp.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	sink := pipeline.SinkFunc(func(ev pipeline.Event) error {
		// Stop the run at the next stage boundary once the caller is gone.
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	if _, err := s.pipeline.Run(ctx, req.Query, sink); err != nil {
		// The terminal error event has already been sent for stage-fatal
		// failures; disconnects need no further writes.
		logger.Log.Errorf("스트림 분석 실패 [%s]: %v", req.Query, err)
	}
}

// handleHistory serves /api/history (list) and /api/history/{id} (get,
// delete).
func (s *Service) handleHistory(w nethttp.ResponseWriter, r *nethttp.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/history"), "/")

	switch {
	case id == "" && r.Method == nethttp.MethodGet:
		summaries, err := s.store.ListResults(r.Context(), s.history)
		if err != nil {
			logger.Log.Errorf("히스토리 조회 실패: %v", err)
			writeJSON(w, nethttp.StatusInternalServerError, errorBody{Error: "Failed to load history"})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"searches": summaries})

	case id != "" && r.Method == nethttp.MethodGet:
		result, err := s.store.GetResult(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, nethttp.StatusNotFound, errorBody{Error: "Search not found"})
			return
		}
		if err != nil {
			logger.Log.Errorf("히스토리 조회 실패 [%s]: %v", id, err)
			writeJSON(w, nethttp.StatusInternalServerError, errorBody{Error: "Failed to load search"})
			return
		}
		writeJSON(w, nethttp.StatusOK, result)

	case id != "" && r.Method == nethttp.MethodDelete:
		err := s.store.DeleteResult(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, nethttp.StatusNotFound, errorBody{Error: "Search not found"})
			return
		}
		if err != nil {
			logger.Log.Errorf("히스토리 삭제 실패 [%s]: %v", id, err)
			writeJSON(w, nethttp.StatusInternalServerError, errorBody{Error: "Failed to delete search"})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]bool{"success": true})

	default:
		writeJSON(w, nethttp.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	}
}

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorf("응답 직렬화 실패: %v", err)
	}
}
