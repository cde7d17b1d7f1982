// Package api exposes the orchestrator's RPC surface over HTTP/JSON: a
// chi router with a logger/recoverer/timeout middleware stack and a
// promhttp-mounted /metrics endpoint.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/holomesh/cadopt/internal/app/orchestrator"
	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/taskqueue"
)

// Server wires the HTTP transport over an already-constructed orchestrator,
// task queue, and progress bus.
type Server struct {
	Orchestrator *orchestrator.Orchestrator
	Queue        *taskqueue.Pool
	Bus          *progressbus.Bus
	router       chi.Router
}

// NewServer builds the chi router with the standard middleware stack
// (request id, real ip, logger, panic recoverer, a per-request timeout)
// and mounts every RPC operation.
func NewServer(o *orchestrator.Orchestrator, queue *taskqueue.Pool, bus *progressbus.Bus) *Server {
	s := &Server{Orchestrator: o, Queue: queue, Bus: bus}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/optimize", s.handleOptimize)
	r.Get("/recommendations", s.handleGetRecommendations)
	r.Post("/tasks", s.handleEnqueueTask)
	r.Get("/tasks", s.handleListTasks)
	r.Get("/tasks/{taskID}", s.handleTaskStatus)
	r.Post("/tasks/{taskID}/cancel", s.handleCancelTask)
	r.Get("/tasks/{taskID}/progress", s.handleSubscribeProgress)
	r.Post("/cache/invalidate", s.handleInvalidateCache)
	r.Get("/cache/stats", s.handleCacheStats)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

// Handler returns the server's root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

type optimizeRequestWire struct {
	ToolName        string             `json:"tool_name"`
	ProjectID       string             `json:"project_id"`
	InitialParams   domain.ParamMap    `json:"initial_params"`
	TargetMetrics   map[string]float64 `json:"target_metrics"`
	Strategy        string             `json:"strategy"`
	Budget          int                `json:"budget"`
	InteractionMode string             `json:"interaction_mode"`
	Confidentiality bool               `json:"confidentiality"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var wire optimizeRequestWire
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req := domain.OptimizeRequest{
		ToolName:        wire.ToolName,
		ProjectID:       wire.ProjectID,
		InitialParams:   wire.InitialParams,
		TargetMetrics:   domain.TargetMetrics(wire.TargetMetrics),
		Strategy:        domain.Strategy(wire.Strategy),
		Budget:          wire.Budget,
		InteractionMode: domain.InteractionMode(wire.InteractionMode),
		Confidentiality: wire.Confidentiality,
	}
	result := s.Orchestrator.Optimize(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	toolName := r.URL.Query().Get("tool_name")
	projectContext := make(map[string]string)
	for key, values := range r.URL.Query() {
		const prefix = "ctx."
		if len(key) > len(prefix) && key[:len(prefix)] == prefix && len(values) > 0 {
			projectContext[key[len(prefix):]] = values[0]
		}
	}
	rec, err := s.Orchestrator.GetRecommendations(r.Context(), toolName, projectContext)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type enqueueTaskWire struct {
	ToolName  string          `json:"tool_name"`
	Params    domain.ParamMap `json:"params"`
	ProjectID string          `json:"project_id"`
	Priority  int             `json:"priority"`
}

func (s *Server) handleEnqueueTask(w http.ResponseWriter, r *http.Request) {
	var wire enqueueTaskWire
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	taskID := s.Queue.Add(wire.ToolName, wire.Params, wire.ProjectID, wire.Priority)
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	snapshots := s.Queue.List(r.URL.Query().Get("status"))
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	snapshot, ok := s.Queue.Status(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrTaskNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	ok := s.Queue.Cancel(taskID)
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": ok})
}

// handleSubscribeProgress streams a task's progress events as
// Server-Sent Events: flush after every write, unsubscribe on client
// disconnect.
func (s *Server) handleSubscribeProgress(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("response writer does not support streaming"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.Bus.Subscribe(taskID)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type invalidateCacheWire struct {
	ToolName  string `json:"tool_name"`
	ProjectID string `json:"project_id"`
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	var wire invalidateCacheWire
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n := s.Orchestrator.InvalidateCache(wire.ToolName, wire.ProjectID)
	writeJSON(w, http.StatusOK, map[string]int{"invalidated": n})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Orchestrator.CacheStats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"status": "error", "message": err.Error()})
}
