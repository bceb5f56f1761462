package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/runlog"
)

// RunHandler serves the recorded run history read-only.
type RunHandler struct {
	store  runlog.Store
	logger logger.Logger
}

// NewRunHandler creates a new run handler.
func NewRunHandler(store runlog.Store, log logger.Logger) *RunHandler {
	return &RunHandler{
		store:  store,
		logger: log,
	}
}

// NewRouter wires the public health check and the token-protected run endpoints.
func NewRouter(h *RunHandler, auth *TokenMiddleware) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", HealthHandler).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Handler)
	api.HandleFunc("/runs", h.List).Methods("GET")
	api.HandleFunc("/runs/{run_id}", h.GetByID).Methods("GET")
	return router
}

// List handles listing runs, newest first. ?command= filters by command.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	command := r.URL.Query().Get("command")

	runs, err := h.store.List(r.Context(), command, limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list runs", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	total, err := h.store.Count(r.Context(), command)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count runs")
		return
	}

	if runs == nil {
		runs = []*runlog.Run{}
	}
	respondJSON(w, http.StatusOK, PaginatedResponse{
		Items:  runs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetByID handles getting a single run.
func (h *RunHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "run_id", "run")
	if !ok {
		return
	}

	run, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, runlog.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get run", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}
