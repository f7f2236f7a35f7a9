// internal/api/handler.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"portfolio-sync/internal/model"
)

// SyncService is the engine surface the API exposes.
type SyncService interface {
	SyncAccount(ctx context.Context, account string) (bool, string, int)
	Busy() bool
	RepositoriesByLanguage(ctx context.Context, language string, limit int32) ([]model.Repository, error)
	AllLanguages(ctx context.Context) ([]model.LanguageStat, error)
	LastSyncLog(ctx context.Context, account string) (*model.SyncLog, error)
	SyncHistory(ctx context.Context, account string, limit int32) ([]model.SyncLog, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	svc     SyncService
	account string
	logger  *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(svc SyncService, account string, logger *slog.Logger) http.Handler {
	h := &Handler{
		svc:     svc,
		account: account,
		logger:  logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/repositories", h.getRepositories)
		r.Get("/languages", h.getLanguages)
		r.Get("/sync/status", h.getSyncStatus)
		r.Get("/sync/history", h.getSyncHistory)
		r.Post("/sync", h.triggerSync)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getRepositories returns cached repositories, optionally filtered by
// language.
// GET /v1/repositories?language=Python&limit=N
func (h *Handler) getRepositories(w http.ResponseWriter, r *http.Request) {
	language := r.URL.Query().Get("language")

	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "50" // Default limit
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
		return
	}

	repos, err := h.svc.RepositoriesByLanguage(r.Context(), language, int32(limit))
	if err != nil {
		h.logger.Error("Failed to list repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if repos == nil {
		repos = []model.Repository{}
	}

	respondWithJSON(w, http.StatusOK, repos)
}

// getLanguages returns the per-language aggregate across the cache.
// GET /v1/languages
func (h *Handler) getLanguages(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.AllLanguages(r.Context())
	if err != nil {
		h.logger.Error("Failed to aggregate languages", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if stats == nil {
		stats = []model.LanguageStat{}
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// getSyncStatus returns the most recent sync log for the configured account.
// GET /v1/sync/status
func (h *Handler) getSyncStatus(w http.ResponseWriter, r *http.Request) {
	syncLog, err := h.svc.LastSyncLog(r.Context(), h.account)
	if err != nil {
		h.logger.Error("Failed to get last sync log", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if syncLog == nil {
		respondWithError(w, http.StatusNotFound, "No sync has been recorded yet")
		return
	}

	respondWithJSON(w, http.StatusOK, syncLog)
}

// getSyncHistory returns the most recent sync logs, newest first.
// GET /v1/sync/history?limit=N
func (h *Handler) getSyncHistory(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "20" // Default limit
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
		return
	}

	logs, err := h.svc.SyncHistory(r.Context(), h.account, int32(limit))
	if err != nil {
		h.logger.Error("Failed to list sync history", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if logs == nil {
		logs = []model.SyncLog{}
	}

	respondWithJSON(w, http.StatusOK, logs)
}

// triggerSync runs a sync pass in the foreground. Passes are serialized:
// the request is refused while another pass is in flight.
// POST /v1/sync
func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	if h.svc.Busy() {
		respondWithError(w, http.StatusConflict, "A sync pass is already in progress")
		return
	}

	ok, message, synced := h.svc.SyncAccount(r.Context(), h.account)
	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}

	respondWithJSON(w, status, map[string]any{
		"success":             ok,
		"message":             message,
		"repositories_synced": synced,
	})
}
