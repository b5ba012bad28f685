package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// historyHandler serves the recorded exchange log.
type historyHandler struct {
	store  HistoryStore
	logger *slog.Logger
}

// queryLimit parses an optional positive "limit" query parameter. Zero
// means "not set" and lets the store apply its default.
func queryLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, false
	}
	return limit, true
}

// list handles GET /api/v1/history/{userID}?limit=&subject=.
func (h *historyHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	limit, ok := queryLimit(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", h.logger)
		return
	}
	subject := r.URL.Query().Get("subject")

	exchanges, err := h.store.List(r.Context(), userID, limit, subject)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "history_failed", "failed to load history", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"history": exchanges,
		"count":   len(exchanges),
	})
}

// sessions handles GET /api/v1/history/{userID}/sessions.
func (h *historyHandler) sessions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	limit, ok := queryLimit(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", h.logger)
		return
	}

	sessions, err := h.store.RecentSessions(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "sessions_failed", "failed to load sessions", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// stats handles GET /api/v1/history/{userID}/stats.
func (h *historyHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context(), r.PathValue("userID"))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "stats_failed", "failed to load stats", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// search handles GET /api/v1/history/{userID}/search?q=.
func (h *historyHandler) search(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "missing_query", "q is required", h.logger)
		return
	}

	results, err := h.store.Search(r.Context(), userID, query)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "search_failed", "history search failed", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// purge handles DELETE /api/v1/history/{userID}.
func (h *historyHandler) purge(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	deleted, err := h.store.DeleteUser(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete history", h.logger)
		return
	}

	h.logger.Info("history purged", "user", userID, "deleted", deleted)
	WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"deleted_count": deleted,
	})
}
