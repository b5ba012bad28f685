package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/edumentor/edumentor/internal/profile"
)

const maxProfileBodyBytes = 64 << 10

// profileHandler serves student profile reads and upserts.
type profileHandler struct {
	store  ProfileStore
	logger *slog.Logger
}

// get handles GET /api/v1/profiles/{userID}.
func (h *profileHandler) get(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	p, err := h.store.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "profile_not_found", "no profile for user", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "profile_load_failed", "failed to load profile", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, p)
}

// put handles PUT /api/v1/profiles/{userID}. The body's user ID, when
// present, must match the path.
func (h *profileHandler) put(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var p profile.Profile
	r.Body = http.MaxBytesReader(w, r.Body, maxProfileBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}

	if p.UserID == "" {
		p.UserID = userID
	} else if p.UserID != userID {
		WriteError(w, http.StatusBadRequest, "user_mismatch", "body user_id does not match path", h.logger)
		return
	}

	if err := h.store.Put(r.Context(), &p); err != nil {
		if errors.Is(err, profile.ErrInvalid) {
			WriteError(w, http.StatusBadRequest, "invalid_profile", err.Error(), h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "profile_save_failed", "failed to save profile", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, &p)
}
