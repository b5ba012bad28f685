package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/edumentor/edumentor/internal/profile"
	"github.com/edumentor/edumentor/internal/testutil"
)

// newProfileStore builds a real file-backed store in a temp dir.
func newProfileStore(t *testing.T) *profile.Store {
	t.Helper()
	store, err := profile.NewStore(filepath.Join(t.TempDir(), "profiles.json"), testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestProfile_RoundTrip(t *testing.T) {
	handler := testServer(t, ServerConfig{Profiles: newProfileStore(t)})

	body := jsonBody(t, map[string]any{
		"name":        "Asha",
		"age":         10,
		"grade":       "5",
		"proficiency": "beginner",
		"weak_areas":  []string{"fractions"},
	})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/profiles/u1", body))

	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/profiles/u1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d: %s", w.Code, w.Body.String())
	}
	var got profile.Profile
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("UserID = %q, want path user ID filled in", got.UserID)
	}
	if got.Name != "Asha" || got.Age != 10 {
		t.Errorf("profile = %+v, want stored fields back", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be stamped on Put")
	}
}

func TestProfile_NotFound(t *testing.T) {
	handler := testServer(t, ServerConfig{Profiles: newProfileStore(t)})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/profiles/ghost", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "profile_not_found" {
		t.Errorf("code = %q, want profile_not_found", env.Error.Code)
	}
}

func TestProfile_UserMismatch(t *testing.T) {
	handler := testServer(t, ServerConfig{Profiles: newProfileStore(t)})

	body := jsonBody(t, map[string]any{"user_id": "someone-else", "name": "Asha"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/profiles/u1", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "user_mismatch" {
		t.Errorf("code = %q, want user_mismatch", env.Error.Code)
	}
}

func TestProfile_InvalidProfile(t *testing.T) {
	handler := testServer(t, ServerConfig{Profiles: newProfileStore(t)})

	body := jsonBody(t, map[string]any{"age": 300})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/profiles/u1", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "invalid_profile" {
		t.Errorf("code = %q, want invalid_profile", env.Error.Code)
	}
}

func TestProfile_InvalidJSON(t *testing.T) {
	handler := testServer(t, ServerConfig{Profiles: newProfileStore(t)})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/api/v1/profiles/u1", jsonBody(t, "not an object"))
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// failingProfileStore errors on every call.
type failingProfileStore struct{}

func (failingProfileStore) Get(context.Context, string) (*profile.Profile, error) {
	return nil, errors.New("disk on fire")
}

func (failingProfileStore) Put(context.Context, *profile.Profile) error {
	return errors.New("disk on fire")
}

func TestProfile_StoreFailure(t *testing.T) {
	handler := testServer(t, ServerConfig{Profiles: failingProfileStore{}})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/profiles/u1", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("GET status = %d, want 500", w.Code)
	}

	w = httptest.NewRecorder()
	body := jsonBody(t, map[string]any{"name": "Asha"})
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/profiles/u1", body))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("PUT status = %d, want 500", w.Code)
	}
}
