package api

import (
	"database/sql"
	"log/slog"
	"net/http"
)

// health is a simple liveness endpoint for container probes.
func health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness reports whether the server can do useful work. With a
// database configured it pings it; without one it matches /health.
func readiness(db *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				WriteError(w, http.StatusServiceUnavailable, "db_unavailable", "database not reachable", slog.Default())
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
