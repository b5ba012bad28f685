package database

import (
	"database/sql"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// sqlite-vec supplies the vec0 virtual tables behind embedding search.
// Auto registers the extension for every SQLite connection opened in this
// process, so registration happens once at package load.
func init() {
	vec.Auto()
}

// VecVersion reports the loaded sqlite-vec extension version. Useful as a
// startup diagnostic: it fails when the extension did not register.
func VecVersion(db *sql.DB) (string, error) {
	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}
