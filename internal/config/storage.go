package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandedDataDir returns DataDir with a leading "~" resolved against the
// user's home directory. The result is always an absolute path.
func (c *Config) ExpandedDataDir() (string, error) {
	dir := c.DataDir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving data directory: %w", err)
	}
	return abs, nil
}

// DatabasePath returns the SQLite database location. A relative
// database_file resolves under the data directory; absolute paths are
// used as-is.
func (c *Config) DatabasePath() (string, error) {
	return c.resolveDataPath(c.DatabaseFile)
}

// ProfilesPath returns the student profiles JSON file location, resolved
// the same way as DatabasePath.
func (c *Config) ProfilesPath() (string, error) {
	return c.resolveDataPath(c.ProfilesFile)
}

func (c *Config) resolveDataPath(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := c.ExpandedDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
