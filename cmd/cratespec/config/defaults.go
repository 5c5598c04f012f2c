package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigLocations returns the cratespec.toml locations to search, in
// precedence order (first existing file wins).
func DefaultConfigLocations() []string {
	var locations []string

	if cwd, err := os.Getwd(); err == nil {
		locations = append(locations, filepath.Join(cwd, "cratespec.toml"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "cratespec", "config.toml"))
	}

	return locations
}

// FindConfigFile returns the first existing cratespec.toml, or "" if none exist.
func FindConfigFile() string {
	for _, loc := range DefaultConfigLocations() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}
