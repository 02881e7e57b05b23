package identity

import (
	"os"
	"path/filepath"
)

// DefaultStorePath returns the well-known location of the identity store
// file, honoring AXES_CONFIG_DIR for tests and alternate installs.
func DefaultStorePath() (string, error) {
	if dir := os.Getenv("AXES_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "index.bin"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "axes", "index.bin"), nil
}
