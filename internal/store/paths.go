package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/gravsim/internal/constants"
)

// DefaultDBName is the recorder database file created under ~/.gravsim
// when a record path is requested without a directory.
const DefaultDBName = "runs.db"

// GlobalPath returns the path to the global .gravsim directory.
// On Unix: ~/.gravsim
// On Windows: %USERPROFILE%\.gravsim
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DirName), nil
}

// EnsureGlobalDir creates the global .gravsim directory if it doesn't exist
// and returns its path.
func EnsureGlobalDir() (string, error) {
	globalPath, err := GlobalPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(globalPath, 0700); err != nil {
		return "", fmt.Errorf("failed to create global .gravsim directory: %w", err)
	}

	return globalPath, nil
}

// DefaultDBPath returns ~/.gravsim/runs.db, creating the directory.
func DefaultDBPath() (string, error) {
	dir, err := EnsureGlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultDBName), nil
}
