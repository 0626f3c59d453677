// Package dotdir manages resolution and ownership of the .mediguide/
// directory that holds per-deployment state: config.toml, the vector index
// artifact, and the conversation database.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".mediguide"

// Manager resolves and manages .mediguide/ directories.
type Manager struct{}

// NewManager creates a new dotdir manager.
func NewManager() *Manager {
	return &Manager{}
}

// Target resolves the .mediguide/ directory to use.
//
// Resolution order:
//  1. overrideDir, when non-empty (created if missing)
//  2. ./.mediguide in the current working directory, when present
//  3. ~/.mediguide in the user's home directory, when present
//
// Returns "" (no error) when no directory was resolved; callers fall back
// to defaults.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o700); err != nil {
			return "", fmt.Errorf("resolving override dir: %w", err)
		}
		return overrideDir, nil
	}

	cwd, err := os.Getwd()
	if err == nil {
		local := filepath.Join(cwd, dirName)
		if dirExists(local) {
			return local, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	global := filepath.Join(home, dirName)
	if dirExists(global) {
		return global, nil
	}

	return "", nil
}

// EnsureTarget resolves the .mediguide/ directory, creating ~/.mediguide
// when nothing exists yet. Used by commands that must write state.
func (m *Manager) EnsureTarget(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	if target != "" {
		return target, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	global := filepath.Join(home, dirName)
	if err := os.MkdirAll(global, 0o700); err != nil {
		return "", fmt.Errorf("creating %s: %w", global, err)
	}
	return global, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
