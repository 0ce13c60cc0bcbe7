package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	appDirName    = "moodledger"
	dbFileName    = "moodledger.db"
	inMemoryDBDSN = ":memory:"
)

// DefaultDBPath returns a system-appropriate default path for the SQLite
// database.
func DefaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return dbFileName
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(homeDir, "AppData", "Roaming", appDirName, dbFileName)
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appDirName, dbFileName)
	default: // Primarily Linux, but also other UNIX-like systems.
		return filepath.Join(homeDir, ".local", "share", appDirName, dbFileName)
	}
}

// ResolveAndEnsureDBPath expands ~, makes the path absolute and creates its
// directory. ":memory:" and file: URIs are returned unchanged.
func ResolveAndEnsureDBPath(providedPath string) (string, error) {
	targetPath := providedPath
	if targetPath == "" {
		targetPath = DefaultDBPath()
	}
	if targetPath == inMemoryDBDSN || strings.HasPrefix(targetPath, "file:") {
		return targetPath, nil
	}

	if rest, ok := strings.CutPrefix(targetPath, "~/"); ok {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", targetPath, err)
		}
		targetPath = filepath.Join(homeDir, rest)
	}

	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", targetPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("create database directory for %q: %w", absPath, err)
	}
	return absPath, nil
}
