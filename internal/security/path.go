// Package security validates externally supplied filesystem paths before
// they reach the scanner. Watch directories arrive over the admin API, so
// they get the same scrutiny as any other client input.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotAbsolute indicates a watch directory path is not absolute.
	ErrNotAbsolute = errors.New("path must be absolute")

	// ErrSystemPath indicates the path points into a protected system tree.
	ErrSystemPath = errors.New("path is within a protected system directory")

	// ErrNotDirectory indicates the path does not resolve to a directory.
	ErrNotDirectory = errors.New("path is not a directory")
)

// systemRoots are trees the scanner must never index. Indexing /proc or
// /sys would ingest kernel state; /etc and /boot hold credentials and
// boot configuration.
var systemRoots = []string{"/etc", "/dev", "/proc", "/sys", "/boot", "/run"}

// ValidateDirectory checks a client-supplied directory path and returns
// its cleaned, symlink-resolved form. The path must be absolute, exist as
// a directory, and stay outside protected system trees even after symlink
// resolution.
func ValidateDirectory(path string) (string, error) {
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %s", ErrNotAbsolute, path)
	}
	if underSystemRoot(clean) {
		return "", fmt.Errorf("%w: %s", ErrSystemPath, clean)
	}

	resolved, err := filepath.EvalSymlinks(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNotDirectory, clean)
		}
		return "", fmt.Errorf("resolving %s: %w", clean, err)
	}
	// A symlink may point anywhere; the target is what gets scanned.
	if underSystemRoot(resolved) {
		return "", fmt.Errorf("%w: %s resolves to %s", ErrSystemPath, clean, resolved)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("inspecting %s: %w", resolved, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, resolved)
	}
	return resolved, nil
}

func underSystemRoot(path string) bool {
	for _, root := range systemRoots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
