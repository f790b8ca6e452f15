// Package local implements a local filesystem archive for dump files.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local filesystem archive.
type Config struct {
	// Dir is the root directory where dump files are written.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Archive writes dump files to the local filesystem.
type Archive struct {
	dir string
}

// New creates a local archive, creating the directory when it does not exist yet.
func New(cfg Config) (*Archive, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	info, err := os.Stat(cfg.Dir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.Dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat output directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("output path %s is not a directory", cfg.Dir)
	}

	// Fail at startup rather than after the crawl when the directory is read-only.
	probe := filepath.Join(cfg.Dir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("output directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Archive{dir: cfg.Dir}, nil
}

// Dir returns the configured output directory.
func (a *Archive) Dir() string {
	return a.dir
}

// Put writes data to name under the output directory and returns a file:// URI.
func (a *Archive) Put(_ context.Context, name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("file name is required")
	}

	cleanDir := filepath.Clean(a.dir)
	fullPath := filepath.Clean(filepath.Join(cleanDir, name))
	if !strings.HasPrefix(fullPath, cleanDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write dump file: %w", err)
	}
	return "file://" + fullPath, nil
}
