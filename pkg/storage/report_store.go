// Package storage keeps generated report artifacts on local disk and issues
// the signed tokens that let callers download them.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReportStore writes report artifacts under one base directory. Artifact
// names are relative paths like "behavior/<job-id>.csv"; names that resolve
// outside the base directory are rejected.
type ReportStore struct {
	baseDir string
}

// NewReportStore ensures the base directory exists and returns a handle.
func NewReportStore(baseDir string) (*ReportStore, error) {
	if baseDir == "" {
		baseDir = "./reports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	return &ReportStore{baseDir: baseDir}, nil
}

// Save writes one artifact and returns the name it is retrievable under.
func (s *ReportStore) Save(name string, data []byte) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return name, nil
}

// Path maps an artifact name to its on-disk location, rejecting absolute
// names and names that climb out of the base directory.
func (s *ReportStore) Path(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid report artifact name %q", name)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

// CleanupOlderThan deletes artifacts whose modification time is older than
// ttl and reports how many were removed. Intended for an operator cron.
func (s *ReportStore) CleanupOlderThan(ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	removed := 0
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("cleanup report files: %w", err)
	}
	return removed, nil
}
