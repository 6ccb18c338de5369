package stt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"callguard/pkg/logger"
)

// FallbackStore serves the transcript used when audio cannot be analysed
type FallbackStore struct {
	path   string
	logger *logger.Logger
}

// NewFallbackStore creates a store backed by dir/file
func NewFallbackStore(dir, file string, log *logger.Logger) *FallbackStore {
	return &FallbackStore{
		path:   filepath.Join(dir, file),
		logger: log.WithComponent("fallback-store"),
	}
}

// Path returns the transcript file location
func (s *FallbackStore) Path() string {
	return s.path
}

// EnsureExists writes DemoTranscript to the file if it is missing
func (s *FallbackStore) EnsureExists() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat fallback transcript: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(DemoTranscript+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write fallback transcript: %w", err)
	}

	s.logger.Info().Str("path", s.path).Msg("created fallback transcript")
	return nil
}

// Text returns the stored transcript, or DemoTranscript when the file is
// unreadable or blank.
func (s *FallbackStore) Text() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn().Err(err).Msg("unable to read fallback transcript, using built-in text")
		return DemoTranscript
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return DemoTranscript
	}
	return text
}
