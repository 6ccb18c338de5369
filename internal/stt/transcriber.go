// Package stt talks to the speech-to-text collaborator and manages the
// transcripts used when audio cannot be processed.
package stt

import (
	"context"
	"errors"
	"fmt"

	"callguard/internal/config"
	"callguard/pkg/logger"
)

// ErrEmptyTranscript is returned when the engine produced no text
var ErrEmptyTranscript = errors.New("empty transcript returned from STT")

// Transcript is the text recovered from one audio file
type Transcript struct {
	Text            string  `json:"text"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"duration"`
}

// Transcriber turns an audio file into text
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (*Transcript, error)
}

// NewTranscriber builds the transcriber selected by cfg.Provider
func NewTranscriber(cfg config.STTConfig, log *logger.Logger) (Transcriber, error) {
	switch cfg.Provider {
	case config.STTProviderWhisper:
		return NewWhisperClient(cfg, log), nil
	case config.STTProviderSimulated, "":
		return NewSimulatedTranscriber(), nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.Provider)
	}
}
