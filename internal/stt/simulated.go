package stt

import (
	"context"

	"callguard/internal/domain/models"
)

// DemoTranscript is a typical Hinglish bank-impersonation call. It is both
// the simulated transcription and the built-in fallback transcript.
const DemoTranscript = "Hello, mujhe bank se bol rahe hain, your account is blocked. " +
	"Please share the OTP you received. It is urgent, transfer kar dijiye otherwise " +
	"your account will be blocked. This is from bank, verify now."

// SimulatedTranscriber returns DemoTranscript for any audio. The duration
// is still probed from the file.
type SimulatedTranscriber struct{}

// NewSimulatedTranscriber creates a simulated transcriber
func NewSimulatedTranscriber() *SimulatedTranscriber {
	return &SimulatedTranscriber{}
}

// Transcribe implements Transcriber
func (SimulatedTranscriber) Transcribe(ctx context.Context, path string) (*Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Transcript{
		Text:            DemoTranscript,
		Language:        models.DefaultLanguage,
		DurationSeconds: AudioDuration(path),
	}, nil
}
