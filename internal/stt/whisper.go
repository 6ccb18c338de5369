package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"callguard/internal/config"
	"callguard/internal/domain/models"
	"callguard/pkg/logger"
)

// WhisperClient calls a self-hosted Whisper ASR web service
type WhisperClient struct {
	endpoint   string
	language   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewWhisperClient creates a new Whisper client
func NewWhisperClient(cfg config.STTConfig, log *logger.Logger) *WhisperClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000/asr"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &WhisperClient{
		endpoint: endpoint,
		language: cfg.Language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.WithComponent("whisper"),
	}
}

// Transcribe uploads the audio file and returns the recognised text
func (c *WhisperClient) Transcribe(ctx context.Context, path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio file is empty")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="audio_file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", detectAudioMimeType(path, data))
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("whisper API error: %s - %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode whisper response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return nil, ErrEmptyTranscript
	}

	language := result.Language
	if language == "" {
		language = models.DefaultLanguage
	}

	c.logger.Debug().
		Str("file", filepath.Base(path)).
		Str("language", language).
		Dur("took", time.Since(start)).
		Msg("transcribed audio")

	return &Transcript{
		Text:            text,
		Language:        language,
		DurationSeconds: AudioDuration(path),
	}, nil
}

// requestURL adds the ASR query parameters to the endpoint
func (c *WhisperClient) requestURL() string {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return c.endpoint
	}
	q := u.Query()
	q.Set("task", "transcribe")
	q.Set("output", "json")
	if c.language != "" && c.language != "auto" {
		q.Set("language", c.language)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func detectAudioMimeType(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/m4a"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".flac":
		return "audio/flac"
	}

	if len(data) >= 12 {
		switch {
		case string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
			return "audio/wav"
		case string(data[:4]) == "OggS":
			return "audio/ogg"
		case string(data[:4]) == "fLaC":
			return "audio/flac"
		case string(data[:3]) == "ID3", data[0] == 0xFF && data[1]&0xE0 == 0xE0:
			return "audio/mpeg"
		}
	}

	return "application/octet-stream"
}
