package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callguard/internal/config"
	"callguard/pkg/logger"
)

// buildWAV returns a 16-bit PCM WAV with an extra LIST chunk before data
func buildWAV(sampleRate uint32, channels uint16, frames int) []byte {
	blockAlign := channels * 2
	dataSize := uint32(frames) * uint32(blockAlign)

	var b bytes.Buffer
	w := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }

	b.WriteString("RIFF")
	w(uint32(0)) // size is not checked
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1)) // PCM
	w(channels)
	w(sampleRate)
	w(sampleRate * uint32(blockAlign))
	w(blockAlign)
	w(uint16(16))

	b.WriteString("LIST")
	w(uint32(3))
	b.Write([]byte{'a', 'b', 'c', 0}) // odd size plus pad byte

	b.WriteString("data")
	w(dataSize)
	b.Write(make([]byte, dataSize))
	return b.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestProbeWAV(t *testing.T) {
	d, err := ProbeWAV(bytes.NewReader(buildWAV(16000, 1, 40000)))
	require.NoError(t, err)
	assert.Equal(t, 2.5, d)

	d, err = ProbeWAV(bytes.NewReader(buildWAV(8000, 2, 8000)))
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)
}

func TestProbeWAVRejectsOtherData(t *testing.T) {
	_, err := ProbeWAV(bytes.NewReader([]byte("ID3\x03\x00\x00\x00\x00\x00\x00\x00\x00")))
	assert.ErrorIs(t, err, errNotWAV)

	_, err = ProbeWAV(bytes.NewReader([]byte("RIFF")))
	assert.Error(t, err)

	truncated := buildWAV(16000, 1, 10)[:30]
	_, err = ProbeWAV(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestAudioDuration(t *testing.T) {
	path := writeFile(t, "call.wav", buildWAV(16000, 1, 16000*3))
	assert.Equal(t, 3.0, AudioDuration(path))

	assert.Equal(t, 0.0, AudioDuration(filepath.Join(t.TempDir(), "missing.wav")))
	assert.Equal(t, 0.0, AudioDuration(writeFile(t, "x.mp3", []byte("not audio"))))
}

func TestSimulatedTranscriber(t *testing.T) {
	path := writeFile(t, "call.wav", buildWAV(16000, 1, 16000))

	tr, err := NewSimulatedTranscriber().Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, DemoTranscript, tr.Text)
	assert.Equal(t, "hi-en", tr.Language)
	assert.Equal(t, 1.0, tr.DurationSeconds)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSimulatedTranscriber().Transcribe(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWhisperClientTranscribe(t *testing.T) {
	audio := buildWAV(16000, 1, 32000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "transcribe", r.URL.Query().Get("task"))
		assert.Equal(t, "hi", r.URL.Query().Get("language"))

		f, hdr, err := r.FormFile("audio_file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		got, _ := io.ReadAll(f)
		assert.Equal(t, audio, got)
		assert.Equal(t, "call.wav", hdr.Filename)
		assert.Equal(t, "audio/wav", hdr.Header.Get("Content-Type"))

		_ = json.NewEncoder(w).Encode(map[string]string{
			"text":     "  aapka account block ho gaya hai  ",
			"language": "hi",
		})
	}))
	defer srv.Close()

	c := NewWhisperClient(config.STTConfig{Endpoint: srv.URL + "/asr", Language: "hi", Timeout: 5 * time.Second}, logger.NewNop())
	tr, err := c.Transcribe(context.Background(), writeFile(t, "call.wav", audio))

	require.NoError(t, err)
	assert.Equal(t, "aapka account block ho gaya hai", tr.Text)
	assert.Equal(t, "hi", tr.Language)
	assert.Equal(t, 2.0, tr.DurationSeconds)
}

func TestWhisperClientFailures(t *testing.T) {
	serve := func(status int, body string) *WhisperClient {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		}))
		t.Cleanup(srv.Close)
		return NewWhisperClient(config.STTConfig{Endpoint: srv.URL}, logger.NewNop())
	}
	path := writeFile(t, "call.wav", buildWAV(16000, 1, 100))

	_, err := serve(http.StatusOK, `{"text": "   "}`).Transcribe(context.Background(), path)
	assert.ErrorIs(t, err, ErrEmptyTranscript)

	_, err = serve(http.StatusInternalServerError, "model not loaded").Transcribe(context.Background(), path)
	assert.ErrorContains(t, err, "model not loaded")

	_, err = serve(http.StatusOK, "<html>").Transcribe(context.Background(), path)
	assert.Error(t, err)

	c := serve(http.StatusOK, `{"text": "ok"}`)
	_, err = c.Transcribe(context.Background(), writeFile(t, "empty.wav", nil))
	assert.Error(t, err)

	_, err = c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestWhisperRequestURL(t *testing.T) {
	c := NewWhisperClient(config.STTConfig{Endpoint: "http://asr:9000/asr", Language: "auto"}, logger.NewNop())
	assert.Equal(t, "http://asr:9000/asr?output=json&task=transcribe", c.requestURL())
}

func TestDetectAudioMimeType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", detectAudioMimeType("a.MP3", nil))
	assert.Equal(t, "audio/wav", detectAudioMimeType("upload", buildWAV(8000, 1, 1)))
	assert.Equal(t, "audio/ogg", detectAudioMimeType("upload", []byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00")))
	assert.Equal(t, "application/octet-stream", detectAudioMimeType("upload", []byte("hi")))
}

func TestNewTranscriber(t *testing.T) {
	tr, err := NewTranscriber(config.STTConfig{Provider: config.STTProviderWhisper}, logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &WhisperClient{}, tr)

	tr, err = NewTranscriber(config.STTConfig{Provider: config.STTProviderSimulated}, logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SimulatedTranscriber{}, tr)

	_, err = NewTranscriber(config.STTConfig{Provider: "vosk"}, logger.NewNop())
	assert.Error(t, err)
}

func TestFallbackStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s := NewFallbackStore(dir, "fallback_transcript.txt", logger.NewNop())

	assert.Equal(t, DemoTranscript, s.Text(), "missing file falls back to built-in text")

	require.NoError(t, s.EnsureExists())
	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, DemoTranscript+"\n", string(raw))
	assert.Equal(t, DemoTranscript, s.Text())

	require.NoError(t, os.WriteFile(s.Path(), []byte("  custom transcript \n"), 0o600))
	require.NoError(t, s.EnsureExists(), "existing file is kept")
	assert.Equal(t, "custom transcript", s.Text())

	require.NoError(t, os.WriteFile(s.Path(), []byte("\n\n"), 0o600))
	assert.Equal(t, DemoTranscript, s.Text())
}
