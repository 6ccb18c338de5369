package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"callguard/internal/domain/models"
	"callguard/internal/domain/services"
	"callguard/internal/stt"
	"callguard/pkg/logger"
)

// Fallback reasons reported in AnalysisResponse.FallbackReason
const (
	ReasonNoAudio          = "No audio file provided"
	ReasonUploadError      = "File upload error"
	ReasonEmptyAudio       = "Audio file is empty"
	ReasonAudioUnavailable = "Audio processing unavailable"
	ReasonProcessingError  = "Analysis processing error"
)

const (
	fallbackMessage        = "Fallback demo mode enabled due to time constraints."
	processingErrorMessage = "Fallback demo mode due to processing constraints."

	maxMultipartMemory = 32 << 20
)

// AnalysisResponse is the JSON body returned by every analysis endpoint
type AnalysisResponse struct {
	ID              string                `json:"id,omitempty"`
	Transcript      string                `json:"transcript"`
	Language        string                `json:"language"`
	IntentProb      float64               `json:"intent_prob"`
	MatchedKeywords []string              `json:"matched_keywords"`
	KeywordScore    int                   `json:"keyword_score"`
	Reasons         []string              `json:"reasons"`
	Behavior        models.BehaviorResult `json:"behavior"`
	Risk            models.RiskAssessment `json:"risk"`
	FallbackMode    bool                  `json:"fallback_mode"`
	FallbackReason  *string               `json:"fallback_reason"`
	FallbackMessage *string               `json:"fallback_message"`
	Cached          bool                  `json:"cached"`
	AnalyzedAt      *time.Time            `json:"analyzed_at,omitempty"`
	ErrorContext    string                `json:"error_context,omitempty"`
}

// NewAnalysisResponse flattens an outcome into the response body
func NewAnalysisResponse(o *models.AnalysisOutcome) AnalysisResponse {
	analyzedAt := o.AnalyzedAt
	resp := AnalysisResponse{
		ID:              o.ID.String(),
		Transcript:      o.Transcript,
		Language:        o.Language,
		IntentProb:      o.Intent.IntentProb,
		MatchedKeywords: nonNil(o.Intent.MatchedKeywords),
		KeywordScore:    o.Intent.KeywordScore,
		Reasons:         nonNil(o.Intent.Reasons),
		Behavior:        o.Behavior,
		Risk:            o.Risk,
		Cached:          o.Cached,
		AnalyzedAt:      &analyzedAt,
	}
	if o.Fallback != nil {
		resp.FallbackMode = true
		resp.FallbackReason = &o.Fallback.Reason
		resp.FallbackMessage = &o.Fallback.Message
	}
	return resp
}

// TextAnalysisRequest is the body of POST /api/v1/analyze/text
type TextAnalysisRequest struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds"`
	Language        string  `json:"language"`
}

// AnalysisConfig wires an AnalysisHandler
type AnalysisConfig struct {
	Service         *services.CallAnalysisService
	Transcriber     stt.Transcriber
	Fallback        *stt.FallbackStore
	SampleAudioPath string
	MaxUploadBytes  int64
}

// AnalysisHandler serves the call scoring endpoints
type AnalysisHandler struct {
	service     *services.CallAnalysisService
	transcriber stt.Transcriber
	simulated   stt.Transcriber
	fallback    *stt.FallbackStore
	sampleAudio string
	maxUpload   int64
	logger      *logger.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(cfg AnalysisConfig, log *logger.Logger) *AnalysisHandler {
	transcriber := cfg.Transcriber
	if transcriber == nil {
		transcriber = stt.NewSimulatedTranscriber()
	}
	return &AnalysisHandler{
		service:     cfg.Service,
		transcriber: transcriber,
		simulated:   stt.NewSimulatedTranscriber(),
		fallback:    cfg.Fallback,
		sampleAudio: cfg.SampleAudioPath,
		maxUpload:   cfg.MaxUploadBytes,
		logger:      log.WithComponent("analysis-handler"),
	}
}

// Analyze handles POST /analyze. It accepts a multipart "file" field and an
// optional "simulate" flag, and always answers 200: any problem with the
// upload or the transcription switches to the fallback transcript.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			h.respondFallback(w, r, ReasonNoAudio)
			return
		}
		h.logger.Warn().Err(err).Msg("failed to parse upload")
		h.respondFallback(w, r, ReasonUploadError)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	simulate, _ := strconv.ParseBool(r.FormValue("simulate"))

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			h.respondFallback(w, r, ReasonNoAudio)
			return
		}
		h.logger.Warn().Err(err).Msg("failed to read uploaded file")
		h.respondFallback(w, r, ReasonUploadError)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.respondFallback(w, r, ReasonNoAudio)
		return
	}

	path, size, err := saveTemp(file, header.Filename)
	if err != nil {
		h.logger.Warn().Err(err).Str("filename", header.Filename).Msg("failed to store upload")
		h.respondFallback(w, r, ReasonUploadError)
		return
	}
	defer os.Remove(path)

	if size == 0 {
		h.respondFallback(w, r, ReasonEmptyAudio)
		return
	}

	transcriber := h.transcriber
	if simulate {
		transcriber = h.simulated
	}

	h.logger.Debug().
		Str("filename", header.Filename).
		Int64("size", size).
		Bool("simulate", simulate).
		Msg("processing audio upload")

	h.respondTranscribed(w, r, transcriber, path)
}

// AnalyzeText handles POST /api/v1/analyze/text
func (h *AnalysisHandler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req TextAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.DurationSeconds < 0 {
		http.Error(w, "duration_seconds must not be negative", http.StatusBadRequest)
		return
	}

	h.respond(w, r, services.AnalyzeRequest{
		Text:            req.Text,
		DurationSeconds: req.DurationSeconds,
		Language:        req.Language,
	})
}

// AnalyzeSample handles GET /analyze_sample: the bundled sample recording
// is transcribed and scored, falling back to the stored transcript when it
// is missing or cannot be transcribed.
func (h *AnalysisHandler) AnalyzeSample(w http.ResponseWriter, r *http.Request) {
	if h.sampleAudio != "" {
		if info, err := os.Stat(h.sampleAudio); err == nil && info.Size() > 0 {
			h.respondTranscribed(w, r, h.transcriber, h.sampleAudio)
			return
		}
	}
	h.respondFallback(w, r, ReasonAudioUnavailable)
}

// Sample handles GET /sample with a fixed demonstration response
func (h *AnalysisHandler) Sample(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SampleResponse())
}

// SampleResponse returns the canned body served by GET /sample
func SampleResponse() AnalysisResponse {
	reason := "Demo mode"
	message := "Fallback demo mode due to time constraints"
	return AnalysisResponse{
		Transcript: "Hello sir, this is the bank security department. Your account has been flagged " +
			"for suspicious activity. Please verify your OTP immediately or your account will be blocked.",
		Language:        models.DefaultLanguage,
		IntentProb:      0.85,
		MatchedKeywords: []string{"account", "otp", "verify", "blocked"},
		KeywordScore:    75,
		Reasons:         []string{models.ReasonMLHigh, models.ReasonKeywords},
		Behavior: models.BehaviorResult{
			WordCount:       30,
			DurationSeconds: 15.0,
			WordsPerSecond:  2.0,
			UrgencyCount:    2,
			ThreatCount:     1,
			RepetitionRatio: 0.05,
			BehaviorScore:   45,
		},
		Risk:            models.RiskAssessment{RiskScore: 76.3, Alert: true},
		FallbackMode:    true,
		FallbackReason:  &reason,
		FallbackMessage: &message,
	}
}

func (h *AnalysisHandler) respondTranscribed(w http.ResponseWriter, r *http.Request, transcriber stt.Transcriber, path string) {
	transcript, err := transcriber.Transcribe(r.Context(), path)
	if err != nil || strings.TrimSpace(transcript.Text) == "" {
		if err == nil {
			err = stt.ErrEmptyTranscript
		}
		h.logger.Warn().Err(err).Msg("transcription failed")
		h.respondFallback(w, r, ReasonAudioUnavailable)
		return
	}

	h.respond(w, r, services.AnalyzeRequest{
		Text:            transcript.Text,
		DurationSeconds: transcript.DurationSeconds,
		Language:        transcript.Language,
	})
}

func (h *AnalysisHandler) respondFallback(w http.ResponseWriter, r *http.Request, reason string) {
	text := stt.DemoTranscript
	if h.fallback != nil {
		text = h.fallback.Text()
	}

	h.logger.Info().Str("reason", reason).Msg(fallbackMessage)

	h.respond(w, r, services.AnalyzeRequest{
		Text:     text,
		Language: models.DefaultLanguage,
		Fallback: &models.FallbackInfo{Reason: reason, Message: fallbackMessage},
	})
}

func (h *AnalysisHandler) respond(w http.ResponseWriter, r *http.Request, req services.AnalyzeRequest) {
	outcome, err := h.analyzeSafely(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("analysis failed")
		writeJSON(w, http.StatusOK, processingErrorResponse(req, err))
		return
	}
	writeJSON(w, http.StatusOK, NewAnalysisResponse(outcome))
}

func (h *AnalysisHandler) analyzeSafely(ctx context.Context, req services.AnalyzeRequest) (outcome *models.AnalysisOutcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = nil
			err = fmt.Errorf("analysis panicked: %v", rec)
		}
	}()
	if h.service == nil {
		return nil, errors.New("analysis service not configured")
	}
	return h.service.Analyze(ctx, req), nil
}

func processingErrorResponse(req services.AnalyzeRequest, err error) AnalysisResponse {
	reason := ReasonProcessingError
	message := processingErrorMessage
	language := req.Language
	if language == "" {
		language = models.DefaultLanguage
	}
	return AnalysisResponse{
		Transcript:      req.Text,
		Language:        language,
		MatchedKeywords: []string{},
		Reasons:         []string{},
		FallbackMode:    true,
		FallbackReason:  &reason,
		FallbackMessage: &message,
		ErrorContext:    err.Error(),
	}
}

// saveTemp copies an upload to a temporary file that keeps its extension
func saveTemp(src io.Reader, filename string) (string, int64, error) {
	tmp, err := os.CreateTemp("", "callguard-*"+filepath.Ext(filename))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	return tmp.Name(), n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
