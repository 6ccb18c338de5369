package handlers

import (
	"encoding/json"
	"net/http"

	"callguard/internal/domain/services"
	"callguard/internal/stt"
	"callguard/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health   *HealthHandler
	Analysis *AnalysisHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Service         *services.CallAnalysisService
	Transcriber     stt.Transcriber
	Fallback        *stt.FallbackStore
	SampleAudioPath string
	MaxUploadBytes  int64
	Version         string
	Checks          map[string]CheckFunc
	Logger          *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version, deps.Checks, deps.Logger),
		Analysis: NewAnalysisHandler(AnalysisConfig{
			Service:         deps.Service,
			Transcriber:     deps.Transcriber,
			Fallback:        deps.Fallback,
			SampleAudioPath: deps.SampleAudioPath,
			MaxUploadBytes:  deps.MaxUploadBytes,
		}, deps.Logger),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
