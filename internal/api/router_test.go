package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callguard/internal/api/handlers"
	apimiddleware "callguard/internal/api/middleware"
	"callguard/internal/config"
	"callguard/internal/domain/services"
	"callguard/internal/domain/services/ai"
	"callguard/internal/streaming"
	"callguard/internal/stt"
	"callguard/pkg/logger"
)

type denyAfter struct {
	limit int64
	seen  int64
}

func (d *denyAfter) CheckRateLimit(_ context.Context, _ string, limit int64, window time.Duration) (bool, int64, time.Time, error) {
	d.seen++
	return d.seen <= d.limit, 0, time.Now().Add(window), nil
}

func newTestRouter(t *testing.T, limiter *denyAfter) http.Handler {
	t.Helper()
	log := logger.NewNop()
	analyzer := ai.NewAnalyzer(ai.DefaultKeywordList(), nil, log)
	h := handlers.NewHandlers(handlers.Dependencies{
		Service:     services.NewCallAnalysisService(analyzer, nil, nil, 0, log),
		Transcriber: stt.NewSimulatedTranscriber(),
		Fallback:    stt.NewFallbackStore(t.TempDir(), "fallback_transcript.txt", log),
		Logger:      log,
	})

	cfg := config.Config{
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		},
		RateLimit: config.RateLimitConfig{Enabled: limiter != nil, RequestsPerMinute: 1},
	}

	var store apimiddleware.RateLimitStore
	if limiter != nil {
		store = limiter
	}
	return NewRouter(cfg, h, store, streaming.NewWebSocketHub(log), log).Setup()
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	cases := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/sample", "", http.StatusOK},
		{http.MethodGet, "/analyze_sample", "", http.StatusOK},
		{http.MethodPost, "/analyze", "", http.StatusOK},
		{http.MethodPost, "/api/v1/analyze", "", http.StatusOK},
		{http.MethodPost, "/api/v1/analyze/text", `{"text":"otp"}`, http.StatusOK},
		{http.MethodGet, "/analyze", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/unknown", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRouterAnalyzeWithoutFileFallsBack(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.FallbackMode)
	require.NotNil(t, resp.FallbackReason)
	assert.Equal(t, handlers.ReasonNoAudio, *resp.FallbackReason)
}

func TestRouterCORS(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterRateLimitsScoringOnly(t *testing.T) {
	router := newTestRouter(t, &denyAfter{limit: 1})

	do := func(method, path string) int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/sample"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodGet, "/sample"))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/health"), "probes bypass the limiter")
}
