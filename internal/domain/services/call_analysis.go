package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"callguard/internal/domain/models"
	"callguard/internal/domain/services/ai"
	"callguard/internal/infrastructure/cache"
	"callguard/internal/metrics"
	"callguard/pkg/logger"
)

// OutcomeCache stores scored outcomes keyed by their input
type OutcomeCache interface {
	GetAnalysis(ctx context.Context, key string) (*models.AnalysisOutcome, bool, error)
	SetAnalysis(ctx context.Context, key string, outcome *models.AnalysisOutcome, ttl time.Duration) error
}

// AlertPublisher delivers alerting outcomes to downstream consumers
type AlertPublisher interface {
	PublishCallAlert(ctx context.Context, outcome *models.AnalysisOutcome) error
}

// AnalyzeRequest is one transcript to score
type AnalyzeRequest struct {
	Text            string
	DurationSeconds float64
	Language        string

	// Fallback is set when the caller substituted the fallback transcript
	Fallback *models.FallbackInfo
}

// CallAnalysisService wraps the scoring pipeline with identifiers, caching,
// metrics and alert fan-out.
type CallAnalysisService struct {
	analyzer  *ai.Analyzer
	cache     OutcomeCache
	publisher AlertPublisher
	cacheTTL  time.Duration
	logger    *logger.Logger
}

// NewCallAnalysisService creates a new service. cache and publisher are
// optional.
func NewCallAnalysisService(
	analyzer *ai.Analyzer,
	outcomeCache OutcomeCache,
	publisher AlertPublisher,
	cacheTTL time.Duration,
	log *logger.Logger,
) *CallAnalysisService {
	return &CallAnalysisService{
		analyzer:  analyzer,
		cache:     outcomeCache,
		publisher: publisher,
		cacheTTL:  cacheTTL,
		logger:    log.WithComponent("call-analysis"),
	}
}

// Analyze scores a transcript and returns a new outcome. It never fails;
// cache and publishing problems are logged and skipped.
func (s *CallAnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) *models.AnalysisOutcome {
	language := req.Language
	if language == "" {
		language = models.DefaultLanguage
	}

	key := cache.AnalysisKey(req.Text, req.DurationSeconds, language)

	outcome, cached := s.lookup(ctx, key)
	if !cached {
		scored := s.analyzer.Analyze(req.Text, req.DurationSeconds, language)
		outcome = &scored
		s.store(ctx, key, outcome)
	}

	outcome.ID = uuid.New()
	outcome.AnalyzedAt = time.Now().UTC()
	outcome.Cached = cached
	outcome.Fallback = req.Fallback

	log := s.logger.WithAnalysisID(outcome.ID.String())
	log.Info().
		Float64("risk_score", outcome.Risk.RiskScore).
		Bool("alert", outcome.Risk.Alert).
		Int("keyword_score", outcome.Intent.KeywordScore).
		Int("behavior_score", outcome.Behavior.BehaviorScore).
		Bool("cached", cached).
		Bool("fallback", outcome.IsFallback()).
		Msg("call analysed")

	metrics.RecordAnalysis(outcome.Risk.Alert, outcome.IsFallback(), outcome.Risk.RiskScore)
	if req.Fallback != nil {
		metrics.FallbacksTotal.WithLabelValues(req.Fallback.Reason).Inc()
	}

	if outcome.Risk.Alert {
		s.publishAlert(ctx, outcome, log)
	}

	return outcome
}

func (s *CallAnalysisService) lookup(ctx context.Context, key string) (*models.AnalysisOutcome, bool) {
	if s.cache == nil {
		return nil, false
	}

	outcome, found, err := s.cache.GetAnalysis(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		s.logger.Debug().Err(err).Msg("outcome cache lookup failed")
		return nil, false
	case !found || outcome == nil:
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	default:
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return outcome, true
	}
}

func (s *CallAnalysisService) store(ctx context.Context, key string, outcome *models.AnalysisOutcome) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.SetAnalysis(ctx, key, outcome, s.cacheTTL); err != nil {
		s.logger.Debug().Err(err).Msg("outcome cache store failed")
	}
}

func (s *CallAnalysisService) publishAlert(ctx context.Context, outcome *models.AnalysisOutcome, log *logger.Logger) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCallAlert(ctx, outcome); err != nil {
		metrics.AlertsPublishedTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Msg("failed to publish call alert")
		return
	}
	metrics.AlertsPublishedTotal.WithLabelValues("ok").Inc()
}
