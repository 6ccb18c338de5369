package ai

import (
	"errors"
	"fmt"
	"math"

	"callguard/internal/domain/models"
	"callguard/internal/metrics"
	"callguard/pkg/logger"
)

// keywordFloorThreshold is the keyword score above which keyword evidence
// raises the intent probability.
const keywordFloorThreshold = 20

// mlHighThreshold is the model probability above which "ml_high" is tagged
const mlHighThreshold = 0.5

// IntentEstimator combines the keyword signal with an optional classifier.
// It holds only read-only state and is safe for concurrent use.
type IntentEstimator struct {
	keywords   KeywordList
	classifier Classifier
	logger     *logger.Logger
}

// NewIntentEstimator creates an estimator. classifier may be nil, in which
// case intent is estimated from keywords alone.
func NewIntentEstimator(keywords KeywordList, classifier Classifier, log *logger.Logger) *IntentEstimator {
	return &IntentEstimator{
		keywords:   keywords,
		classifier: classifier,
		logger:     log.WithComponent("intent-estimator"),
	}
}

// Estimate returns the scam-intent probability for text. It never fails:
// classifier errors degrade to keyword-only estimation.
func (e *IntentEstimator) Estimate(text string) models.IntentResult {
	kw := MatchKeywords(text, e.keywords)

	result := models.IntentResult{
		MatchedKeywords: kw.Matched,
		KeywordScore:    kw.Score,
		Reasons:         []string{},
	}

	if prob, ok := e.modelProbability(text); ok {
		result.MLAvailable = true
		result.IntentProb = prob
		if prob > mlHighThreshold {
			result.Reasons = append(result.Reasons, models.ReasonMLHigh)
		}
	}

	if kw.Score > keywordFloorThreshold {
		result.IntentProb = math.Max(result.IntentProb, float64(kw.Score)/100)
		result.Reasons = append(result.Reasons, models.ReasonKeywords)
	}

	result.IntentProb = clampFloat(result.IntentProb, 0, 1)
	return result
}

// ClassifierAvailable reports whether a model signal can be produced
func (e *IntentEstimator) ClassifierAvailable() bool {
	return e.classifier != nil
}

// modelProbability asks the classifier for a probability. ok is false when
// there is no classifier or it failed in any way, including a panic.
func (e *IntentEstimator) modelProbability(text string) (prob float64, ok bool) {
	if e.classifier == nil {
		return 0, false
	}

	defer func() {
		if r := recover(); r != nil {
			e.classifierFailed(fmt.Errorf("classifier panic: %v", r))
			prob, ok = 0, false
		}
	}()

	p, err := e.classifier.PredictProba(text)
	if errors.Is(err, ErrNoEvidence) {
		return 0, false
	}
	if err != nil {
		e.classifierFailed(err)
		return 0, false
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		e.classifierFailed(fmt.Errorf("classifier returned %v", p))
		return 0, false
	}
	return clampFloat(p, 0, 1), true
}

func (e *IntentEstimator) classifierFailed(err error) {
	metrics.ClassifierFailuresTotal.Inc()
	e.logger.Warn().Err(err).Msg("classifier unavailable, using keyword signal only")
}
