package ai

import (
	"callguard/internal/domain/models"
	"callguard/pkg/logger"
)

// Analyzer runs the full scoring pipeline: keyword and behavior signals,
// intent estimation and risk aggregation. It is built once at startup and
// holds only immutable state, so one Analyzer serves all requests.
type Analyzer struct {
	keywords KeywordList
	intent   *IntentEstimator
	logger   *logger.Logger
}

// NewAnalyzer creates an Analyzer. Pass a nil classifier to run without the
// model signal.
func NewAnalyzer(keywords KeywordList, classifier Classifier, log *logger.Logger) *Analyzer {
	a := &Analyzer{
		keywords: keywords,
		intent:   NewIntentEstimator(keywords, classifier, log),
		logger:   log.WithComponent("analyzer"),
	}
	a.logger.Info().
		Int("keywords", keywords.Len()).
		Bool("classifier", classifier != nil).
		Msg("scoring pipeline ready")
	return a
}

// Analyze scores one transcript. durationSeconds <= 0 means unknown.
// The returned outcome has no ID, timestamp or fallback metadata; those
// belong to the caller.
func (a *Analyzer) Analyze(text string, durationSeconds float64, language string) models.AnalysisOutcome {
	if language == "" {
		language = models.DefaultLanguage
	}

	intent := a.intent.Estimate(text)
	behavior := AnalyzeBehavior(text, durationSeconds)
	risk := ComputeRisk(intent.IntentProb, intent.KeywordScore, behavior.BehaviorScore)

	return models.AnalysisOutcome{
		Transcript: text,
		Language:   language,
		Intent:     intent,
		Behavior:   behavior,
		Risk:       risk,
	}
}

// Keywords returns the keyword list in use
func (a *Analyzer) Keywords() KeywordList {
	return a.keywords
}

// ClassifierAvailable reports whether the model signal is wired in
func (a *Analyzer) ClassifierAvailable() bool {
	return a.intent.ClassifierAvailable()
}
