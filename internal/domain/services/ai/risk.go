package ai

import "callguard/internal/domain/models"

// Aggregation weights. Intent carries half the score since it already
// blends lexical and model evidence.
const (
	IntentWeight   = 0.5
	KeywordWeight  = 0.25
	BehaviorWeight = 0.25

	// AlertThreshold is inclusive: a risk score of exactly 55.0 alerts.
	AlertThreshold = 55.0
)

// ComputeRisk combines the three signals into a 0-100 risk score rounded to
// one decimal place. The alert flag is evaluated on the rounded score.
func ComputeRisk(intentProb float64, keywordScore, behaviorScore int) models.RiskAssessment {
	risk := IntentWeight*(intentProb*100) +
		KeywordWeight*float64(keywordScore) +
		BehaviorWeight*float64(behaviorScore)

	score := roundTo(clampFloat(risk, 0, 100), 1)
	return models.RiskAssessment{
		RiskScore: score,
		Alert:     score >= AlertThreshold,
	}
}
