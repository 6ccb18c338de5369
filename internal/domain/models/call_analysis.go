package models

import (
	"time"

	"github.com/google/uuid"
)

// Reason tags attached to an IntentResult
const (
	ReasonMLHigh   = "ml_high"
	ReasonKeywords = "keywords"
)

// DefaultLanguage is the language tag assumed when the STT collaborator
// does not report one (English/Hindi code-mixed speech).
const DefaultLanguage = "hi-en"

// IntentResult is the output of intent estimation for one transcript
type IntentResult struct {
	IntentProb      float64  `json:"intent_prob"`
	MatchedKeywords []string `json:"matched_keywords"`
	KeywordScore    int      `json:"keyword_score"`
	Reasons         []string `json:"reasons"`
	MLAvailable     bool     `json:"ml_available"`
}

// HasReason reports whether the given tag is present
func (r IntentResult) HasReason(tag string) bool {
	for _, t := range r.Reasons {
		if t == tag {
			return true
		}
	}
	return false
}

// BehaviorResult holds timing and linguistic features of a transcript
type BehaviorResult struct {
	WordCount       int     `json:"word_count"`
	DurationSeconds float64 `json:"duration"`
	WordsPerSecond  float64 `json:"words_per_second"`
	UrgencyCount    int     `json:"urgency_count"`
	ThreatCount     int     `json:"threat_count"`
	RepetitionRatio float64 `json:"repetition_ratio"`
	BehaviorScore   int     `json:"behavior_score"`
}

// RiskAssessment is the final aggregated score
type RiskAssessment struct {
	RiskScore float64 `json:"risk_score"`
	Alert     bool    `json:"alert"`
}

// AlertLevel buckets an alerting risk score
type AlertLevel string

const (
	AlertLevelNone     AlertLevel = "none"
	AlertLevelHigh     AlertLevel = "high"
	AlertLevelCritical AlertLevel = "critical"
)

// Level returns the alert bucket for the assessment
func (r RiskAssessment) Level() AlertLevel {
	switch {
	case !r.Alert:
		return AlertLevelNone
	case r.RiskScore >= 80:
		return AlertLevelCritical
	default:
		return AlertLevelHigh
	}
}

// FallbackInfo describes why a caller substituted the fallback transcript.
// The scoring pipeline never sets it.
type FallbackInfo struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// AnalysisOutcome aggregates everything produced for one call transcript
type AnalysisOutcome struct {
	ID         uuid.UUID      `json:"id"`
	Transcript string         `json:"transcript"`
	Language   string         `json:"language"`
	Intent     IntentResult   `json:"intent"`
	Behavior   BehaviorResult `json:"behavior"`
	Risk       RiskAssessment `json:"risk"`
	Fallback   *FallbackInfo  `json:"fallback,omitempty"`
	Cached     bool           `json:"cached"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}

// IsFallback reports whether fallback metadata is attached
func (o *AnalysisOutcome) IsFallback() bool {
	return o.Fallback != nil
}
