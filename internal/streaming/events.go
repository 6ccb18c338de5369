package streaming

import (
	"time"

	"github.com/google/uuid"

	"callguard/internal/domain/models"
)

// EventType represents the type of call event
type EventType string

const (
	EventTypeCallAlert EventType = "call_alert"
)

// CallAlertEvent is emitted when an analysed call crosses the alert threshold
type CallAlertEvent struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	AnalysisID string            `json:"analysis_id"`
	RiskScore  float64           `json:"risk_score"`
	Level      models.AlertLevel `json:"level"`

	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	Reasons         []string `json:"reasons,omitempty"`
	Language        string   `json:"language,omitempty"`

	// Fallback is true when the transcript was substituted by the caller
	Fallback       bool   `json:"fallback"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// NewCallAlertEvent creates an alert event from an analysis outcome
func NewCallAlertEvent(outcome *models.AnalysisOutcome) *CallAlertEvent {
	event := &CallAlertEvent{
		ID:              uuid.New().String(),
		Type:            EventTypeCallAlert,
		Timestamp:       time.Now().UTC(),
		AnalysisID:      outcome.ID.String(),
		RiskScore:       outcome.Risk.RiskScore,
		Level:           outcome.Risk.Level(),
		MatchedKeywords: outcome.Intent.MatchedKeywords,
		Reasons:         outcome.Intent.Reasons,
		Language:        outcome.Language,
	}

	if outcome.Fallback != nil {
		event.Fallback = true
		event.FallbackReason = outcome.Fallback.Reason
	}

	return event
}

// Subscription represents a client's alert filter
type Subscription struct {
	// Only critical alerts when set to "critical" (empty = all)
	MinLevel models.AlertLevel `json:"min_level,omitempty"`

	// Minimum risk score (0 = all)
	MinRiskScore float64 `json:"min_risk_score,omitempty"`

	// Require at least one of these keywords (empty = all)
	Keywords []string `json:"keywords,omitempty"`

	// Drop alerts produced from fallback transcripts
	ExcludeFallback bool `json:"exclude_fallback,omitempty"`
}

var levelOrder = map[models.AlertLevel]int{
	models.AlertLevelNone:     0,
	models.AlertLevelHigh:     1,
	models.AlertLevelCritical: 2,
}

// Matches checks if an event matches the subscription filters
func (s *Subscription) Matches(event *CallAlertEvent) bool {
	if s == nil {
		return true
	}

	if s.MinLevel != "" && levelOrder[event.Level] < levelOrder[s.MinLevel] {
		return false
	}

	if event.RiskScore < s.MinRiskScore {
		return false
	}

	if s.ExcludeFallback && event.Fallback {
		return false
	}

	if len(s.Keywords) > 0 {
		found := false
		for _, k := range s.Keywords {
			for _, ek := range event.MatchedKeywords {
				if k == ek {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}

	return true
}
