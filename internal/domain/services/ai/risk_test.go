package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"callguard/internal/domain/models"
)

func TestComputeRisk(t *testing.T) {
	tests := []struct {
		name     string
		intent   float64
		keyword  int
		behavior int
		want     float64
		alert    bool
	}{
		{"all zero", 0, 0, 0, 0, false},
		{"typical scam", 0.85, 75, 45, 72.5, true},
		{"just below threshold", 0.098, 100, 100, 54.9, false},
		{"at threshold", 0.1, 100, 100, 55.0, true},
		{"maximum", 1, 100, 100, 100, true},
		{"intent above one clamps", 3, 100, 100, 100, true},
		{"negative inputs clamp", -1, -50, -50, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ComputeRisk(tt.intent, tt.keyword, tt.behavior)
			assert.Equal(t, tt.want, r.RiskScore)
			assert.Equal(t, tt.alert, r.Alert)
		})
	}
}

func TestComputeRiskMonotonic(t *testing.T) {
	for s := 0; s < 100; s += 5 {
		base := ComputeRisk(0.4, s, 50)
		more := ComputeRisk(0.4, s+5, 50)
		assert.GreaterOrEqual(t, more.RiskScore, base.RiskScore)

		base = ComputeRisk(0.4, 50, s)
		more = ComputeRisk(0.4, 50, s+5)
		assert.GreaterOrEqual(t, more.RiskScore, base.RiskScore)
	}
	for p := 0.0; p < 1.0; p += 0.05 {
		assert.GreaterOrEqual(t, ComputeRisk(p+0.05, 10, 10).RiskScore, ComputeRisk(p, 10, 10).RiskScore)
	}
}

func TestRiskLevel(t *testing.T) {
	assert.Equal(t, models.AlertLevelNone, ComputeRisk(0, 0, 0).Level())
	assert.Equal(t, models.AlertLevelHigh, ComputeRisk(0.85, 75, 45).Level())
	assert.Equal(t, models.AlertLevelCritical, ComputeRisk(1, 100, 100).Level())
}
