package ai

import (
	"math"
	"strings"

	"callguard/internal/domain/models"
)

// UrgencyLexicon lists phrases that pressure the callee to act now
var UrgencyLexicon = []string{
	"urgent", "immediately", "now", "asap", "jaldi",
	"turant", "abhi", "urgent action", "transfer kar", "block",
}

// ThreatLexicon lists phrases that invoke authority or punishment
var ThreatLexicon = []string{
	"police", "case", "arrest", "fine", "legal action", "kotwal",
}

// Behavior score thresholds and caps. The caps sum to 100.
const (
	FastSpeechWPS    = 3.5
	fastSpeechPoints = 30
	urgencyPerHit    = 10
	urgencyCap       = 30
	repetitionCap    = 20
	threatPerHit     = 10
	threatCap        = 20
)

// AnalyzeBehavior derives speech-rate, urgency, threat and repetition
// features from a transcript. A duration that is not a positive finite
// number means the speech rate is unknown.
func AnalyzeBehavior(text string, durationSeconds float64) models.BehaviorResult {
	if math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) || durationSeconds < 0 {
		durationSeconds = 0
	}

	lowered := normalizeText(text)
	tokens := words(lowered)
	wordCount := len(tokens)

	var wps float64
	if durationSeconds > 0 {
		wps = float64(wordCount) / durationSeconds
	}

	urgency := countPresent(lowered, UrgencyLexicon)
	threat := countPresent(lowered, ThreatLexicon)
	repetition := repetitionRatio(tokens)

	var score float64
	if wps > FastSpeechWPS {
		score += fastSpeechPoints
	}
	score += math.Min(urgencyCap, float64(urgency*urgencyPerHit))
	score += math.Min(repetitionCap, repetition*100)
	score += math.Min(threatCap, float64(threat*threatPerHit))

	return models.BehaviorResult{
		WordCount:       wordCount,
		DurationSeconds: durationSeconds,
		WordsPerSecond:  roundTo(wps, 2),
		UrgencyCount:    urgency,
		ThreatCount:     threat,
		RepetitionRatio: roundTo(repetition, 3),
		BehaviorScore:   clampInt(int(math.Floor(score)), 0, 100),
	}
}

// countPresent counts distinct lexicon entries contained in text
func countPresent(text string, lexicon []string) int {
	n := 0
	for _, phrase := range lexicon {
		if strings.Contains(text, phrase) {
			n++
		}
	}
	return n
}

// repetitionRatio is the fraction of tokens that repeat an earlier token
func repetitionRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(tokens))
	repeats := 0
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			repeats++
			continue
		}
		seen[t] = struct{}{}
	}
	return float64(repeats) / float64(len(tokens))
}
