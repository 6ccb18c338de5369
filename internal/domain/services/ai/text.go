package ai

import (
	"math"
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// wordPattern matches maximal runs of word characters (letters, combining
// marks, digits, underscore), so Devanagari words are not split on vowel signs.
var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// normalizeText folds text to NFKC lowercase. A new Caser is built per call
// because cases.Caser is not safe for concurrent use.
func normalizeText(s string) string {
	return cases.Lower(language.Und).String(norm.NFKC.String(s))
}

// words splits text into maximal word-character runs
func words(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
