package ai

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// DefaultKeywords is used whenever the configured keyword source is
// unavailable or yields nothing.
var DefaultKeywords = []string{"otp", "account", "blocked", "transfer", "urgent", "kyc", "verify", "bank"}

// ErrNoKeywords is returned by LoadKeywords when a source produced no entries
var ErrNoKeywords = errors.New("keyword source is empty")

// KeywordList is an ordered, lowercase, read-only list of scam phrases
type KeywordList struct {
	terms []string
}

// NewKeywordList builds a list from raw phrases. Entries are trimmed and
// lowercased; blanks are dropped. Order is preserved.
func NewKeywordList(phrases []string) KeywordList {
	terms := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = normalizeText(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		terms = append(terms, p)
	}
	return KeywordList{terms: terms}
}

// DefaultKeywordList returns the built-in list
func DefaultKeywordList() KeywordList {
	return NewKeywordList(DefaultKeywords)
}

// Len returns the number of phrases
func (l KeywordList) Len() int {
	return len(l.terms)
}

// Terms returns a copy of the phrases in list order
func (l KeywordList) Terms() []string {
	out := make([]string, len(l.terms))
	copy(out, l.terms)
	return out
}

// KeywordMatch is the keyword signal for one transcript
type KeywordMatch struct {
	Matched []string
	Score   int
}

// MatchKeywords returns the phrases of list (in list order) contained
// anywhere in text, and a 0-100 score proportional to the fraction matched.
// Matching is case-insensitive substring containment so multi-word phrases
// and partial words both count.
func MatchKeywords(text string, list KeywordList) KeywordMatch {
	match := KeywordMatch{Matched: []string{}}
	if list.Len() == 0 {
		return match
	}

	lowered := normalizeText(text)
	for _, k := range list.terms {
		if strings.Contains(lowered, k) {
			match.Matched = append(match.Matched, k)
		}
	}

	score := math.Round(100 * float64(len(match.Matched)) / float64(max(1, list.Len())))
	match.Score = clampInt(int(score), 0, 100)
	return match
}

// ParseKeywords reads newline-delimited phrases, skipping blank lines and
// lines starting with '#'.
func ParseKeywords(r io.Reader) ([]string, error) {
	var phrases []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keywords: %w", err)
	}
	return phrases, nil
}

// KeywordSource supplies raw keyword phrases at startup
type KeywordSource interface {
	LoadKeywords(ctx context.Context) ([]string, error)
}

// FileKeywordSource reads phrases from a text file
type FileKeywordSource struct {
	Path string
}

// LoadKeywords implements KeywordSource
func (s FileKeywordSource) LoadKeywords(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword file: %w", err)
	}
	defer f.Close()
	return ParseKeywords(f)
}

// LoadKeywords builds the process-wide keyword list from src. It always
// returns a usable list: on any failure, or when src yields no phrases,
// the default list is returned together with the error that caused it.
func LoadKeywords(ctx context.Context, src KeywordSource) (KeywordList, error) {
	if src == nil {
		return DefaultKeywordList(), ErrNoKeywords
	}
	phrases, err := src.LoadKeywords(ctx)
	if err != nil {
		return DefaultKeywordList(), err
	}
	list := NewKeywordList(phrases)
	if list.Len() == 0 {
		return DefaultKeywordList(), ErrNoKeywords
	}
	return list, nil
}
