package ai

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchKeywordsListOrderAndCase(t *testing.T) {
	list := NewKeywordList([]string{"otp", "bank"})

	m := MatchKeywords("Please call the BANK, share your OTP", list)

	assert.Equal(t, []string{"otp", "bank"}, m.Matched)
	assert.Equal(t, 100, m.Score)
}

func TestMatchKeywordsEmptyList(t *testing.T) {
	m := MatchKeywords("share your otp", NewKeywordList(nil))
	assert.Empty(t, m.Matched)
	assert.NotNil(t, m.Matched)
	assert.Equal(t, 0, m.Score)
}

func TestMatchKeywordsPhrasesAndPartials(t *testing.T) {
	list := NewKeywordList([]string{"legal action", "block", "refund"})

	m := MatchKeywords("We will take LEGAL ACTION, your card is blocked", list)

	assert.Equal(t, []string{"legal action", "block"}, m.Matched)
	assert.Equal(t, 67, m.Score, "2/3 rounds to 67")
}

func TestMatchKeywordsScoreRounding(t *testing.T) {
	m := MatchKeywords("otp", DefaultKeywordList())
	assert.Equal(t, 13, m.Score, "1/8 = 12.5 rounds half away from zero")

	m = MatchKeywords("nothing relevant here", DefaultKeywordList())
	assert.Equal(t, 0, m.Score)
}

func TestNewKeywordListNormalises(t *testing.T) {
	list := NewKeywordList([]string{"  OTP ", "", "Legal Action"})
	assert.Equal(t, []string{"otp", "legal action"}, list.Terms())

	terms := list.Terms()
	terms[0] = "mutated"
	assert.Equal(t, "otp", list.Terms()[0], "Terms returns a copy")
}

func TestParseKeywords(t *testing.T) {
	in := "# scam phrases\notp\n\n  bank  \n#comment\nlegal action\n"
	phrases, err := ParseKeywords(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"otp", "bank", "legal action"}, phrases)
}

type stubSource struct {
	phrases []string
	err     error
}

func (s stubSource) LoadKeywords(context.Context) ([]string, error) {
	return s.phrases, s.err
}

func TestLoadKeywordsFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()

	list, err := LoadKeywords(ctx, FileKeywordSource{Path: filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
	assert.Equal(t, DefaultKeywords, list.Terms())

	list, err = LoadKeywords(ctx, stubSource{phrases: []string{"  ", ""}})
	assert.ErrorIs(t, err, ErrNoKeywords)
	assert.Equal(t, DefaultKeywords, list.Terms())

	list, err = LoadKeywords(ctx, stubSource{err: errors.New("db down")})
	assert.Error(t, err)
	assert.Equal(t, 8, list.Len())

	list, err = LoadKeywords(ctx, nil)
	assert.ErrorIs(t, err, ErrNoKeywords)
	assert.Equal(t, 8, list.Len())
}

func TestLoadKeywordsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scam_keywords.txt")
	require.NoError(t, os.WriteFile(path, []byte("# list\nKYC\ngift card\n"), 0o600))

	list, err := LoadKeywords(context.Background(), FileKeywordSource{Path: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"kyc", "gift card"}, list.Terms())
}
