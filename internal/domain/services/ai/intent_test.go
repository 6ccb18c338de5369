package ai

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"callguard/internal/domain/models"
	"callguard/pkg/logger"
)

type fakeClassifier struct {
	prob  float64
	err   error
	panic bool
	calls int
}

func (f *fakeClassifier) PredictProba(string) (float64, error) {
	f.calls++
	if f.panic {
		panic("model exploded")
	}
	return f.prob, f.err
}

func newEstimator(c Classifier) *IntentEstimator {
	return NewIntentEstimator(DefaultKeywordList(), c, logger.NewNop())
}

func TestEstimateKeywordsOnly(t *testing.T) {
	e := newEstimator(nil)

	r := e.Estimate("your account is blocked")

	assert.Equal(t, []string{"account", "blocked"}, r.MatchedKeywords)
	assert.Equal(t, 25, r.KeywordScore)
	assert.Equal(t, 0.25, r.IntentProb)
	assert.Equal(t, []string{models.ReasonKeywords}, r.Reasons)
	assert.False(t, r.MLAvailable)
}

func TestEstimateKeywordScoreAtFloorIgnored(t *testing.T) {
	e := newEstimator(nil)

	r := e.Estimate("just an otp")

	assert.Equal(t, 13, r.KeywordScore)
	assert.Equal(t, 0.0, r.IntentProb)
	assert.Empty(t, r.Reasons)
	assert.NotNil(t, r.Reasons)
}

func TestEstimateModelHigh(t *testing.T) {
	e := newEstimator(&fakeClassifier{prob: 0.9})

	r := e.Estimate("your account is blocked")

	assert.Equal(t, 0.9, r.IntentProb)
	assert.Equal(t, []string{models.ReasonMLHigh, models.ReasonKeywords}, r.Reasons)
	assert.True(t, r.MLAvailable)
}

func TestEstimateKeywordsRaiseLowModel(t *testing.T) {
	e := newEstimator(&fakeClassifier{prob: 0.1})

	r := e.Estimate("share the otp, account blocked, verify with bank")

	assert.Equal(t, 63, r.KeywordScore)
	assert.Equal(t, 0.63, r.IntentProb)
	assert.Equal(t, []string{models.ReasonKeywords}, r.Reasons)
}

func TestEstimateModelAtThresholdNotTagged(t *testing.T) {
	e := newEstimator(&fakeClassifier{prob: 0.5})

	r := e.Estimate("hello")

	assert.Equal(t, 0.5, r.IntentProb)
	assert.False(t, r.HasReason(models.ReasonMLHigh))
}

func TestEstimateClassifierFailureDegrades(t *testing.T) {
	cases := map[string]*fakeClassifier{
		"error": {err: errors.New("model file missing")},
		"panic": {panic: true},
		"nan":   {prob: math.NaN()},
		"inf":   {prob: math.Inf(1)},
	}

	want := newEstimator(nil).Estimate("your account is blocked")

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEstimator(c)
			var r models.IntentResult
			assert.NotPanics(t, func() { r = e.Estimate("your account is blocked") })
			assert.Equal(t, want, r)
			assert.Equal(t, 1, c.calls)
		})
	}
}

func TestEstimateNoEvidenceIsSilent(t *testing.T) {
	e := newEstimator(&fakeClassifier{err: ErrNoEvidence})

	r := e.Estimate("")

	assert.Equal(t, 0.0, r.IntentProb)
	assert.False(t, r.MLAvailable)
	assert.Empty(t, r.Reasons)
}

func TestEstimateClampsModelOutput(t *testing.T) {
	r := newEstimator(&fakeClassifier{prob: 1.7}).Estimate("hi")
	assert.Equal(t, 1.0, r.IntentProb)

	r = newEstimator(&fakeClassifier{prob: -0.2}).Estimate("hi")
	assert.Equal(t, 0.0, r.IntentProb)
}
