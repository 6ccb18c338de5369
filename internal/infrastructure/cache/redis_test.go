package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisKey(t *testing.T) {
	k := AnalysisKey("share your otp", 12.5, "hi-en")

	assert.True(t, strings.HasPrefix(k, KeyAnalysisPrefix))
	assert.Len(t, strings.TrimPrefix(k, KeyAnalysisPrefix), 64)
	assert.Equal(t, k, AnalysisKey("share your otp", 12.5, "hi-en"))

	assert.NotEqual(t, k, AnalysisKey("share your otp", 12.50001, "hi-en"))
	assert.NotEqual(t, k, AnalysisKey("share your otp", 12.5, "en"))
	assert.NotEqual(t, k, AnalysisKey("share your OTP", 12.5, "hi-en"))
}

func TestAnalysisKeySeparatorInFields(t *testing.T) {
	assert.NotEqual(t, AnalysisKey("x", 1, "2|y"), AnalysisKey("x|1", 2, "y"))
	assert.NotEqual(t, AnalysisKey("a|b", 0, "c"), AnalysisKey("a", 0, "b|c"))
	assert.NotEqual(t, AnalysisKey("1:a|", 0, ""), AnalysisKey("", 0, "1:a|"))
}

func TestKeyPrefix(t *testing.T) {
	c := &RedisCache{keyPrefix: "callguard:"}
	assert.Equal(t, "callguard:cache:analysis:x", c.key(KeyAnalysisPrefix+"x"))
}

func TestRateLimitKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.Equal(t, "rate_limit:10.0.0.1:28333333", rateLimitKey("10.0.0.1", now, time.Minute))
	assert.Equal(t,
		rateLimitKey("10.0.0.1", now, time.Minute),
		rateLimitKey("10.0.0.1", now.Add(20*time.Second), time.Minute))
	assert.NotPanics(t, func() { rateLimitKey("k", now, 0) })
}
