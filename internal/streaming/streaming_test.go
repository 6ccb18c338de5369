package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callguard/internal/domain/models"
	"callguard/pkg/logger"
)

func alertOutcome(score float64) *models.AnalysisOutcome {
	return &models.AnalysisOutcome{
		ID:       uuid.New(),
		Language: "hi-en",
		Intent: models.IntentResult{
			MatchedKeywords: []string{"otp", "bank"},
			Reasons:         []string{models.ReasonKeywords},
		},
		Risk: models.RiskAssessment{RiskScore: score, Alert: score >= 55},
	}
}

func TestNewCallAlertEvent(t *testing.T) {
	o := alertOutcome(82.3)
	o.Fallback = &models.FallbackInfo{Reason: "No audio file provided"}

	e := NewCallAlertEvent(o)

	assert.Equal(t, EventTypeCallAlert, e.Type)
	assert.Equal(t, o.ID.String(), e.AnalysisID)
	assert.Equal(t, models.AlertLevelCritical, e.Level)
	assert.Equal(t, 82.3, e.RiskScore)
	assert.True(t, e.Fallback)
	assert.Equal(t, "No audio file provided", e.FallbackReason)
	assert.Equal(t, "calls.alert.critical", AlertSubject(e))

	assert.Equal(t, "calls.alert.high", AlertSubject(NewCallAlertEvent(alertOutcome(60))))
}

func TestSubscriptionMatches(t *testing.T) {
	high := NewCallAlertEvent(alertOutcome(60))
	critical := NewCallAlertEvent(alertOutcome(90))

	var nilSub *Subscription
	assert.True(t, nilSub.Matches(high))

	s := &Subscription{MinLevel: models.AlertLevelCritical}
	assert.False(t, s.Matches(high))
	assert.True(t, s.Matches(critical))

	s = &Subscription{MinRiskScore: 70}
	assert.False(t, s.Matches(high))

	s = &Subscription{Keywords: []string{"kyc"}}
	assert.False(t, s.Matches(high))
	s = &Subscription{Keywords: []string{"kyc", "otp"}}
	assert.True(t, s.Matches(high))

	high.Fallback = true
	assert.False(t, (&Subscription{ExcludeFallback: true}).Matches(high))
}

func TestSubscriptionSubject(t *testing.T) {
	assert.Equal(t, "calls.alert.>", subscriptionSubject(nil))
	assert.Equal(t, "calls.alert.critical", subscriptionSubject(&Subscription{MinLevel: models.AlertLevelCritical}))
}

func TestEventBusLocalFanOut(t *testing.T) {
	bus := NewEventBus(nil, logger.NewNop())
	ctx := context.Background()

	all, unsubAll := bus.Subscribe(ctx, nil)
	crit, unsubCrit := bus.Subscribe(ctx, &Subscription{MinLevel: models.AlertLevelCritical})
	defer unsubCrit()
	assert.Equal(t, 2, bus.SubscriberCount())

	require.NoError(t, bus.Publish(ctx, NewCallAlertEvent(alertOutcome(60))))
	require.NoError(t, bus.Publish(ctx, NewCallAlertEvent(alertOutcome(95))))

	got := <-all
	assert.Equal(t, 60.0, got.RiskScore)
	got = <-all
	assert.Equal(t, 95.0, got.RiskScore)

	select {
	case got = <-crit:
		assert.Equal(t, 95.0, got.RiskScore)
	case <-time.After(time.Second):
		t.Fatal("critical subscriber did not receive event")
	}

	unsubAll()
	_, open := <-all
	assert.False(t, open)
	assert.Equal(t, 1, bus.SubscriberCount())
}

func TestEventBusSubscriptionEndsWithContext(t *testing.T) {
	bus := NewEventBus(nil, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := bus.Subscribe(ctx, &Subscription{})
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	assert.Eventually(t, func() bool { return bus.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestAlertPublisherBroadcastsToWebSocket(t *testing.T) {
	hub := NewWebSocketHub(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	bus := NewEventBus(nil, logger.NewNop())
	pub := NewAlertPublisher(bus, hub)
	outcome := alertOutcome(77.8)
	require.NoError(t, pub.PublishCallAlert(ctx, outcome))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event CallAlertEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, outcome.ID.String(), event.AnalysisID)
	assert.Equal(t, models.AlertLevelHigh, event.Level)
	assert.Equal(t, []string{"otp", "bank"}, event.MatchedKeywords)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
