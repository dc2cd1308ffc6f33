package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coachdesk/internal/alerts"
	"coachdesk/internal/decision"
	"coachdesk/internal/journal"
	"coachdesk/internal/marketclock"
	"coachdesk/internal/metrics"
	"coachdesk/internal/pkg/circuit"
	"coachdesk/internal/store/kv"
	"coachdesk/internal/vwap"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 10, 10, 30, 0, 0, marketclock.Default().Location())

func newTestServer(t *testing.T, store kv.Store) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if store == nil {
		store = kv.NewMemory()
	}
	rec := metrics.New()
	srv, err := NewServer(ServerConfig{
		Metrics: rec,
		Deps: Deps{
			Engine:  decision.NewEngine(decision.WithObserver(rec)),
			VWAP:    vwap.NewAggregator(nil),
			Journal: journal.New(journal.NewKVRepository(kv.NewMemory()), 0),
			Alerts:  alerts.NewManager(store, 0),
			Metrics: rec,
			Now:     func() time.Time { return fixedNow },
		},
	})
	require.NoError(t, err)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestNewServerRequiresEngine(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newTestServer(t, nil)
	w, body := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, _ = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "coachdesk_http_requests_total")
}

func TestEvaluateSingleAndBatch(t *testing.T) {
	h := newTestServer(t, nil)
	setup := map[string]any{
		"id": "s-1", "type": "trend_continuation", "direction": "bullish", "regime": "trending",
		"entryZone": map[string]any{"low": 99, "high": 101}, "stop": 98,
		"target1": map[string]any{"price": 104}, "confluenceScore": 4, "probability": 60,
	}
	ctx := map[string]any{"regime": "trending", "prediction": map[string]any{"bullishPct": 70, "bearishPct": 30}}

	w, body := do(t, h, http.MethodPost, "/api/setups/evaluate", map[string]any{"setup": setup, "context": ctx})
	require.Equal(t, http.StatusOK, w.Code)
	ev := body["evaluation"].(map[string]any)
	assert.Equal(t, "rules", ev["confidenceSource"])
	assert.NotEmpty(t, ev["setup"].(map[string]any)["tier"])

	second := map[string]any{}
	for k, v := range setup {
		second[k] = v
	}
	second["id"] = "s-2"
	w, body = do(t, h, http.MethodPost, "/api/setups/evaluate", map[string]any{"setups": []any{setup, second}, "context": ctx})
	require.Equal(t, http.StatusOK, w.Code)
	evs := body["evaluations"].([]any)
	require.Len(t, evs, 2)
	assert.Equal(t, "s-2", evs[1].(map[string]any)["setup"].(map[string]any)["id"])

	w, _ = do(t, h, http.MethodPost, "/api/setups/evaluate", map[string]any{"context": ctx})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedHealthEndpoint(t *testing.T) {
	h := newTestServer(t, nil)
	w, body := do(t, h, http.MethodPost, "/api/feed/health", map[string]any{"sequenceGapDetected": true, "streamConnected": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sequence_gap", body["fallbackReasonCode"])
	assert.Equal(t, true, body["blockTradeEntry"])
}

func TestVWAPEndpoints(t *testing.T) {
	h := newTestServer(t, nil)
	ts := fixedNow.UnixMilli()
	w, body := do(t, h, http.MethodPost, "/api/vwap/ticks", map[string]any{"ticks": []any{
		map[string]any{"symbol": "spx", "price": 100, "volume": 10, "timestampMs": ts},
		map[string]any{"symbol": "spx", "price": 102, "volume": 10, "timestampMs": ts + 1000},
		map[string]any{"symbol": "spx", "price": -1, "volume": 10, "timestampMs": ts + 2000},
	}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, body["accepted"])
	assert.Equal(t, 1.0, body["rejected"])

	w, body = do(t, h, http.MethodGet, "/api/vwap/SPX", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 101.0, body["state"].(map[string]any)["vwap"])
	assert.Len(t, body["bands"].(map[string]any)["bands"], 3)

	w, _ = do(t, h, http.MethodDelete, "/api/vwap/SPX", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, h, http.MethodGet, "/api/vwap/SPX", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJournalFlow(t *testing.T) {
	h := newTestServer(t, nil)
	trade := map[string]any{
		"id": "t-1", "userId": "u1", "symbol": "SPX", "direction": "bullish",
		"entryPrice": 100, "exitPrice": 104, "stop": 98, "quantity": 1,
		"entryAtMs": fixedNow.UnixMilli(), "exitAtMs": fixedNow.Add(15 * time.Minute).UnixMilli(),
		"confluenceScore": 4, "probability": 60, "alignmentScore": 80, "evR": 1.2, "stopUsed": true,
	}
	w, body := do(t, h, http.MethodPost, "/api/journal/trades", map[string]any{"trade": trade})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t-1", body["artifact"].(map[string]any)["id"])

	w, body = do(t, h, http.MethodGet, "/api/journal?user=u1&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["count"])

	w, _ = do(t, h, http.MethodGet, "/api/journal/missing?user=u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, h, http.MethodGet, "/api/journal", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	delete(trade, "userId")
	w, _ = do(t, h, http.MethodPost, "/api/journal/trades", map[string]any{"trade": trade})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = do(t, h, http.MethodPost, "/api/sessions/grade", map[string]any{"userId": "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["stats"].(map[string]any)["trades"])

	w, body = do(t, h, http.MethodPost, "/api/sessions/grade", map[string]any{"trades": []any{}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "F", body["grade"])
}

func TestDrillEndpoint(t *testing.T) {
	h := newTestServer(t, nil)
	w, body := do(t, h, http.MethodPost, "/api/drills/score", map[string]any{
		"learnerDirection": "long", "engineDirection": "bullish",
		"strike": 100, "stop": 98, "target": 104, "learnerPnlPct": 10, "actualPnlPct": 11,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["directionMatch"])
}

func TestAlertLifecycleEndpoints(t *testing.T) {
	h := newTestServer(t, nil)
	w, _ := do(t, h, http.MethodPost, "/api/alerts/u1", map[string]any{"id": "a1", "severity": "warning"})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, h, http.MethodGet, "/api/alerts/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["alerts"], 1)

	until := fixedNow.Add(time.Hour).UnixMilli()
	w, body = do(t, h, http.MethodPost, "/api/alerts/u1/a1/snooze", map[string]any{"untilMs": until})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "snoozed", body["alert"].(map[string]any)["status"])

	w, body = do(t, h, http.MethodGet, "/api/alerts/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["alerts"], 0)

	w, body = do(t, h, http.MethodGet, "/api/alerts/u1?all=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["alerts"], 1)

	w, _ = do(t, h, http.MethodPost, "/api/alerts/u1/a1/mute", map[string]any{"untilMs": fixedNow.Add(-time.Minute).UnixMilli()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodPost, "/api/alerts/u1/nope/seen", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, h, http.MethodPost, "/api/alerts/u1", map[string]any{"id": "a2", "severity": "loud"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("io failure") }
func (brokenStore) Set(context.Context, string, []byte) error   { return errors.New("io failure") }
func (brokenStore) Delete(context.Context, string) error        { return errors.New("io failure") }

func TestOpenBreakerMapsTo503(t *testing.T) {
	cb := circuit.NewCircuitBreaker("alerts-kv", 1, time.Minute)
	cb.SetStateChangeHandler(func(string, circuit.State, circuit.State) {})
	h := newTestServer(t, kv.NewGuarded(brokenStore{}, cb))

	w, _ := do(t, h, http.MethodGet, "/api/alerts/u1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w, _ = do(t, h, http.MethodGet, "/api/alerts/u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
