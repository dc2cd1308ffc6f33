package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"coachdesk/internal/decision"
	"coachdesk/internal/feedhealth"
	"coachdesk/internal/model"
	"coachdesk/internal/pkg/circuit"
	"coachdesk/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveEvaluation(t *testing.T) {
	r := New()
	ev := decision.Evaluation{
		Setup:            types.Setup{Type: types.SetupFadeAtWall, Tier: types.TierWatchlist},
		Confidence:       61,
		ConfidenceSource: model.SourceRules,
		TierSource:       model.SourceRules,
	}
	r.ObserveEvaluation(ev)
	r.ObserveEvaluation(ev)

	got := testutil.ToFloat64(r.evaluations.WithLabelValues("fade_at_wall", "rules", "rules"))
	assert.Equal(t, 2.0, got)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.tiers.WithLabelValues("watchlist")))
}

func TestObserveFeedHealthCountsBlocks(t *testing.T) {
	r := New()
	r.ObserveFeedHealth(feedhealth.Result{DataHealth: feedhealth.HealthDegraded, ReasonCode: "sequence_gap", BlockTradeEntry: true})
	r.ObserveFeedHealth(feedhealth.Result{DataHealth: feedhealth.HealthHealthy, ReasonCode: "none"})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.blockedEntry))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.feedHealth.WithLabelValues("healthy", "none")))
}

func TestObserveVWAPAndStores(t *testing.T) {
	r := New()
	r.ObserveVWAPTick("SPX", 5001.25, true)
	r.ObserveVWAPTick("SPX", 0, false)
	r.ObserveVWAPTick("junk-1", 0, false)
	r.ObserveVWAPTick("junk-2", 0, false)
	r.ObserveJournalAppend(nil)
	r.ObserveJournalAppend(errors.New("disk"))
	r.ObserveAlertOp("snooze", nil)
	r.ObserveBreaker("alerts-kv", circuit.StateClosed, circuit.StateOpen)

	assert.Equal(t, 5001.25, testutil.ToFloat64(r.vwapLast.WithLabelValues("SPX")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.vwapTicks.WithLabelValues(rejectedSymbol, "rejected")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.vwapTicks))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.journalWrites.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alertOps.WithLabelValues("snooze", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.breakerState.WithLabelValues("alerts-kv")))
}

func TestForgetVWAPSymbols(t *testing.T) {
	r := New()
	r.ObserveVWAPTick("SPX", 5001.25, true)
	r.ObserveVWAPTick("SPY", 500.5, true)
	require.Equal(t, 2, testutil.CollectAndCount(r.vwapLast))

	r.ForgetVWAPSymbols("SPY")
	assert.Equal(t, 1, testutil.CollectAndCount(r.vwapLast))
	assert.Equal(t, 1, testutil.CollectAndCount(r.vwapTicks))
	assert.Equal(t, 5001.25, testutil.ToFloat64(r.vwapLast.WithLabelValues("SPX")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveEvaluation(decision.Evaluation{})
		r.ObserveFeedHealth(feedhealth.Result{})
		r.ObserveHTTP("/x", "GET", 200, 0.1)
		r.ForgetVWAPSymbols("SPX")
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := New()
	r.ObserveHTTP("/api/drills/score", "POST", 200, 0.002)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "coachdesk_http_requests_total"))
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "5xx", statusClass(503))
}
