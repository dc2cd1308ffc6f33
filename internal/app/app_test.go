package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coachdesk/internal/config"
	"coachdesk/internal/logger"
	"coachdesk/internal/store/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg
}

func TestBuildServesHealthz(t *testing.T) {
	a, err := NewAppBuilder(testConfig(t), WithKVStore(kv.NewMemory())).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tier-softmax-v1")
}

func TestBuildWithSQLiteAndGorm(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Alerts.Backend = config.BackendSQLite
	cfg.Alerts.SQLitePath = filepath.Join(dir, "alerts.db")
	cfg.Journal.Backend = config.BackendGorm
	cfg.Journal.Path = filepath.Join(dir, "journal.db")

	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, a.closers, 2)

	body := `{"id":"a1","severity":"critical"}`
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/alerts/u1", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, a.Close())
	assert.Empty(t, a.closers)
}

func TestBuildRejectsBadWeightsPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.ML.TierWeightsPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewAppBuilder(cfg, WithKVStore(kv.NewMemory())).Build(context.Background())
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.HTTPAddr = "127.0.0.1:0"
	a, err := NewAppBuilder(cfg, WithKVStore(kv.NewMemory())).Build(context.Background())
	require.NoError(t, err)
	a.Summary = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
}

func TestSweepVWAPForgetsMetrics(t *testing.T) {
	a, err := NewAppBuilder(testConfig(t), WithKVStore(kv.NewMemory())).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	tickAt := time.Date(2026, time.March, 10, 10, 0, 0, 0, loc).UnixMilli()
	body := fmt.Sprintf(`{"ticks":[{"symbol":"spy","price":500,"volume":10,"timestampMs":%d}]}`, tickAt)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/vwap/ticks", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, scrape(t, a), `coachdesk_vwap_value{symbol="SPY"}`)

	nextDay := time.Date(2026, time.March, 11, 10, 0, 0, 0, loc).UnixMilli()
	assert.Equal(t, []string{"SPY"}, a.sweepVWAP(nextDay))
	assert.NotContains(t, scrape(t, a), `coachdesk_vwap_value{symbol="SPY"}`)
}

func scrape(t *testing.T, a *App) string {
	t.Helper()
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestSummaryLines(t *testing.T) {
	a, err := NewAppBuilder(testConfig(t), WithKVStore(kv.NewMemory())).Build(context.Background())
	require.NoError(t, err)
	lines := strings.Join(a.Summary.Lines(), "\n")
	assert.Contains(t, lines, "lstm-confidence-v1")
	assert.Contains(t, lines, "memory")
}

func TestSummaryPrintLogsBlock(t *testing.T) {
	a, err := NewAppBuilder(testConfig(t), WithKVStore(kv.NewMemory())).Build(context.Background())
	require.NoError(t, err)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	a.Summary.Print()
	out := buf.String()
	assert.Contains(t, out, "STARTUP SUMMARY")
	assert.Contains(t, out, "lstm-confidence-v1")
	assert.Equal(t, len(a.Summary.Lines()), strings.Count(out, "\n"))
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	_, err := NewApp(context.Background(), nil)
	assert.Error(t, err)
}
