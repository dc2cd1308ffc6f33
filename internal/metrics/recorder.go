// Package metrics 暴露决策引擎、数据源健康、VWAP、日志与提醒的 Prometheus 指标。
package metrics

import (
	"net/http"

	"coachdesk/internal/decision"
	"coachdesk/internal/feedhealth"
	"coachdesk/internal/pkg/circuit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coachdesk"

// rejectedSymbol labels every rejected tick regardless of its symbol.
const rejectedSymbol = "_rejected"

// Recorder owns every collector on a private registry so tests and
// multiple app instances never collide on the global default.
type Recorder struct {
	registry *prometheus.Registry

	evaluations   *prometheus.CounterVec
	confidence    *prometheus.HistogramVec
	tiers         *prometheus.CounterVec
	feedHealth    *prometheus.CounterVec
	blockedEntry  prometheus.Counter
	vwapTicks     *prometheus.CounterVec
	vwapLast      *prometheus.GaugeVec
	journalWrites *prometheus.CounterVec
	alertOps      *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a recorder with process and Go runtime collectors attached.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "evaluations_total",
			Help:      "Setup evaluations by setup type and confidence/tier source",
		}, []string{"setup_type", "confidence_source", "tier_source"}),
		confidence: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "confidence",
			Help:      "Distribution of final setup confidence",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95},
		}, []string{"confidence_source"}),
		tiers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "tiers_total",
			Help:      "Assigned setup tiers",
		}, []string{"tier"}),
		feedHealth: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "health_evaluations_total",
			Help:      "Feed health evaluations by health and reason code",
		}, []string{"health", "reason"}),
		blockedEntry: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "blocked_entries_total",
			Help:      "Feed health evaluations that blocked trade entry",
		}),
		vwapTicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vwap",
			Name:      "ticks_total",
			Help:      "VWAP ticks by symbol and outcome",
		}, []string{"symbol", "result"}),
		vwapLast: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vwap",
			Name:      "value",
			Help:      "Last session VWAP per symbol",
		}, []string{"symbol"}),
		journalWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "appends_total",
			Help:      "Journal artifact appends by outcome",
		}, []string{"result"}),
		alertOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "operations_total",
			Help:      "Alert lifecycle operations by kind and outcome",
		}, []string{"op", "result"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"name"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "class"}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveEvaluation implements decision.Observer.
func (r *Recorder) ObserveEvaluation(ev decision.Evaluation) {
	if r == nil {
		return
	}
	r.evaluations.WithLabelValues(string(ev.Setup.Type), string(ev.ConfidenceSource), string(ev.TierSource)).Inc()
	r.confidence.WithLabelValues(string(ev.ConfidenceSource)).Observe(ev.Confidence)
	r.tiers.WithLabelValues(string(ev.Setup.Tier)).Inc()
}

func (r *Recorder) ObserveFeedHealth(res feedhealth.Result) {
	if r == nil {
		return
	}
	r.feedHealth.WithLabelValues(string(res.DataHealth), string(res.ReasonCode)).Inc()
	if res.BlockTradeEntry {
		r.blockedEntry.Inc()
	}
}

// ObserveVWAPTick counts a tick; rejected ticks leave the gauge untouched.
func (r *Recorder) ObserveVWAPTick(symbol string, vwap float64, accepted bool) {
	if r == nil {
		return
	}
	if !accepted {
		r.vwapTicks.WithLabelValues(rejectedSymbol, "rejected").Inc()
		return
	}
	r.vwapTicks.WithLabelValues(symbol, "accepted").Inc()
	r.vwapLast.WithLabelValues(symbol).Set(vwap)
}

// ForgetVWAPSymbols drops the series of symbols whose aggregates were removed.
func (r *Recorder) ForgetVWAPSymbols(symbols ...string) {
	if r == nil {
		return
	}
	for _, symbol := range symbols {
		r.vwapLast.DeleteLabelValues(symbol)
		r.vwapTicks.DeleteLabelValues(symbol, "accepted")
	}
}

func (r *Recorder) ObserveJournalAppend(err error) {
	if r == nil {
		return
	}
	r.journalWrites.WithLabelValues(result(err)).Inc()
}

func (r *Recorder) ObserveAlertOp(op string, err error) {
	if r == nil {
		return
	}
	r.alertOps.WithLabelValues(op, result(err)).Inc()
}

// ObserveBreaker matches circuit.CircuitBreaker's state change handler.
func (r *Recorder) ObserveBreaker(name string, _, to circuit.State) {
	if r == nil {
		return
	}
	r.breakerState.WithLabelValues(name).Set(float64(to))
}

func (r *Recorder) ObserveHTTP(route, method string, status int, seconds float64) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, statusText(status)).Inc()
	r.httpDuration.WithLabelValues(route, method, statusClass(status)).Observe(seconds)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
