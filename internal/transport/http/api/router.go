package apihttp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coachdesk/internal/alerts"
	"coachdesk/internal/decision"
	"coachdesk/internal/feedhealth"
	"coachdesk/internal/journal"
	"coachdesk/internal/logger"
	"coachdesk/internal/metrics"
	"coachdesk/internal/model"
	"coachdesk/internal/pkg/circuit"
	"coachdesk/internal/store/kv"
	"coachdesk/internal/tier"
	"coachdesk/internal/vwap"

	"github.com/gin-gonic/gin"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = journal.DefaultMaxItems
)

// Deps 汇总路由依赖；除 Engine 外均可为空，对应接口返回 503。
type Deps struct {
	Engine     *decision.Engine
	Confidence *model.ConfidenceModel
	Tiers      *tier.Registry
	VWAP       *vwap.Aggregator
	Journal    *journal.Journal
	Alerts     *alerts.Manager
	FeedHealth feedhealth.Thresholds
	Metrics    *metrics.Recorder
	Now        func() time.Time
}

// Router 暴露决策、数据源健康、VWAP、日志、提醒与复盘评分接口。
type Router struct {
	deps Deps
}

func NewRouter(deps Deps) *Router {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Router{deps: deps}
}

func (r *Router) nowMs() int64 { return r.deps.Now().UnixMilli() }

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/setups/evaluate", r.handleEvaluate)
	group.GET("/models", r.handleModels)
	group.POST("/feed/health", r.handleFeedHealth)

	group.POST("/vwap/ticks", r.handleVWAPTicks)
	group.GET("/vwap", r.handleVWAPSymbols)
	group.GET("/vwap/:symbol", r.handleVWAPSnapshot)
	group.DELETE("/vwap/:symbol", r.handleVWAPReset)
	group.DELETE("/vwap", r.handleVWAPResetAll)

	group.POST("/journal/trades", r.handleJournalRecord)
	group.GET("/journal", r.handleJournalList)
	group.GET("/journal/:id", r.handleJournalGet)
	group.POST("/sessions/grade", r.handleSessionGrade)

	group.POST("/drills/score", r.handleDrillScore)

	group.GET("/alerts/:user", r.handleAlertsList)
	group.POST("/alerts/:user", r.handleAlertUpsert)
	group.POST("/alerts/:user/:id/seen", r.handleAlertSeen)
	group.POST("/alerts/:user/:id/snooze", r.handleAlertSnooze)
	group.POST("/alerts/:user/:id/mute", r.handleAlertMute)
}

// writeError maps domain errors to status codes.
func writeError(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, circuit.ErrOpen):
		status = http.StatusServiceUnavailable
	case errors.Is(err, journal.ErrNotFound), errors.Is(err, alerts.ErrUnknownAlert), errors.Is(err, kv.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, journal.ErrMissingUser), errors.Is(err, alerts.ErrInvalidInput), errors.Is(err, alerts.ErrInvalidWindow):
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		logger.Errorf("[api] %s failed ip=%s err=%v", op, c.ClientIP(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " not configured"})
}

func parseLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
