package apihttp

import (
	"net/http"

	"coachdesk/internal/alerts"

	"github.com/gin-gonic/gin"
)

type windowRequest struct {
	UntilMs int64 `json:"untilMs" binding:"required"`
}

func (r *Router) handleAlertsList(c *gin.Context) {
	if r.deps.Alerts == nil {
		unavailable(c, "alerts")
		return
	}
	user := c.Param("user")
	var (
		list []alerts.Record
		err  error
	)
	if parseBool(c.Query("all")) {
		list, err = r.deps.Alerts.All(c.Request.Context(), user, r.nowMs())
	} else {
		list, err = r.deps.Alerts.Visible(c.Request.Context(), user, r.nowMs())
	}
	if err != nil {
		writeError(c, "list alerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list})
}

func (r *Router) handleAlertUpsert(c *gin.Context) {
	if r.deps.Alerts == nil {
		unavailable(c, "alerts")
		return
	}
	var a alerts.Alert
	if err := c.ShouldBindJSON(&a); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := r.deps.Alerts.Upsert(c.Request.Context(), c.Param("user"), a, r.nowMs())
	r.respondAlert(c, "upsert", rec, err)
}

func (r *Router) handleAlertSeen(c *gin.Context) {
	if r.deps.Alerts == nil {
		unavailable(c, "alerts")
		return
	}
	rec, err := r.deps.Alerts.MarkSeen(c.Request.Context(), c.Param("user"), c.Param("id"), r.nowMs())
	r.respondAlert(c, "seen", rec, err)
}

func (r *Router) handleAlertSnooze(c *gin.Context) {
	if r.deps.Alerts == nil {
		unavailable(c, "alerts")
		return
	}
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := r.deps.Alerts.Snooze(c.Request.Context(), c.Param("user"), c.Param("id"), req.UntilMs, r.nowMs())
	r.respondAlert(c, "snooze", rec, err)
}

func (r *Router) handleAlertMute(c *gin.Context) {
	if r.deps.Alerts == nil {
		unavailable(c, "alerts")
		return
	}
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := r.deps.Alerts.Mute(c.Request.Context(), c.Param("user"), c.Param("id"), req.UntilMs, r.nowMs())
	r.respondAlert(c, "mute", rec, err)
}

func (r *Router) respondAlert(c *gin.Context, op string, rec alerts.Record, err error) {
	r.deps.Metrics.ObserveAlertOp(op, err)
	if err != nil {
		writeError(c, "alert "+op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": rec})
}
