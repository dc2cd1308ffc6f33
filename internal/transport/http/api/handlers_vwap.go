package apihttp

import (
	"errors"
	"net/http"
	"strings"

	"coachdesk/internal/vwap"

	"github.com/gin-gonic/gin"
)

type ticksRequest struct {
	Ticks []vwap.Tick `json:"ticks"`
}

func (r *Router) handleVWAPTicks(c *gin.Context) {
	if r.deps.VWAP == nil {
		unavailable(c, "vwap aggregator")
		return
	}
	var req ticksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if len(req.Ticks) == 0 {
		badRequest(c, errors.New("ticks required"))
		return
	}
	accepted, rejected := 0, 0
	states := map[string]vwap.State{}
	for _, t := range req.Ticks {
		st, ok := r.deps.VWAP.Update(t)
		r.deps.Metrics.ObserveVWAPTick(strings.ToUpper(strings.TrimSpace(t.Symbol)), st.VWAP, ok)
		if !ok {
			rejected++
			continue
		}
		accepted++
		states[st.Symbol] = st
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "rejected": rejected, "states": states})
}

func (r *Router) handleVWAPSymbols(c *gin.Context) {
	if r.deps.VWAP == nil {
		unavailable(c, "vwap aggregator")
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": r.deps.VWAP.Symbols()})
}

func (r *Router) handleVWAPSnapshot(c *gin.Context) {
	if r.deps.VWAP == nil {
		unavailable(c, "vwap aggregator")
		return
	}
	symbol := c.Param("symbol")
	st, ok := r.deps.VWAP.Snapshot(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no vwap state for " + symbol})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st, "bands": vwap.ComputeBands(st)})
}

func (r *Router) handleVWAPReset(c *gin.Context) {
	if r.deps.VWAP == nil {
		unavailable(c, "vwap aggregator")
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	r.deps.VWAP.Reset(symbol)
	r.deps.Metrics.ForgetVWAPSymbols(symbol)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) handleVWAPResetAll(c *gin.Context) {
	if r.deps.VWAP == nil {
		unavailable(c, "vwap aggregator")
		return
	}
	symbols := r.deps.VWAP.Symbols()
	r.deps.VWAP.ResetAll()
	r.deps.Metrics.ForgetVWAPSymbols(symbols...)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
