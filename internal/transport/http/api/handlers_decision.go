package apihttp

import (
	"errors"
	"net/http"

	"coachdesk/internal/drill"
	"coachdesk/internal/feedhealth"
	"coachdesk/internal/types"

	"github.com/gin-gonic/gin"
)

type evaluateRequest struct {
	Setup   *types.Setup                   `json:"setup,omitempty"`
	Setups  []types.Setup                  `json:"setups,omitempty"`
	Context types.FeatureExtractionContext `json:"context"`
}

func (r *Router) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Context.NowMs == 0 {
		req.Context.NowMs = r.nowMs()
	}
	if req.Setup != nil {
		ev := r.deps.Engine.Evaluate(*req.Setup, req.Context)
		c.JSON(http.StatusOK, gin.H{"evaluation": ev})
		return
	}
	if len(req.Setups) == 0 {
		badRequest(c, errors.New("setup or setups required"))
		return
	}
	evs, err := r.deps.Engine.EvaluateAll(c.Request.Context(), req.Setups, req.Context)
	if err != nil {
		writeError(c, "evaluate setups", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluations": evs})
}

func (r *Router) handleModels(c *gin.Context) {
	out := gin.H{"flags": r.deps.Engine.Flags()}
	if r.deps.Confidence != nil {
		out["confidence"] = gin.H{"version": r.deps.Confidence.Version(), "usable": r.deps.Confidence.Usable()}
	}
	if r.deps.Tiers != nil {
		out["tier"] = r.deps.Tiers.Snapshot()
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleFeedHealth(c *gin.Context) {
	var in feedhealth.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if in.Thresholds == (feedhealth.Thresholds{}) {
		in.Thresholds = r.deps.FeedHealth
	}
	res := feedhealth.Evaluate(in)
	r.deps.Metrics.ObserveFeedHealth(res)
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleDrillScore(c *gin.Context) {
	var in drill.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, drill.Score(in))
}
