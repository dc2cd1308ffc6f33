package apihttp

import (
	"errors"
	"net/http"
	"strings"

	"coachdesk/internal/journal"

	"github.com/gin-gonic/gin"
)

type recordTradeRequest struct {
	Trade    journal.ClosedTrade       `json:"trade"`
	Coaching *journal.CoachingDecision `json:"coaching,omitempty"`
}

func (r *Router) handleJournalRecord(c *gin.Context) {
	if r.deps.Journal == nil {
		unavailable(c, "journal")
		return
	}
	var req recordTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a, err := r.deps.Journal.Record(c.Request.Context(), req.Trade, req.Coaching)
	if !errors.Is(err, journal.ErrMissingUser) {
		r.deps.Metrics.ObserveJournalAppend(err)
	}
	if err != nil {
		writeError(c, "record trade", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifact": a})
}

func (r *Router) handleJournalList(c *gin.Context) {
	if r.deps.Journal == nil {
		unavailable(c, "journal")
		return
	}
	user := strings.TrimSpace(c.Query("user"))
	if user == "" {
		badRequest(c, journal.ErrMissingUser)
		return
	}
	limit := parseLimit(c.Query("limit"), defaultJournalLimit, maxJournalLimit)
	list, err := r.deps.Journal.List(c.Request.Context(), user, limit)
	if err != nil {
		writeError(c, "list journal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifacts": list, "count": len(list)})
}

func (r *Router) handleJournalGet(c *gin.Context) {
	if r.deps.Journal == nil {
		unavailable(c, "journal")
		return
	}
	user := strings.TrimSpace(c.Query("user"))
	if user == "" {
		badRequest(c, journal.ErrMissingUser)
		return
	}
	a, err := r.deps.Journal.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		writeError(c, "get journal artifact", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifact": a})
}

// gradeRequest grades explicit trades, or the user's newest journal entries
// when trades is absent.
type gradeRequest struct {
	Trades []journal.SessionTrade `json:"trades,omitempty"`
	UserID string                 `json:"userId,omitempty"`
	Limit  int                    `json:"limit,omitempty"`
}

func (r *Router) handleSessionGrade(c *gin.Context) {
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Trades != nil || strings.TrimSpace(req.UserID) == "" {
		c.JSON(http.StatusOK, journal.GradeSession(req.Trades))
		return
	}
	if r.deps.Journal == nil {
		unavailable(c, "journal")
		return
	}
	limit := req.Limit
	if limit <= 0 || limit > maxJournalLimit {
		limit = maxJournalLimit
	}
	res, err := r.deps.Journal.GradeRecent(c.Request.Context(), req.UserID, limit)
	if err != nil {
		writeError(c, "grade session", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
