package journal

import (
	"fmt"

	"coachdesk/internal/pkg/convert"
)

// SessionTrade is the slice of a trade that session grading looks at.
type SessionTrade struct {
	PnL            float64 `json:"pnl"`
	EVR            float64 `json:"evR"`
	AlignmentScore float64 `json:"alignmentScore"`
	StopUsed       bool    `json:"stopUsed"`
	Trimmed        bool    `json:"trimmed"`
	Quantity       float64 `json:"quantity"`
}

// TradesFromArtifacts projects journal rows for grading.
func TradesFromArtifacts(list []Artifact) []SessionTrade {
	out := make([]SessionTrade, 0, len(list))
	for _, a := range list {
		out = append(out, SessionTrade{
			PnL:            a.PnL,
			EVR:            a.EVR,
			AlignmentScore: a.AlignmentScore,
			StopUsed:       a.StopUsed,
			Trimmed:        a.Trimmed,
			Quantity:       a.Quantity,
		})
	}
	return out
}

// SessionStats aggregates a session's trades.
type SessionStats struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRatePct   float64 `json:"winRatePct"`
	AvgEVR       float64 `json:"avgEvR"`
	AvgAlignment float64 `json:"avgAlignment"`
	StopUsagePct float64 `json:"stopUsagePct"`
	TrimPct      float64 `json:"trimPct"`
	TotalPnL     float64 `json:"totalPnl"`
	VariedSize   bool    `json:"variedSize"`
}

// GradeComponents is the per-factor point breakdown.
type GradeComponents struct {
	WinRate    float64 `json:"winRate"`
	Expectancy float64 `json:"expectancy"`
	Discipline float64 `json:"discipline"`
	Risk       float64 `json:"risk"`
}

// SessionGradeResult 是一个交易时段的 A-F 评级。
type SessionGradeResult struct {
	Grade      string          `json:"grade"`
	Score      float64         `json:"score"`
	Components GradeComponents `json:"components"`
	Factors    []string        `json:"factors"`
	Stats      SessionStats    `json:"stats"`
}

// ComputeStats summarizes trades.
func ComputeStats(trades []SessionTrade) SessionStats {
	s := SessionStats{Trades: len(trades)}
	if len(trades) == 0 {
		return s
	}
	var evSum, alignSum float64
	var stops, trims int
	sizes := make(map[float64]struct{})
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			s.Wins++
		case t.PnL < 0:
			s.Losses++
		}
		evSum += t.EVR
		alignSum += t.AlignmentScore
		s.TotalPnL += t.PnL
		if t.StopUsed {
			stops++
		}
		if t.Trimmed {
			trims++
		}
		if t.Quantity > 0 {
			sizes[t.Quantity] = struct{}{}
		}
	}
	n := float64(len(trades))
	s.WinRatePct = convert.Round(100*float64(s.Wins)/n, 2)
	s.AvgEVR = convert.Round(evSum/n, 2)
	s.AvgAlignment = convert.Round(alignSum/n, 2)
	s.StopUsagePct = convert.Round(100*float64(stops)/n, 2)
	s.TrimPct = convert.Round(100*float64(trims)/n, 2)
	s.TotalPnL = convert.Round(s.TotalPnL, 2)
	s.VariedSize = len(sizes) > 1
	return s
}

func winRatePoints(pct float64) float64 {
	switch {
	case pct >= 70:
		return 30
	case pct >= 55:
		return 22
	case pct >= 45:
		return 15
	case pct >= 30:
		return 8
	default:
		return 0
	}
}

func expectancyPoints(avg float64) float64 {
	switch {
	case avg >= 2:
		return 25
	case avg >= 1:
		return 20
	case avg >= 0.5:
		return 14
	case avg >= 0:
		return 8
	default:
		return 0
	}
}

func disciplinePoints(avg float64) float64 {
	switch {
	case avg >= 80:
		return 25
	case avg >= 65:
		return 19
	case avg >= 50:
		return 12
	case avg >= 35:
		return 6
	default:
		return 0
	}
}

func riskPoints(s SessionStats) float64 {
	var pts float64
	switch {
	case s.StopUsagePct >= 80:
		pts += 10
	case s.StopUsagePct >= 50:
		pts += 5
	}
	switch {
	case s.TrimPct >= 50:
		pts += 5
	case s.TrimPct > 0:
		pts += 2
	}
	if s.VariedSize {
		pts += 5
	}
	return convert.Clamp(pts, 0, 20)
}

// LetterGrade maps a 0-100 score onto A-F.
func LetterGrade(score float64) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 55:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

// GradeSession scores a session's trades.
func GradeSession(trades []SessionTrade) SessionGradeResult {
	stats := ComputeStats(trades)
	if stats.Trades == 0 {
		return SessionGradeResult{Grade: "F", Factors: []string{"No completed trades to grade"}, Stats: stats}
	}
	c := GradeComponents{
		WinRate:    winRatePoints(stats.WinRatePct),
		Expectancy: expectancyPoints(stats.AvgEVR),
		Discipline: disciplinePoints(stats.AvgAlignment),
		Risk:       riskPoints(stats),
	}
	score := convert.Clamp(c.WinRate+c.Expectancy+c.Discipline+c.Risk, 0, 100)
	return SessionGradeResult{
		Grade:      LetterGrade(score),
		Score:      score,
		Components: c,
		Factors:    factors(stats, c),
		Stats:      stats,
	}
}

func factors(s SessionStats, c GradeComponents) []string {
	out := []string{
		fmt.Sprintf("Win rate %.0f%% (%d/%d): +%.0f", s.WinRatePct, s.Wins, s.Trades, c.WinRate),
		fmt.Sprintf("Average expectancy %.2fR: +%.0f", s.AvgEVR, c.Expectancy),
		fmt.Sprintf("Average alignment %.0f%%: +%.0f", s.AvgAlignment, c.Discipline),
		fmt.Sprintf("Stops on %.0f%% of trades, trims on %.0f%%: +%.0f", s.StopUsagePct, s.TrimPct, c.Risk),
	}
	if s.VariedSize {
		out = append(out, "Position size adapted across trades")
	}
	if s.AvgEVR < 0 {
		out = append(out, "Negative average expectancy; review setup selection")
	}
	return out
}
