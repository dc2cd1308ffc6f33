// Package features turns a setup plus its live context into a fixed numeric vector.
package features

import (
	"math"
	"sort"

	"coachdesk/internal/marketclock"
	"coachdesk/internal/pkg/convert"
	"coachdesk/internal/types"

	"github.com/markcheno/go-talib"
)

const (
	precision      = 4
	flowDecay      = 0.85
	flowWindow     = 24
	flowHalfLifeMn = 5.0
	msPerDay       = 24 * 60 * 60 * 1000
	minATRBars     = 15
)

type regimePair struct{ a, b types.Regime }

var (
	adjacentRegimes = map[regimePair]struct{}{
		{types.RegimeTrending, types.RegimeBreakout}:   {},
		{types.RegimeBreakout, types.RegimeTrending}:   {},
		{types.RegimeCompression, types.RegimeRanging}: {},
		{types.RegimeRanging, types.RegimeCompression}: {},
	}
	oppositeRegimes = map[regimePair]struct{}{
		{types.RegimeTrending, types.RegimeRanging}:     {},
		{types.RegimeRanging, types.RegimeTrending}:     {},
		{types.RegimeBreakout, types.RegimeCompression}: {},
		{types.RegimeCompression, types.RegimeBreakout}: {},
	}
)

// Extractor computes feature vectors against a session calendar.
type Extractor struct {
	cal *marketclock.Calendar
}

// NewExtractor uses cal for session timing; nil selects the default New York calendar.
func NewExtractor(cal *marketclock.Calendar) *Extractor {
	if cal == nil {
		cal = marketclock.Default()
	}
	return &Extractor{cal: cal}
}

// Extract is a pure function of its inputs. It never fails: absent inputs
// fall back to neutral defaults.
func (e *Extractor) Extract(setup types.Setup, ctx types.FeatureExtractionContext) Vector {
	v := Vector{
		Confluence:          convert.Clamp(setup.ConfluenceScore, 0, 5),
		RegimeCompatibility: RegimeFit(setup.Regime, ctx.Regime),
		FlowBias:            FlowBiasFor(setup.Direction, ctx.FlowEvents),
		FlowRecency:         flowRecency(ctx.FlowEvents, ctx.NowMs),
		FlowVolume:          flowVolume(ctx.FlowEvents),
		DistanceToVWAP:      metricOr(ctx.Metrics, types.MetricDistanceToVWAP, 0, -10, 10),
		ATRRatio:            atrRatio(ctx.Metrics, ctx.Bars),
		IVRank:              ivRank(ctx.Metrics),
		IVSkew:              metricOr(ctx.Metrics, types.MetricIVSkew, 0, -1, 1),
		PutCallRatio:        metricOr(ctx.Metrics, types.MetricPutCallRatio, 1, 0, 3),
		NetGex:              netGexBillions(ctx.GEX),
		DTE:                 dte(setup.Contract, ctx.Metrics, ctx.NowMs),
		HistoricalWinRate:   0.5,
	}
	if ctx.NowMs > 0 {
		v.MinutesIntoSession = e.cal.MinutesIntoSession(ctx.NowMs)
		v.DayOfWeek = float64(e.cal.WeekdayIndex(ctx.NowMs))
	}
	if mc := setup.MemoryContext; mc != nil {
		if mc.Tests > 0 || mc.WinRatePct > 0 {
			v.HistoricalWinRate = convert.Clamp(mc.WinRatePct/100, 0, 1)
		}
		v.HistoricalTestCount = convert.Clamp(float64(mc.Tests), 0, 500)
		switch mc.LastTestResult {
		case "win":
			v.LastTestResult = 1
		case "loss":
			v.LastTestResult = -1
		}
	}
	if rr, ok := setup.RewardRisk(); ok {
		v.RiskReward = convert.Clamp(rr, 0, 10)
	}
	return v.rounded()
}

func (v Vector) rounded() Vector {
	r := func(x float64) float64 { return convert.Round(x, precision) }
	return Vector{
		Confluence:          r(v.Confluence),
		RegimeCompatibility: r(v.RegimeCompatibility),
		FlowBias:            r(v.FlowBias),
		FlowRecency:         r(v.FlowRecency),
		FlowVolume:          r(v.FlowVolume),
		DistanceToVWAP:      r(v.DistanceToVWAP),
		ATRRatio:            r(v.ATRRatio),
		IVRank:              r(v.IVRank),
		IVSkew:              r(v.IVSkew),
		PutCallRatio:        r(v.PutCallRatio),
		NetGex:              r(v.NetGex),
		MinutesIntoSession:  r(v.MinutesIntoSession),
		DayOfWeek:           v.DayOfWeek,
		DTE:                 r(v.DTE),
		HistoricalWinRate:   r(v.HistoricalWinRate),
		HistoricalTestCount: v.HistoricalTestCount,
		LastTestResult:      v.LastTestResult,
		RiskReward:          r(v.RiskReward),
	}
}

// RegimeFit scores how well the setup's regime fits the active one.
func RegimeFit(setupRegime, active types.Regime) float64 {
	if !active.Known() || !setupRegime.Known() {
		return 0.5
	}
	if setupRegime == active {
		return 1.0
	}
	pair := regimePair{setupRegime, active}
	if _, ok := adjacentRegimes[pair]; ok {
		return 0.65
	}
	if _, ok := oppositeRegimes[pair]; ok {
		return 0.15
	}
	return 0.3
}

// recentFirst returns at most flowWindow events ordered newest first. The
// input slice is not modified.
func recentFirst(events []types.FlowEvent) []types.FlowEvent {
	if len(events) == 0 {
		return nil
	}
	sorted := append([]types.FlowEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMs > sorted[j].TimestampMs
	})
	if len(sorted) > flowWindow {
		sorted = sorted[:flowWindow]
	}
	return sorted
}

// FlowBiasFor is the decayed aligned-minus-opposing flow share in [-1,1].
func FlowBiasFor(dir types.Direction, events []types.FlowEvent) float64 {
	recent := recentFirst(events)
	if len(recent) == 0 || dir.Sign() == 0 {
		return 0
	}
	weight := 1.0
	var signed, total float64
	for _, ev := range recent {
		s := ev.Direction.Sign() * dir.Sign()
		if s != 0 {
			signed += weight * s
			total += weight
		}
		weight *= flowDecay
	}
	if total == 0 {
		return 0
	}
	return convert.Round(convert.Clamp(signed/total, -1, 1), precision)
}

func flowRecency(events []types.FlowEvent, nowMs int64) float64 {
	recent := recentFirst(events)
	if len(recent) == 0 {
		return 0
	}
	ageMin := float64(nowMs-recent[0].TimestampMs) / 60000
	if ageMin < 0 {
		ageMin = 0
	}
	return math.Pow(0.5, ageMin/flowHalfLifeMn)
}

func flowVolume(events []types.FlowEvent) float64 {
	var total float64
	for _, ev := range recentFirst(events) {
		if ev.Size > 0 && !math.IsInf(ev.Size, 0) {
			total += ev.Size
		}
	}
	return convert.Clamp(math.Log10(1+total), 0, 10)
}

func metricOr(m map[string]any, key string, def, lo, hi float64) float64 {
	if v, ok := convert.MapFloat(m, key); ok {
		return convert.Clamp(v, lo, hi)
	}
	return def
}

func positiveMetric(m map[string]any, key string) (float64, bool) {
	v, ok := convert.MapFloat(m, key)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

func atrRatio(m map[string]any, bars []types.Bar) float64 {
	atr7, ok7 := positiveMetric(m, types.MetricATR7)
	atr14, ok14 := positiveMetric(m, types.MetricATR14)
	if !ok7 || !ok14 {
		atr7, atr14, ok7 = atrFromBars(bars)
		ok14 = ok7
	}
	if !ok7 || !ok14 || atr14 <= 0 {
		return 1
	}
	return convert.Clamp(atr7/atr14, 0, 3)
}

func atrFromBars(bars []types.Bar) (atr7, atr14 float64, ok bool) {
	if len(bars) < minATRBars {
		return 0, 0, false
	}
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i], lows[i], closes[i] = b.High, b.Low, b.Close
	}
	s7 := talib.Atr(highs, lows, closes, 7)
	s14 := talib.Atr(highs, lows, closes, 14)
	atr7, atr14 = s7[len(s7)-1], s14[len(s14)-1]
	if math.IsNaN(atr7) || math.IsNaN(atr14) || atr14 <= 0 {
		return 0, 0, false
	}
	return atr7, atr14, true
}

func ivRank(m map[string]any) float64 {
	if v, ok := convert.MapFloat(m, types.MetricIVRank); ok {
		return convert.Clamp(v, 0, 100)
	}
	iv, okIV := positiveMetric(m, types.MetricIV)
	rv, okRV := positiveMetric(m, types.MetricRealizedVol)
	if !okIV || !okRV {
		return 50
	}
	// ratio 0.5 -> 0, 1.25 -> 50, 2.0 -> 100
	return convert.Clamp(50+(iv/rv-1.25)*(100/1.5), 0, 100)
}

func netGexBillions(g *types.GEXProfile) float64 {
	if g == nil {
		return 0
	}
	return convert.Clamp(g.NetGex/1e9, -10, 10)
}

func dte(contract *types.ContractRef, m map[string]any, nowMs int64) float64 {
	if v, ok := convert.MapFloat(m, types.MetricDTE); ok {
		return convert.Clamp(v, 0, 60)
	}
	if contract == nil || contract.ExpiryMs <= 0 || nowMs <= 0 {
		return 0
	}
	return convert.Clamp(float64(contract.ExpiryMs-nowMs)/msPerDay, 0, 60)
}
