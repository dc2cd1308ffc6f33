// Package vwap keeps a session-anchored, per-symbol running VWAP with a
// single-pass variance accumulator for standard-deviation bands.
package vwap

import (
	"math"
	"sort"
	"strings"
	"sync"

	"coachdesk/internal/marketclock"

	"github.com/shopspring/decimal"
)

const pricePlaces = 2

// Tick is one normalized trade print.
type Tick struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	Volume      float64 `json:"volume"`
	TimestampMs int64   `json:"timestampMs"`
}

func (t Tick) valid() bool {
	return finite(t.Price) && finite(t.Volume) && t.Price > 0 && t.Volume > 0 && t.TimestampMs > 0
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// State is the running aggregate for one symbol.
type State struct {
	Symbol           string  `json:"symbol"`
	SessionDate      string  `json:"sessionDate"`
	CumulativeTPV    float64 `json:"cumulativeTPV"`
	CumulativeVolume float64 `json:"cumulativeVolume"`
	VWAP             float64 `json:"vwap"`
	Variance         float64 `json:"variance"`
	LastPrice        float64 `json:"lastPrice"`
	LastTimestampMs  int64   `json:"lastTimestampMs"`
	Ticks            int64   `json:"ticks"`
}

// Rounded returns the VWAP rounded to cents.
func (s State) Rounded() float64 { return roundPrice(s.VWAP) }

// StdDev is sqrt(variance / cumulative volume).
func (s State) StdDev() float64 {
	if s.CumulativeVolume <= 0 {
		return 0
	}
	return math.Sqrt(s.Variance / s.CumulativeVolume)
}

type entry struct {
	mu    sync.Mutex
	state *State
}

// Aggregator 维护每个标的的 VWAP；同一标的的更新在该标的的锁内串行执行。
type Aggregator struct {
	cal *marketclock.Calendar

	mu      sync.Mutex
	symbols map[string]*entry
}

// NewAggregator uses cal for session windows; nil means the default exchange calendar.
func NewAggregator(cal *marketclock.Calendar) *Aggregator {
	if cal == nil {
		cal = marketclock.Default()
	}
	return &Aggregator{cal: cal, symbols: make(map[string]*entry)}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (a *Aggregator) slot(symbol string) *entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.symbols[symbol]
	if !ok {
		e = &entry{}
		a.symbols[symbol] = e
	}
	return e
}

// Update folds tick into its symbol's aggregate and returns a copy of the new
// state. ok is false when the tick is invalid (state untouched) or falls
// outside the regular session (state discarded).
func (a *Aggregator) Update(t Tick) (State, bool) {
	symbol := normalizeSymbol(t.Symbol)
	if symbol == "" || !t.valid() {
		return State{}, false
	}
	e := a.slot(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !a.cal.InSession(t.TimestampMs) {
		e.state = nil
		return State{}, false
	}
	date := a.cal.SessionDate(t.TimestampMs)
	if e.state == nil || e.state.SessionDate != date {
		e.state = &State{Symbol: symbol, SessionDate: date}
	}
	s := e.state
	oldVWAP := s.VWAP
	if s.CumulativeVolume == 0 {
		oldVWAP = t.Price
	}
	s.CumulativeTPV += t.Price * t.Volume
	s.CumulativeVolume += t.Volume
	s.VWAP = s.CumulativeTPV / s.CumulativeVolume
	s.Variance += t.Volume * (t.Price - oldVWAP) * (t.Price - s.VWAP)
	if s.Variance < 0 || !finite(s.Variance) {
		s.Variance = 0
	}
	s.LastPrice = t.Price
	s.LastTimestampMs = t.TimestampMs
	s.Ticks++
	return *s, true
}

// Snapshot returns a copy of symbol's state.
func (a *Aggregator) Snapshot(symbol string) (State, bool) {
	symbol = normalizeSymbol(symbol)
	a.mu.Lock()
	e, ok := a.symbols[symbol]
	a.mu.Unlock()
	if !ok {
		return State{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return State{}, false
	}
	return *e.state, true
}

// Symbols lists symbols that currently hold an aggregate.
func (a *Aggregator) Symbols() []string {
	a.mu.Lock()
	entries := make(map[string]*entry, len(a.symbols))
	for k, v := range a.symbols {
		entries[k] = v
	}
	a.mu.Unlock()
	out := make([]string, 0, len(entries))
	for sym, e := range entries {
		e.mu.Lock()
		live := e.state != nil
		e.mu.Unlock()
		if live {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// Reset discards one symbol's state.
func (a *Aggregator) Reset(symbol string) {
	symbol = normalizeSymbol(symbol)
	a.mu.Lock()
	e, ok := a.symbols[symbol]
	delete(a.symbols, symbol)
	a.mu.Unlock()
	if ok {
		e.mu.Lock()
		e.state = nil
		e.mu.Unlock()
	}
}

// ResetAll discards every symbol.
func (a *Aggregator) ResetAll() {
	a.mu.Lock()
	old := a.symbols
	a.symbols = make(map[string]*entry)
	a.mu.Unlock()
	for _, e := range old {
		e.mu.Lock()
		e.state = nil
		e.mu.Unlock()
	}
}

// Sweep drops aggregates that no longer belong to the session open at nowMs.
// Outside regular hours every aggregate is dropped. It returns the symbols removed.
func (a *Aggregator) Sweep(nowMs int64) []string {
	live := a.cal.InSession(nowMs)
	date := a.cal.SessionDate(nowMs)

	a.mu.Lock()
	defer a.mu.Unlock()
	var removed []string
	for sym, e := range a.symbols {
		e.mu.Lock()
		stale := e.state == nil || !live || e.state.SessionDate != date
		if stale {
			e.state = nil
		}
		e.mu.Unlock()
		if stale {
			delete(a.symbols, sym)
			removed = append(removed, sym)
		}
	}
	sort.Strings(removed)
	return removed
}

func roundPrice(v float64) float64 {
	return decimal.NewFromFloat(v).Round(pricePlaces).InexactFloat64()
}
