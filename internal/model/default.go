package model

import (
	"sync"

	"coachdesk/internal/features"
)

const (
	DefaultVersion    = "lstm-confidence-v1"
	defaultHiddenSize = 8
	defaultSeed       = 0x5eed1234
)

var (
	defaultOnce    sync.Once
	defaultWeights Weights
)

// DefaultWeights returns the built-in weight set, generated once per process.
func DefaultWeights() Weights {
	defaultOnce.Do(func() {
		defaultWeights = generateWeights(features.Count, defaultHiddenSize, defaultSeed)
	})
	return defaultWeights
}

// lcg is a fixed 32-bit linear congruential generator so the default
// weights are identical on every platform.
type lcg struct{ state uint32 }

func (g *lcg) next() float64 {
	g.state = g.state*1664525 + 1013904223
	return float64(g.state)/float64(^uint32(0))*2 - 1
}

func generateWeights(inputSize, hiddenSize int, seed uint32) Weights {
	rng := &lcg{state: seed}
	gate := func(scale, bias float64) Gate {
		g := Gate{W: make([][]float64, hiddenSize), B: make([]float64, hiddenSize)}
		for i := range g.W {
			row := make([]float64, inputSize+hiddenSize)
			for j := range row {
				row[j] = rng.next() * scale
			}
			g.W[i] = row
			g.B[i] = bias
		}
		return g
	}
	w := Weights{
		Version:    DefaultVersion,
		InputSize:  inputSize,
		HiddenSize: hiddenSize,
		Gates: Gates{
			Input:     gate(0.35, 0),
			Forget:    gate(0.35, 1),
			Output:    gate(0.35, 0),
			Candidate: gate(0.5, 0),
		},
		Head: Head{W: make([]float64, hiddenSize), B: 0},
	}
	// Candidate rows lean on confluence, regime fit, flow and history so the
	// readout moves with the same signals as the rule-based path.
	signal := map[int]float64{0: 0.9, 1: 0.8, 2: 0.6, 14: 0.7}
	for i := range w.Gates.Candidate.W {
		for col, weight := range signal {
			if col >= inputSize {
				continue
			}
			w.Gates.Candidate.W[i][col] = weight
		}
	}
	for i := range w.Head.W {
		w.Head.W[i] = 0.9 + rng.next()*0.1
	}
	w.Head.B = -0.4
	return w
}
