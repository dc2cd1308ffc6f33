package model

import (
	"errors"
	"fmt"
)

// ErrInvalidWeights marks a weight set whose shapes disagree with its declared sizes.
var ErrInvalidWeights = errors.New("invalid model weights")

// Gate holds one LSTM gate: W is hiddenSize rows over [input ‖ hidden] columns.
type Gate struct {
	W [][]float64 `json:"w" yaml:"w"`
	B []float64   `json:"b" yaml:"b"`
}

// Gates groups the four LSTM gates.
type Gates struct {
	Input     Gate `json:"input" yaml:"input"`
	Forget    Gate `json:"forget" yaml:"forget"`
	Output    Gate `json:"output" yaml:"output"`
	Candidate Gate `json:"candidate" yaml:"candidate"`
}

// Head is the linear readout from the hidden vector.
type Head struct {
	W []float64 `json:"w" yaml:"w"`
	B float64   `json:"b" yaml:"b"`
}

// Weights 是置信度模型的静态、带版本的权重配置。
type Weights struct {
	Version    string `json:"version" yaml:"version"`
	InputSize  int    `json:"inputSize" yaml:"inputSize"`
	HiddenSize int    `json:"hiddenSize" yaml:"hiddenSize"`
	Gates      Gates  `json:"gates" yaml:"gates"`
	Head       Head   `json:"head" yaml:"head"`
}

// Validate checks every matrix and bias against InputSize/HiddenSize.
func (w Weights) Validate() error {
	if w.InputSize <= 0 || w.HiddenSize <= 0 {
		return fmt.Errorf("%w: sizes must be positive (input=%d hidden=%d)", ErrInvalidWeights, w.InputSize, w.HiddenSize)
	}
	cols := w.InputSize + w.HiddenSize
	named := []struct {
		name string
		gate Gate
	}{
		{"input", w.Gates.Input},
		{"forget", w.Gates.Forget},
		{"output", w.Gates.Output},
		{"candidate", w.Gates.Candidate},
	}
	for _, g := range named {
		if len(g.gate.W) != w.HiddenSize {
			return fmt.Errorf("%w: gate %s has %d rows, want %d", ErrInvalidWeights, g.name, len(g.gate.W), w.HiddenSize)
		}
		for i, row := range g.gate.W {
			if len(row) != cols {
				return fmt.Errorf("%w: gate %s row %d has %d cols, want %d", ErrInvalidWeights, g.name, i, len(row), cols)
			}
		}
		if len(g.gate.B) != w.HiddenSize {
			return fmt.Errorf("%w: gate %s bias has %d entries, want %d", ErrInvalidWeights, g.name, len(g.gate.B), w.HiddenSize)
		}
	}
	if len(w.Head.W) != w.HiddenSize {
		return fmt.Errorf("%w: head has %d weights, want %d", ErrInvalidWeights, len(w.Head.W), w.HiddenSize)
	}
	return nil
}
