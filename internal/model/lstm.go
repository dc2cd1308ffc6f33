package model

import "math"

// Cell is a validated single-layer LSTM cell. Construct it with NewCell;
// shapes are checked once there, never per step.
type Cell struct {
	w Weights
}

// NewCell validates w and returns a usable cell.
func NewCell(w Weights) (*Cell, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Cell{w: w}, nil
}

// InputSize is the feature width the cell expects.
func (c *Cell) InputSize() int { return c.w.InputSize }

// Version echoes the weight set version.
func (c *Cell) Version() string { return c.w.Version }

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func affine(g Gate, row int, xh []float64) float64 {
	sum := g.B[row]
	for j, v := range g.W[row] {
		sum += v * xh[j]
	}
	return sum
}

// Step runs one time step from (hPrev, cPrev) and returns the new hidden and cell state.
func (c *Cell) Step(x, hPrev, cPrev []float64) (h, cell []float64) {
	n := c.w.HiddenSize
	xh := make([]float64, 0, len(x)+len(hPrev))
	xh = append(xh, x...)
	xh = append(xh, hPrev...)

	h = make([]float64, n)
	cell = make([]float64, n)
	g := c.w.Gates
	for i := 0; i < n; i++ {
		in := sigmoid(affine(g.Input, i, xh))
		forget := sigmoid(affine(g.Forget, i, xh))
		out := sigmoid(affine(g.Output, i, xh))
		cand := math.Tanh(affine(g.Candidate, i, xh))
		cell[i] = forget*cPrev[i] + in*cand
		h[i] = out * math.Tanh(cell[i])
	}
	return h, cell
}

// Probability runs a single step from zero state and reads the sigmoid head.
// ok is false when x does not match the input width.
func (c *Cell) Probability(x []float64) (float64, bool) {
	if len(x) != c.w.InputSize {
		return 0, false
	}
	zero := make([]float64, c.w.HiddenSize)
	h, _ := c.Step(x, zero, make([]float64, c.w.HiddenSize))
	logit := c.w.Head.B
	for i, v := range c.w.Head.W {
		logit += v * h[i]
	}
	p := sigmoid(logit)
	if math.IsNaN(p) {
		return 0, false
	}
	return p, true
}
