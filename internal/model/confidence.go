// Package model holds the confidence estimators: a deterministic rule-based
// formula and a single-step LSTM forward pass behind a rollout gate.
package model

import (
	"coachdesk/internal/logger"
)

// Source names which estimator produced a confidence value.
type Source string

const (
	SourceRules Source = "rules"
	SourceModel Source = "model"
)

// ConfidenceModel wraps a validated cell. A nil *ConfidenceModel is valid and
// always reports unavailable.
type ConfidenceModel struct {
	cell *Cell
}

// NewConfidenceModel validates w. On invalid weights it logs and returns a
// model that never produces values, so callers fall back to rules.
func NewConfidenceModel(w Weights) *ConfidenceModel {
	cell, err := NewCell(w)
	if err != nil {
		logger.Warnf("confidence model disabled, falling back to rules: %v", err)
		return &ConfidenceModel{}
	}
	return &ConfidenceModel{cell: cell}
}

// Usable reports whether the weights passed validation.
func (m *ConfidenceModel) Usable() bool {
	return m != nil && m.cell != nil
}

// Version returns the loaded weight version, empty when unusable.
func (m *ConfidenceModel) Version() string {
	if !m.Usable() {
		return ""
	}
	return m.cell.Version()
}

// Confidence maps normalized features to a percentage in [5,95].
func (m *ConfidenceModel) Confidence(normalized []float64) (float64, bool) {
	if !m.Usable() {
		return 0, false
	}
	p, ok := m.cell.Probability(normalized)
	if !ok {
		return 0, false
	}
	return ClampConfidence(p * 100), true
}

// Resolve picks the confidence for one evaluation: the model value when the
// flags and rollout admit userID and the model is usable, otherwise ruleValue.
func (m *ConfidenceModel) Resolve(normalized []float64, userID string, flags Flags, ruleValue float64) (float64, Source) {
	if flags.ConfidenceLive(userID) {
		if v, ok := m.Confidence(normalized); ok {
			return v, SourceModel
		}
	}
	return ClampConfidence(ruleValue), SourceRules
}
