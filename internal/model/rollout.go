package model

import "coachdesk/internal/types"

const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// FNV1a32 is the 32-bit FNV-1a hash over the UTF-8 bytes of s.
func FNV1a32(s string) uint32 {
	h := fnvOffset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// Bucket places a user id into one of 100 stable rollout buckets.
func Bucket(userID string) int {
	return int(FNV1a32(userID) % 100)
}

// InRollout reports whether a flag-enabled feature is live for userID.
func InRollout(enabled bool, rolloutPct int, userID string) bool {
	if !enabled || rolloutPct <= 0 {
		return false
	}
	if rolloutPct >= 100 {
		return true
	}
	return Bucket(userID) < rolloutPct
}

// Flags 控制 ML 置信度与分层模型的开关及灰度比例。
type Flags struct {
	ConfidenceEnabled bool `json:"confidenceEnabled"`
	TierEnabled       bool `json:"tierEnabled"`
	RolloutPct        int  `json:"rolloutPct"`
}

// WithOverrides applies per-evaluation overrides on top of f.
func (f Flags) WithOverrides(o *types.MLOverrides) Flags {
	if o == nil {
		return f
	}
	if o.ConfidenceEnabled != nil {
		f.ConfidenceEnabled = *o.ConfidenceEnabled
	}
	if o.TierEnabled != nil {
		f.TierEnabled = *o.TierEnabled
	}
	if o.RolloutPct != nil {
		f.RolloutPct = *o.RolloutPct
	}
	return f
}

// ConfidenceLive reports whether the model-based confidence applies to userID.
func (f Flags) ConfidenceLive(userID string) bool {
	return InRollout(f.ConfidenceEnabled, f.RolloutPct, userID)
}

// TierLive reports whether the tier classifier applies to userID.
func (f Flags) TierLive(userID string) bool {
	return InRollout(f.TierEnabled, f.RolloutPct, userID)
}
