package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"coachdesk/internal/logger"

	"github.com/joho/godotenv"
)

// Environment overrides for the ML rollout.
const (
	EnvConfidenceEnabled = "ML_CONFIDENCE_ENABLED"
	EnvTierEnabled       = "ML_TIER_ENABLED"
	EnvRolloutPct        = "ML_ROLLOUT_PCT"
	EnvTierWeightsPath   = "TIER_WEIGHTS_PATH"
	EnvLogLevel          = "COACHDESK_LOG_LEVEL"
	EnvHTTPAddr          = "COACHDESK_HTTP_ADDR"
)

// loadDotEnv 加载 dir/.env；文件不存在时静默跳过。godotenv.Load 不覆盖已有变量。
func loadDotEnv(dir string) {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("config: load %s failed: %v", path, err)
	}
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	if raw, ok := lookupNonEmpty(lookup, EnvConfidenceEnabled); ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConfidenceEnabled, err)
		}
		c.ML.ConfidenceEnabled = b
	}
	if raw, ok := lookupNonEmpty(lookup, EnvTierEnabled); ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTierEnabled, err)
		}
		c.ML.TierEnabled = b
	}
	if raw, ok := lookupNonEmpty(lookup, EnvRolloutPct); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRolloutPct, err)
		}
		c.ML.RolloutPct = n
	}
	if raw, ok := lookupNonEmpty(lookup, EnvTierWeightsPath); ok {
		c.ML.TierWeightsPath = raw
	}
	if raw, ok := lookupNonEmpty(lookup, EnvLogLevel); ok {
		c.App.LogLevel = raw
	}
	if raw, ok := lookupNonEmpty(lookup, EnvHTTPAddr); ok {
		c.App.HTTPAddr = raw
	}
	return nil
}

func lookupNonEmpty(lookup lookupFunc, key string) (string, bool) {
	raw, ok := lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
