package config

import (
	"fmt"
	"strings"

	"coachdesk/internal/marketclock"
	"coachdesk/internal/scheduler"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.ML.validate(); err != nil {
		return err
	}
	if err := c.FeedHealth.validate(); err != nil {
		return err
	}
	if err := c.Session.validate(); err != nil {
		return err
	}
	if err := c.Journal.validate(); err != nil {
		return err
	}
	if err := c.Alerts.validate(); err != nil {
		return err
	}
	if c.Store.BreakerThreshold <= 0 {
		return fmt.Errorf("store.breaker_threshold must be > 0")
	}
	return nil
}

func (m *MLConfig) validate() error {
	if m.RolloutPct < 0 || m.RolloutPct > 100 {
		return fmt.Errorf("ml.rollout_pct must be within [0,100], got %d", m.RolloutPct)
	}
	if m.WatchWeights && strings.TrimSpace(m.TierWeightsPath) == "" {
		return fmt.Errorf("ml.watch_weights requires ml.tier_weights_path")
	}
	if m.Parallelism < 0 {
		return fmt.Errorf("ml.parallelism must be >= 0")
	}
	return nil
}

func (f *FeedHealthConfig) validate() error {
	if f.TickStaleMs <= 0 || f.PollStaleMs <= 0 || f.SnapshotStaleMs <= 0 {
		return fmt.Errorf("feed_health thresholds must be > 0")
	}
	if f.TickStaleMs > f.PollStaleMs || f.PollStaleMs > f.SnapshotStaleMs {
		return fmt.Errorf("feed_health thresholds must satisfy tick <= poll <= snapshot")
	}
	return nil
}

func (s *SessionConfig) validate() error {
	if _, err := marketclock.New(s.Timezone, s.EarlyCloseDates); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if _, ok := scheduler.ParseInterval(s.SweepInterval); !ok {
		return fmt.Errorf("session.sweep_interval %q is not a valid interval", s.SweepInterval)
	}
	return nil
}

func (j *JournalConfig) validate() error {
	switch j.Backend {
	case BackendKV:
	case BackendGorm:
		if strings.TrimSpace(j.Path) == "" {
			return fmt.Errorf("journal.path is required for the gorm backend")
		}
	default:
		return fmt.Errorf("journal.backend must be kv or gorm, got %q", j.Backend)
	}
	if j.MaxItems <= 0 {
		return fmt.Errorf("journal.max_items must be > 0")
	}
	return nil
}

func (a *AlertsConfig) validate() error {
	switch a.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(a.SQLitePath) == "" {
			return fmt.Errorf("alerts.sqlite_path is required for the sqlite backend")
		}
	case BackendRedis:
		if strings.TrimSpace(a.RedisAddr) == "" {
			return fmt.Errorf("alerts.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("alerts.backend must be memory, sqlite or redis, got %q", a.Backend)
	}
	if a.TTLHours <= 0 {
		return fmt.Errorf("alerts.ttl_hours must be > 0")
	}
	return nil
}
