package config

import (
	"strings"

	"coachdesk/internal/marketclock"
)

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9991"
	defaultLogMaxSizeMB     = 50
	defaultLogMaxBackups    = 5
	defaultLogMaxAgeDays    = 14
	defaultRolloutPct       = 100
	defaultTickStaleMs      = 7_500
	defaultPollStaleMs      = 90_000
	defaultSnapshotStaleMs  = 300_000
	defaultSessionTimezone  = "America/New_York"
	defaultSweepInterval    = "1m"
	defaultJournalBackend   = BackendKV
	defaultJournalPath      = "data/journal.db"
	defaultJournalMaxItems  = 240
	defaultAlertsBackend    = BackendMemory
	defaultAlertsSQLitePath = "data/alerts.db"
	defaultRedisAddr        = "127.0.0.1:6379"
	defaultRedisPrefix      = "coachdesk:"
	defaultAlertTTLHours    = 72
	defaultBreakerThreshold = 5
	defaultBreakerTimeout   = 30
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendKV     = "kv"
	BackendGorm   = "gorm"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.ML.applyDefaults(keys)
	c.FeedHealth.applyDefaults(keys)
	c.Session.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
	c.Alerts.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		intFieldDefault("app.log_max_size_mb", &a.LogMaxSizeMB, defaultLogMaxSizeMB),
		intFieldDefault("app.log_max_backups", &a.LogMaxBackups, defaultLogMaxBackups),
		intFieldDefault("app.log_max_age_days", &a.LogMaxAgeDays, defaultLogMaxAgeDays),
	)
}

func (m *MLConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "ml.rollout_pct",
			apply: func() { m.RolloutPct = defaultRolloutPct },
		},
	)
}

func (f *FeedHealthConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		int64FieldDefault("feed_health.tick_stale_ms", &f.TickStaleMs, defaultTickStaleMs),
		int64FieldDefault("feed_health.poll_stale_ms", &f.PollStaleMs, defaultPollStaleMs),
		int64FieldDefault("feed_health.snapshot_stale_ms", &f.SnapshotStaleMs, defaultSnapshotStaleMs),
	)
}

func (s *SessionConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("session.timezone", &s.Timezone, defaultSessionTimezone),
		stringFieldDefault("session.sweep_interval", &s.SweepInterval, defaultSweepInterval),
		fieldDefault{
			key:   "session.early_close_dates",
			apply: func() { s.EarlyCloseDates = append([]string(nil), marketclock.DefaultEarlyCloseDates...) },
		},
	)
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("journal.backend", &j.Backend, defaultJournalBackend),
		stringFieldDefault("journal.path", &j.Path, defaultJournalPath),
		intFieldDefault("journal.max_items", &j.MaxItems, defaultJournalMaxItems),
	)
	j.Backend = strings.ToLower(strings.TrimSpace(j.Backend))
}

func (a *AlertsConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("alerts.backend", &a.Backend, defaultAlertsBackend),
		stringFieldDefault("alerts.sqlite_path", &a.SQLitePath, defaultAlertsSQLitePath),
		stringFieldDefault("alerts.redis_addr", &a.RedisAddr, defaultRedisAddr),
		stringFieldDefault("alerts.redis_prefix", &a.RedisPrefix, defaultRedisPrefix),
		intFieldDefault("alerts.ttl_hours", &a.TTLHours, defaultAlertTTLHours),
	)
	a.Backend = strings.ToLower(strings.TrimSpace(a.Backend))
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("store.breaker_threshold", &s.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("store.breaker_timeout_seconds", &s.BreakerTimeoutSeconds, defaultBreakerTimeout),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func int64FieldDefault(key string, target *int64, def int64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}
