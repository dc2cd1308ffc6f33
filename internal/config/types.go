package config

import (
	"strings"
	"time"

	"coachdesk/internal/feedhealth"
	"coachdesk/internal/model"
	"coachdesk/internal/scheduler"
)

// Config 是 coachdesk 的主配置载体。
type Config struct {
	App        AppConfig        `toml:"app"`
	ML         MLConfig         `toml:"ml"`
	FeedHealth FeedHealthConfig `toml:"feed_health"`
	Session    SessionConfig    `toml:"session"`
	Journal    JournalConfig    `toml:"journal"`
	Alerts     AlertsConfig     `toml:"alerts"`
	Store      StoreConfig      `toml:"store"`
}

type AppConfig struct {
	Env           string `toml:"env"`
	LogLevel      string `toml:"log_level"`
	HTTPAddr      string `toml:"http_addr"`
	LogPath       string `toml:"log_path"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb"`
	LogMaxBackups int    `toml:"log_max_backups"`
	LogMaxAgeDays int    `toml:"log_max_age_days"`
}

// MLConfig 控制置信度模型与分层模型的开关、灰度比例以及权重覆盖文件。
type MLConfig struct {
	ConfidenceEnabled bool   `toml:"confidence_enabled"`
	TierEnabled       bool   `toml:"tier_enabled"`
	RolloutPct        int    `toml:"rollout_pct"`
	TierWeightsPath   string `toml:"tier_weights_path"`
	WatchWeights      bool   `toml:"watch_weights"`
	Parallelism       int    `toml:"parallelism"`
}

func (m MLConfig) Flags() model.Flags {
	return model.Flags{
		ConfidenceEnabled: m.ConfidenceEnabled,
		TierEnabled:       m.TierEnabled,
		RolloutPct:        m.RolloutPct,
	}
}

type FeedHealthConfig struct {
	TickStaleMs     int64 `toml:"tick_stale_ms"`
	PollStaleMs     int64 `toml:"poll_stale_ms"`
	SnapshotStaleMs int64 `toml:"snapshot_stale_ms"`
}

func (f FeedHealthConfig) Thresholds() feedhealth.Thresholds {
	return feedhealth.Thresholds{
		TickStaleMs:     f.TickStaleMs,
		PollStaleMs:     f.PollStaleMs,
		SnapshotStaleMs: f.SnapshotStaleMs,
	}
}

type SessionConfig struct {
	Timezone        string   `toml:"timezone"`
	EarlyCloseDates []string `toml:"early_close_dates"`
	SweepInterval   string   `toml:"sweep_interval"`
}

// Sweep returns the VWAP sweep period; validation guarantees it parses.
func (s SessionConfig) Sweep() time.Duration {
	d, _ := scheduler.ParseInterval(s.SweepInterval)
	return d
}

// JournalConfig 选择日志仓储：kv 复用提醒所用的 KV 后端，gorm 使用独立 SQLite 文件。
type JournalConfig struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	MaxItems int    `toml:"max_items"`
}

type AlertsConfig struct {
	Backend       string `toml:"backend"`
	SQLitePath    string `toml:"sqlite_path"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
	TTLHours      int    `toml:"ttl_hours"`
}

func (a AlertsConfig) TTL() time.Duration {
	return time.Duration(a.TTLHours) * time.Hour
}

type StoreConfig struct {
	BreakerThreshold      int `toml:"breaker_threshold"`
	BreakerTimeoutSeconds int `toml:"breaker_timeout_seconds"`
}

func (s StoreConfig) BreakerTimeout() time.Duration {
	return time.Duration(s.BreakerTimeoutSeconds) * time.Second
}

// keySet 记录配置文件中显式出现的键，默认值只作用于缺失的键。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
