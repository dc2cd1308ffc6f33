package app

import (
	"fmt"

	"coachdesk/internal/config"
	"coachdesk/internal/logger"
	"coachdesk/internal/model"
	"coachdesk/internal/tier"
)

// StartupSummary 汇总启动时生效的模型、灰度与存储配置。
type StartupSummary struct {
	Env        string
	HTTPAddr   string
	Flags      model.Flags
	Confidence ModelSummary
	Tier       tier.Snapshot
	Stores     StoreSummary
	FeedHealth config.FeedHealthConfig
}

type ModelSummary struct {
	Version string
	Usable  bool
}

type StoreSummary struct {
	Alerts        string
	Journal       string
	JournalCap    int
	AlertTTLHours int
}

func newStartupSummary(cfg *config.Config, confidence *model.ConfidenceModel, tierSnap tier.Snapshot) *StartupSummary {
	return &StartupSummary{
		Env:        cfg.App.Env,
		HTTPAddr:   cfg.App.HTTPAddr,
		Flags:      cfg.ML.Flags(),
		Confidence: ModelSummary{Version: confidence.Version(), Usable: confidence.Usable()},
		Tier:       tierSnap,
		Stores: StoreSummary{
			Alerts:        cfg.Alerts.Backend,
			Journal:       cfg.Journal.Backend,
			JournalCap:    cfg.Journal.MaxItems,
			AlertTTLHours: cfg.Alerts.TTLHours,
		},
		FeedHealth: cfg.FeedHealth,
	}
}

// Lines renders the summary; Print logs it as one block.
func (s *StartupSummary) Lines() []string {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	return []string{
		fmt.Sprintf("环境: %s  监听: %s", s.Env, s.HTTPAddr),
		"[模型 (MODELS)]",
		fmt.Sprintf("  置信度模型: %s (usable=%t, ml=%s)", s.Confidence.Version, s.Confidence.Usable, onOff(s.Flags.ConfidenceEnabled)),
		fmt.Sprintf("  分层模型: %s (source=%s, ml=%s)", s.Tier.Version, s.Tier.Source, onOff(s.Flags.TierEnabled)),
		fmt.Sprintf("  灰度比例: %d%%", s.Flags.RolloutPct),
		"[数据源健康 (FEED HEALTH)]",
		fmt.Sprintf("  tick=%dms poll=%dms snapshot=%dms", s.FeedHealth.TickStaleMs, s.FeedHealth.PollStaleMs, s.FeedHealth.SnapshotStaleMs),
		"[存储 (STORES)]",
		fmt.Sprintf("  提醒: %s (ttl=%dh)", s.Stores.Alerts, s.Stores.AlertTTLHours),
		fmt.Sprintf("  交易日志: %s (cap=%d)", s.Stores.Journal, s.Stores.JournalCap),
	}
}

func (s *StartupSummary) Print() {
	logger.InfoBlock("启动配置摘要 (STARTUP SUMMARY)", s.Lines())
}
