package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"coachdesk/internal/config"
	"coachdesk/internal/logger"
	"coachdesk/internal/metrics"
	"coachdesk/internal/scheduler"
	apihttp "coachdesk/internal/transport/http/api"
	"coachdesk/internal/vwap"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务。
type App struct {
	cfg     *config.Config
	server  *apihttp.Server
	vwap    *vwap.Aggregator
	metrics *metrics.Recorder
	closers []io.Closer
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return buildAppWithWire(ctx, cfg)
}

// Run 启动 HTTP 服务与 VWAP 清扫任务，ctx 取消后关闭存储。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.server == nil {
		return fmt.Errorf("http server not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer a.Close()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	if a.vwap != nil {
		group.Go(func() error {
			a.runSweeper(ctx)
			return nil
		})
	}
	logger.Infof("✓ coachdesk listening on %s", a.server.Addr())
	return group.Wait()
}

// runSweeper drops VWAP aggregates left over from a closed session.
func (a *App) runSweeper(ctx context.Context) {
	s := scheduler.NewAlignedScheduler(ctx, "vwap-sweep", a.cfg.Session.Sweep(), 0)
	s.Start(func(at time.Time) { a.sweepVWAP(at.UnixMilli()) })
}

func (a *App) sweepVWAP(nowMs int64) []string {
	removed := a.vwap.Sweep(nowMs)
	if len(removed) > 0 {
		a.metrics.ForgetVWAPSymbols(removed...)
		logger.Infof("vwap sweep dropped %d stale aggregates: %v", len(removed), removed)
	}
	return removed
}

// Handler exposes the HTTP handler without binding a port.
func (a *App) Handler() http.Handler {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Handler()
}

// Close releases stores in reverse construction order.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
