package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"coachdesk/internal/logger"
	"coachdesk/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Server 提供 coachdesk 的 JSON HTTP 接口。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr    string
	Deps    Deps
	Metrics *metrics.Recorder
}

// NewServer 构建 HTTP server 并挂载全部路由。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Deps.Engine == nil {
		return nil, errors.New("api http server requires a decision engine")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Metrics))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	NewRouter(cfg.Deps).Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录每个请求，并按路由模板上报指标以控制标签基数。
func requestLogger(rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.ObserveHTTP(route, c.Request.Method, status, dur.Seconds())
		if status >= http.StatusInternalServerError {
			logger.Warnf("HTTP %s %s status=%d ip=%s dur=%s", c.Request.Method, c.Request.URL.Path, status, c.ClientIP(), dur)
			return
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", c.Request.Method, c.Request.URL.Path, status, c.ClientIP(), dur)
	}
}

// Handler exposes the router for in-process use and tests.
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.router
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
