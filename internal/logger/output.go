package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions 描述滚动日志文件；Path 为空表示只写标准输出。
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Configure 设置日志级别，并在配置了文件时同时写入 stdout 与滚动文件。
// 返回的 closer 用于进程退出时关闭文件。
func Configure(level string, file FileOptions) io.Closer {
	_, known := ParseLevel(level)
	SetLevel(level)
	path := strings.TrimSpace(file.Path)
	var closer io.Closer = nopCloser{}
	if path == "" {
		SetOutput(os.Stdout)
	} else {
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
			Compress:   true,
		}
		SetOutput(io.MultiWriter(os.Stdout, rotator))
		closer = rotator
	}
	if !known {
		Warnf("unknown log level %q, using info", level)
	}
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// With returns the process logger annotated with key/value pairs.
func With(kv ...any) *slog.Logger {
	return activeLogger().With(kv...)
}
