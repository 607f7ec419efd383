package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/LouYuanbo1/postmanager/internal/config"
	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

// ParseLevel 解析 debug/info/warn/error
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("未知的日志级别: %q", s)
	}
}

// NewConsoleHandler format 为 tint(彩色), json 或 text
func NewConsoleHandler(w io.Writer, format string, level slog.Leveler) (slog.Handler, error) {
	switch strings.ToLower(format) {
	case "", "tint":
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
		}), nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
	default:
		return nil, fmt.Errorf("未知的日志格式: %q", format)
	}
}

// New 按配置创建日志, 启用 fluent 时同时输出到控制台与 Fluent Bit.
// 返回的 close 函数负责关闭 fluent 连接, 未启用时为空操作.
func New(cfg *config.Config, w io.Writer) (*slog.Logger, func() error, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	console, err := NewConsoleHandler(w, cfg.Log.Format, level)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Log.Fluent.Enabled {
		return slog.New(console), func() error { return nil }, nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.Log.Fluent.Host,
		FluentPort: cfg.Log.Fluent.Port,
		TagPrefix:  cfg.Log.Fluent.TagPrefix,
		// 连接失败不阻塞主流程
		Async: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("创建 fluent 客户端失败: %w", err)
	}
	handler := NewMultiHandler(console, NewFluentHandler(client, level))
	return slog.New(handler), client.Close, nil
}
