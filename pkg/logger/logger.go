// Package logger 提供统一的日志框架
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	inited bool
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，重复调用以最后一次为准
func Init(cfg Config) {
	var output io.Writer
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "file":
		output = os.Stdout
		if cfg.FilePath != "" {
			if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				output = f
			}
		}
	default:
		output = os.Stdout
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
		}
	}

	InitWithWriter(output, cfg.Level)
}

// InitWithWriter 使用指定输出初始化日志器（测试中用于捕获日志）
func InitWithWriter(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()

	zerolog.SetGlobalLevel(parseLevel(level))
	logger = zerolog.New(w).With().Timestamp().Logger()
	inited = true
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	mu.RLock()
	ok := inited
	mu.RUnlock()
	if !ok {
		Init(DefaultConfig())
	}

	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithComponent 创建带组件标识的日志器
func WithComponent(component string) *zerolog.Logger {
	l := Get().With().Str("component", component).Logger()
	return &l
}

// ConstraintLogger 约束引擎专用日志器
type ConstraintLogger struct {
	base *zerolog.Logger
}

// NewConstraintLogger 创建约束引擎日志器
func NewConstraintLogger(module string) *ConstraintLogger {
	l := WithComponent("constraint").With().Str("module", module).Logger()
	return &ConstraintLogger{base: &l}
}

// ModuleRegistered 记录模块注册
func (l *ConstraintLogger) ModuleRegistered(name string, constraints, stateKeys int) {
	l.base.Debug().
		Str("registered", name).
		Int("constraints", constraints).
		Int("state_keys", stateKeys).
		Msg("约束模块已注册")
}

// Classified 记录任务分类结果
func (l *ConstraintLogger) Classified(required, ignored, unassigned int) {
	l.base.Debug().
		Int("required", required).
		Int("ignored", ignored).
		Int("unassigned", unassigned).
		Msg("任务分类完成")
}

// OrphanBreaksRemoved 记录孤立休息移除
func (l *ConstraintLogger) OrphanBreaksRemoved(routeID string, count int) {
	l.base.Debug().
		Str("route_id", routeID).
		Int("breaks", count).
		Msg("移除孤立休息")
}

// BreaksDemoted 记录未分配休息降级为忽略
func (l *ConstraintLogger) BreaksDemoted(count int) {
	l.base.Debug().
		Int("breaks", count).
		Msg("未分配休息转为忽略")
}
