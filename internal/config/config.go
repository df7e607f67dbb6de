// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/paiban/routecore/pkg/construction/constraint/builtin"
	apperrors "github.com/paiban/routecore/pkg/errors"
	"github.com/paiban/routecore/pkg/logger"
)

// DefaultBreakCode 休息硬约束的默认违反码
const DefaultBreakCode = 9

// Config 应用配置
type Config struct {
	App      AppConfig           `yaml:"app"`
	Log      logger.Config       `yaml:"log"`
	Database DatabaseConfig      `yaml:"database"`
	Metrics  MetricsConfig       `yaml:"metrics"`
	Breaks   builtin.BreakConfig `yaml:"breaks"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
	Port int    `yaml:"port"`
}

// DatabaseConfig 数据库配置，Host 为空表示不预加载车队
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	FleetID         string        `yaml:"fleet_id"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Enabled 检查是否配置了数据库
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 从 .env 文件和环境变量加载配置
func Load() (*Config, error) {
	// .env 文件可选，已存在的环境变量优先
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "routecore"),
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnvInt("APP_PORT", 7013),
		},
		Log: logger.Config{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "console"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			FilePath:   getEnv("LOG_FILE_PATH", ""),
			TimeFormat: time.RFC3339,
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "routecore"),
			User:            getEnv("DB_USER", "routecore"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			FleetID:         getEnv("FLEET_ID", ""),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Breaks: builtin.BreakConfig{
			Code:                 getEnvInt("BREAK_VIOLATION_CODE", DefaultBreakCode),
			ExtraCost:            getEnvFloatPtr("BREAK_EXTRA_COST"),
			DemoteFromUnassigned: getEnvBool("BREAK_DEMOTE_UNASSIGNED", true),
		},
	}

	return cfg, nil
}

// LoadFile 先按 Load 取得默认值，再用 YAML 文件覆盖
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "读取配置文件失败").WithField("path", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析配置文件失败").WithField("path", path)
	}

	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	ve := &apperrors.ValidationErrors{}

	if c.App.Port <= 0 || c.App.Port > 65535 {
		ve.Add("app.port", "端口超出范围")
	}
	if c.Breaks.Code < 0 {
		ve.Add("breaks.code", "违反码不能为负数")
	}
	if c.Breaks.ExtraCost != nil && *c.Breaks.ExtraCost < 0 {
		ve.Add("breaks.extra_cost", "额外成本不能为负数")
	}
	if c.Database.Enabled() && c.Database.FleetID == "" {
		ve.Add("database.fleet_id", "配置数据库时必须指定车队")
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		ve.Add("metrics.path", "不能为空")
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloatPtr(key string) *float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return &f
		}
	}
	return nil
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
