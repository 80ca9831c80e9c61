package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	sdkhttp "github.com/betbot/gridhedge/pkg/sdk/http"
)

// 环境变量前缀，例如 GRIDHEDGE_API_URL
const envPrefix = "GRIDHEDGE_"

// APIConfig 后端连接配置
type APIConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	RetryCount int           `yaml:"retry_count" json:"retry_count"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	Console    bool   `yaml:"console" json:"console"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`       // MB
	MaxBackups int    `yaml:"max_backups" json:"max_backups"` // 保留的旧文件数量
	MaxAge     int    `yaml:"max_age" json:"max_age"`         // 天
}

// MockConfig 本地内存后端配置
type MockConfig struct {
	Listen        string  `yaml:"listen" json:"listen"`
	SpecsFile     string  `yaml:"specs_file" json:"specs_file"`
	AdminPassword string  `yaml:"admin_password" json:"admin_password"`
	RateLimit     float64 `yaml:"rate_limit" json:"rate_limit"` // 每秒请求数，0 不限流
	RateBurst     int     `yaml:"rate_burst" json:"rate_burst"`
}

// Config 应用配置
type Config struct {
	API  APIConfig  `yaml:"api" json:"api"`
	Log  LogConfig  `yaml:"log" json:"log"`
	Mock MockConfig `yaml:"mock" json:"mock"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "http://127.0.0.1:8000/api",
			Timeout:    10 * time.Second,
			RetryCount: 2,
		},
		Log: LogConfig{
			Level:      "info",
			File:       "logs/gridhedge.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
		Mock: MockConfig{
			Listen:        ":8000",
			AdminPassword: "admin",
		},
	}
}

// Load 加载配置（优先级：环境变量 > 配置文件 > 默认值）。
// filePath 为空时只使用默认值与环境变量。
func Load(filePath string) (*Config, error) {
	cfg := Default()
	if filePath != "" {
		if err := loadConfigFile(filePath, cfg); err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile 文件中出现的字段覆盖默认值，未出现的保持不变
func loadConfigFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.API.BaseURL = getEnv("API_URL", cfg.API.BaseURL)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Mock.Listen = getEnv("MOCK_LISTEN", cfg.Mock.Listen)
	cfg.Mock.SpecsFile = getEnv("MOCK_SPECS", cfg.Mock.SpecsFile)
	cfg.Mock.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.Mock.AdminPassword)

	var err error
	if cfg.API.Timeout, err = parseDurationEnv("API_TIMEOUT", cfg.API.Timeout); err != nil {
		return err
	}
	if cfg.API.RetryCount, err = parseIntEnv("API_RETRIES", cfg.API.RetryCount); err != nil {
		return err
	}
	if cfg.Log.Console, err = parseBoolEnv("LOG_CONSOLE", cfg.Log.Console); err != nil {
		return err
	}
	return nil
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url 无效: %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout 必须大于 0")
	}
	if c.Mock.RateLimit < 0 {
		return fmt.Errorf("mock.rate_limit 不能为负数")
	}
	if c.API.RetryCount < 0 {
		return fmt.Errorf("api.retry_count 不能为负数")
	}
	if !c.Log.Console && c.Log.File == "" {
		return fmt.Errorf("log.file 为空且未开启 console，日志无处输出")
	}
	return nil
}

// HTTPOptions 转换为传输层参数
func (c *Config) HTTPOptions() sdkhttp.Options {
	opts := sdkhttp.DefaultOptions()
	opts.Timeout = c.API.Timeout
	opts.RetryCount = c.API.RetryCount
	return opts
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(envPrefix + key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s%s 不是整数: %q", envPrefix, key, value)
	}
	return parsed, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s%s 不是布尔值: %q", envPrefix, key, value)
	}
	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s%s 不是有效时长: %q", envPrefix, key, value)
	}
	return parsed, nil
}
