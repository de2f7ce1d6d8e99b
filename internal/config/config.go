package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config 移动端仪表盘客户端配置
type Config struct {
	API struct {
		// 后端 REST API 基础地址，如 http://localhost:8080
		BaseURL string `yaml:"base_url"`
		// 请求超时（秒），仅依赖传输层默认值之上的整体上限
		Timeout int `yaml:"timeout"`
	} `yaml:"api"`

	Store struct {
		// 凭证文件路径（bearer token / 用户名 / 管理员标志）
		Path string `yaml:"path"`
	} `yaml:"store"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load 加载配置：默认值 → 可选 YAML 文件 → 环境变量覆盖
// path 为空时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	cfg := &Config{}

	// 默认值
	cfg.API.BaseURL = "http://localhost:8080"
	cfg.API.Timeout = 30
	cfg.Store.Path = defaultStorePath()
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	// YAML 文件（可选）
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// 环境变量覆盖
	cfg.API.BaseURL = getEnv("DASHBOARD_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvInt("DASHBOARD_API_TIMEOUT", cfg.API.Timeout)
	cfg.Store.Path = getEnv("DASHBOARD_STORE_PATH", cfg.Store.Path)
	cfg.Log.Level = getEnv("DASHBOARD_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("DASHBOARD_LOG_FORMAT", cfg.Log.Format)

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url must not be empty")
	}
	if cfg.API.Timeout <= 0 {
		return nil, fmt.Errorf("api.timeout must be positive, got %d", cfg.API.Timeout)
	}

	return cfg, nil
}

// defaultStorePath 凭证文件默认放在用户配置目录下
func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "credentials.json"
	}
	return filepath.Join(dir, "dashboard", "credentials.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
