// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigPath API 进程默认配置文件
const DefaultConfigPath = "configs/api.yaml"

// 启动期校验错误
var (
	ErrMissingDSN    = errors.New("database.dsn (DATABASE_URL) 未配置")
	ErrMissingAPIKey = errors.New("model.llm.api_key (GROQ_API_KEY) 未配置")
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Model      ModelConfig      `mapstructure:"model"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置；AllowOrigins 为空时允许任意来源
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	RateLimit    bool `mapstructure:"rate_limit"`
	RateLimitRPS int  `mapstructure:"rate_limit_rps"`
}

// DatabaseConfig Postgres 连接池配置
type DatabaseConfig struct {
	DSN            string `mapstructure:"dsn"`
	MinConns       int    `mapstructure:"min_conns"`
	MaxConns       int    `mapstructure:"max_conns"`
	AcquireTimeout string `mapstructure:"acquire_timeout"` // 如 "5s"
	ConnectTimeout string `mapstructure:"connect_timeout"` // 如 "10s"
	SSLMode        string `mapstructure:"ssl_mode"`        // 空则沿用 DSN 中的 sslmode
	AutoMigrate    bool   `mapstructure:"auto_migrate"`    // 启动时执行 CREATE TABLE IF NOT EXISTS
}

// StorageConfig 存储配置
type StorageConfig struct {
	Metadata MetadataConfig `mapstructure:"metadata"`
	Object   ObjectConfig   `mapstructure:"object"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// MetadataConfig 元数据存储配置
type MetadataConfig struct {
	Type string `mapstructure:"type"` // postgres | memory
}

// ObjectConfig 对象存储配置
type ObjectConfig struct {
	Type            string `mapstructure:"type"` // none | memory | gcs
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Timeout         string `mapstructure:"timeout"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// CacheConfig 回答缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"` // none | memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	TTL      string `mapstructure:"ttl"`
}

// IngestConfig 入库管线配置
type IngestConfig struct {
	Extractor      string `mapstructure:"extractor"`       // unipdf | ledongthuc
	PersistTimeout string `mapstructure:"persist_timeout"` // 元数据写入超时
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM LLMConfig `mapstructure:"llm"`
}

// LLMConfig 补全服务配置（OpenAI 兼容接口，默认 Groq）
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
	Timeout     string  `mapstructure:"timeout"`
}

// SecretsConfig 密钥来源；provider 为 vault 时 DSN 与 API Key 可从 Vault 读取
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | memory | vault
	Vault    VaultConfig `mapstructure:"vault"`
}

// VaultConfig Vault 连接配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig Prometheus 配置；指标挂在 API 端口的 /metrics 上
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// RateLimitsConfig 限流配置
type RateLimitsConfig struct {
	LLM LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 补全调用限流
type LLMRateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.timeout", "60s")
	v.SetDefault("api.cors.enable", true)
	v.SetDefault("api.middleware.rate_limit_rps", 50)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.acquire_timeout", "5s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.metadata.type", "postgres")
	v.SetDefault("storage.object.type", "none")
	v.SetDefault("storage.object.prefix", "uploads")
	v.SetDefault("storage.object.timeout", "30s")
	v.SetDefault("storage.cache.type", "none")
	v.SetDefault("storage.cache.ttl", "10m")
	v.SetDefault("ingest.extractor", "unipdf")
	v.SetDefault("ingest.persist_timeout", "10s")
	v.SetDefault("model.llm.provider", "groq")
	v.SetDefault("model.llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("model.llm.model", "llama-3.2-90b-text-preview")
	v.SetDefault("model.llm.temperature", 1.0)
	v.SetDefault("model.llm.max_tokens", 1024)
	v.SetDefault("model.llm.top_p", 1.0)
	v.SetDefault("model.llm.timeout", "60s")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.prometheus.enable", true)
	v.SetDefault("monitoring.tracing.service_name", "planet-ai-api")
}

// LoadConfig 加载配置文件；configPath 为空或文件不存在时仅使用默认值与环境变量
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// 兼容原有部署使用的环境变量名
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("model.llm.api_key", "MODEL_LLM_API_KEY", "GROQ_API_KEY")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("无法读取配置文件: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

// LoadAPIConfig 加载 API 配置（configs/api.yaml，可用 PLANET_CONFIG 覆盖路径）
func LoadAPIConfig() (*Config, error) {
	path := DefaultConfigPath
	if p := os.Getenv("PLANET_CONFIG"); p != "" {
		path = p
	}
	return LoadConfig(path)
}

// expandEnv 将 "${VAR}" 形式的值替换为环境变量，未设置时保持原值
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}
	envVar := strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return s
}

// replaceEnvVars 替换配置中的环境变量占位
func replaceEnvVars(config *Config) {
	config.Database.DSN = expandEnv(config.Database.DSN)
	config.Model.LLM.APIKey = expandEnv(config.Model.LLM.APIKey)
	config.Storage.Cache.Password = expandEnv(config.Storage.Cache.Password)
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
}

// isPlaceholder 未被替换的 ${VAR} 视为未配置
func isPlaceholder(s string) bool {
	return strings.HasPrefix(s, "${")
}

// Validate 启动期校验：缺少数据库连接串为致命错误
func (c *Config) Validate() error {
	if c.Storage.Metadata.Type == "" || c.Storage.Metadata.Type == "postgres" {
		if c.Database.DSN == "" || isPlaceholder(c.Database.DSN) {
			return ErrMissingDSN
		}
	}
	if c.Model.LLM.APIKey == "" || isPlaceholder(c.Model.LLM.APIKey) {
		return ErrMissingAPIKey
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns(%d) 大于 database.max_conns(%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	return nil
}

// ParseDuration 解析时长字符串，无效或空时返回 defaultVal
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
