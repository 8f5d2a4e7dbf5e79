// Package config loads the application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Conf holds the configuration loaded by Init.
var Conf Config

// Config mirrors the layout of configs/config.yaml.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Mail          MailConfig          `mapstructure:"mail"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// MaxUploadMB caps multipart uploads.
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

type MySQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig configures the document indexing topic. An empty Brokers disables indexing.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig configures full-text search. An empty Addresses falls back to SQL search.
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	// PublicBaseURL, when set, prefixes stored file URLs instead of the endpoint.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// LLMConfig configures the OpenAI-compatible chat API used by the ask endpoint.
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TimeoutSec  int     `mapstructure:"timeout_seconds"`
}

// MailConfig holds SMTP settings. Mail is disabled unless Host and From are set.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// AuthConfig controls who may register and who receives admin fan-out.
type AuthConfig struct {
	AllowedDomains   []string `mapstructure:"allowed_domains"`
	AdminEmails      []string `mapstructure:"admin_emails"`
	SuperAdminEmails []string `mapstructure:"superadmin_emails"`
}

type WorkflowConfig struct {
	// SideEffectTimeoutSec bounds each storage delete and email send.
	SideEffectTimeoutSec int    `mapstructure:"side_effect_timeout_seconds"`
	AppBaseURL           string `mapstructure:"app_base_url"`
}

// SideEffectTimeout returns the configured timeout, defaulting to 10s.
func (w WorkflowConfig) SideEffectTimeout() time.Duration {
	if w.SideEffectTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(w.SideEffectTimeoutSec) * time.Second
}

// Init reads the YAML file at configPath into Conf. Environment variables such as
// AUTH_ADMIN_EMAILS or MAIL_HOST override file values.
func Init(configPath string) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("failed to read config file: %w", err))
	}

	if err := v.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("failed to unmarshal config: %w", err))
	}
	Conf.Auth.AdminEmails = normalizeList(Conf.Auth.AdminEmails)
	Conf.Auth.SuperAdminEmails = normalizeList(Conf.Auth.SuperAdminEmails)
	Conf.Auth.AllowedDomains = normalizeList(Conf.Auth.AllowedDomains)
}

// normalizeList lowercases and trims entries, splitting comma-joined values that
// arrive from a single environment variable.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
