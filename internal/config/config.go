package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"foundermatch/pkg/config"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StorageConfig 存储后端，memory 仅用于本地开发
type StorageConfig struct {
	Driver         string `yaml:"driver"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// CORSConfig 浏览器前端允许的来源
type CORSConfig struct {
	AllowOrigins []string      `yaml:"allow_origins"`
	MaxAge       time.Duration `yaml:"max_age"`
}

// OutboxConfig 事件投递参数
type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

// WorkerConfig 消费端参数
type WorkerConfig struct {
	Queue      string        `yaml:"queue"`
	MaxRetries int64         `yaml:"max_retries"`
	DedupTTL   time.Duration `yaml:"dedup_ttl"`
}

type Config struct {
	Env     string              `yaml:"env"`
	Server  config.ServerConfig `yaml:"server"`
	DB      config.DBConfig     `yaml:"db"`
	MQ      config.MQConfig     `yaml:"mq"`
	Redis   config.RedisConfig  `yaml:"redis"`
	JWT     config.JWTConfig    `yaml:"jwt"`
	Otel    config.OtelConfig   `yaml:"otel"`
	Log     config.LogConfig    `yaml:"log"`
	CORS    CORSConfig          `yaml:"cors"`
	Storage StorageConfig       `yaml:"storage"`
	Outbox  OutboxConfig        `yaml:"outbox"`
	Worker  WorkerConfig        `yaml:"worker"`
}

// Load 读取 config/base.yaml 与 config/<env>.yaml，再用环境变量覆盖
func Load(env, dir string) (*Config, error) {
	if env == "" {
		env = config.GetConfigEnv()
	}
	raw, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.Env = env

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideOtelFromEnv(&cfg.Otel)
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if origins := os.Getenv("CORS_ALLOW_ORIGINS"); origins != "" {
		cfg.CORS.AllowOrigins = strings.Split(origins, ",")
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if v := os.Getenv("MIGRATE_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Storage.MigrateOnStart = b
		}
	}

	// 未提供的可选项视为关闭
	for _, v := range []*string{&cfg.MQ.URL, &cfg.Redis.Password, &cfg.DB.Password} {
		if unresolved(*v) {
			*v = ""
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverPostgres
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.Outbox.Interval == 0 {
		c.Outbox.Interval = 2 * time.Second
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 100
	}
	if c.Outbox.MaxRetries == 0 {
		c.Outbox.MaxRetries = 5
	}
	if c.Worker.Queue == "" {
		c.Worker.Queue = "foundermatch.worker.q"
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.DedupTTL == 0 {
		c.Worker.DedupTTL = 24 * time.Hour
	}
}

// Validate 启动前检查必须项
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.JWT.Secret == "" || unresolved(c.JWT.Secret) {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Env == "production" && c.Storage.Driver == DriverMemory {
		return fmt.Errorf("memory storage is not allowed in production")
	}
	return nil
}

// unresolved 判断占位符是否未被替换
func unresolved(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}")
}
