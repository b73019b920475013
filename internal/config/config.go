package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	MySQL     DatabaseConfig  `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Session   SessionConfig   `mapstructure:"session"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr    string   `mapstructure:"addr"`
	APIKeys []string `mapstructure:"api_keys"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

// Enabled reports whether event publishing is configured; with no brokers the
// bridge degrades to in-process event handling only.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"`
}

// ProviderConfig holds the WhatsApp Cloud API credentials. VerifyToken guards
// webhook verification; AppSecret (optional) enables payload signature checks.
type ProviderConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIVersion    string        `mapstructure:"api_version"`
	PhoneNumberID string        `mapstructure:"phone_number_id"`
	Token         string        `mapstructure:"token"`
	VerifyToken   string        `mapstructure:"verify_token"`
	AppSecret     string        `mapstructure:"app_secret"`
	TimeoutMs     int           `mapstructure:"timeout_ms"`
	Breaker       BreakerConfig `mapstructure:"breaker"`
}

type GatewayConfig struct {
	FallbackEnabled bool          `mapstructure:"fallback_enabled"`
	BulkEnabled     bool          `mapstructure:"bulk_enabled"`
	BulkDelay       time.Duration `mapstructure:"bulk_delay"`
}

type RateLimitConfig struct {
	HourlyLimit int    `mapstructure:"hourly_limit"`
	DailyLimit  int    `mapstructure:"daily_limit"`
	Scope       string `mapstructure:"scope"` // "global" | "recipient"
	KeyPrefix   string `mapstructure:"key_prefix"`
}

type SessionConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
	ReapBatch    int           `mapstructure:"reap_batch"`
}

type RetentionConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"`
	Batch  int           `mapstructure:"batch"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (WABRIDGE_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (WABRIDGE_*)
	v.SetEnvPrefix("WABRIDGE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
