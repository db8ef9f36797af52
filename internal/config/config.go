package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration parses yaml values like "30s" or "1h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Config top-level struct
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Auth       AuthConfig       `yaml:"auth"`
	Engine     EngineConfig     `yaml:"engine"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

type AuthConfig struct {
	Secret    string   `yaml:"secret"`
	Issuer    string   `yaml:"issuer"`
	Audience  string   `yaml:"audience"`
	AccessTTL Duration `yaml:"access_ttl"`
}

type EngineConfig struct {
	// RetryFailed controls replay of FAILED idempotency keys: false replays
	// the stored failure, true rejects the key so the caller picks a new one.
	RetryFailed bool `yaml:"retry_failed"`
}

type ReconcilerConfig struct {
	Interval   Duration `yaml:"interval"`
	StaleAfter Duration `yaml:"stale_after"`
	Batch      int      `yaml:"batch"`
}

// Load reads the yaml file, with secrets overridable from the environment
// (a .env file is honored when present).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}
	return &cfg, nil
}
