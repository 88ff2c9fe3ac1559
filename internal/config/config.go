// Package config loads server settings from defaults, an optional YAML file
// and INGEST_-prefixed environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "INGEST"

var (
	ErrReadConfig    = errors.New("error reading config")
	ErrInvalidConfig = errors.New("invalid config")
)

type HTTP struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
}

// Database is optional; an empty URL runs the server on the in-memory store.
type Database struct {
	URL            string `mapstructure:"url"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConns       int32  `mapstructure:"max_conns"`
}

// Kafka is optional; no brokers disables the readings feed and its consumer.
type Kafka struct {
	Brokers       []string      `mapstructure:"brokers"`
	ReadingsTopic string        `mapstructure:"readings_topic"`
	ConsumerGroup string        `mapstructure:"consumer_group"`
	WaitTimeout   time.Duration `mapstructure:"wait_timeout"`
}

// Redis is optional; an empty address keeps the latest-reading cache in memory.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Auth struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
}

type Devices struct {
	MaxPageSize int `mapstructure:"max_page_size"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	HTTP     HTTP     `mapstructure:"http"`
	Database Database `mapstructure:"database"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Redis    Redis    `mapstructure:"redis"`
	Auth     Auth     `mapstructure:"auth"`
	Devices  Devices  `mapstructure:"devices"`
	Log      Log      `mapstructure:"log"`
}

// Every key needs a default, otherwise AutomaticEnv cannot see it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.secure_cookies", false)

	v.SetDefault("database.url", "")
	v.SetDefault("database.migrations_path", "internal/db/migrations")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.readings_topic", "readings_accepted")
	v.SetDefault("kafka.consumer_group", "lastvalue-group")
	v.SetDefault("kafka.wait_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("auth.access_secret", "")
	v.SetDefault("auth.refresh_secret", "")
	v.SetDefault("auth.access_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("devices.max_page_size", 500)

	v.SetDefault("log.level", "info")
}

// Load reads the configuration. path may be empty.
func Load(path string) (Config, error) {
	const fn = "Config:Load"
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%s:%w:%w", fn, ErrReadConfig, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%s:%w:%w", fn, ErrReadConfig, err)
	}
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)
	cfg.HTTP.CORSOrigins = compact(cfg.HTTP.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s:%w", fn, err)
	}
	return cfg, nil
}

// compact trims entries and drops empty ones, so "a, b," reads as [a b].
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	if c.Auth.AccessSecret == "" {
		errs = append(errs, errors.New("auth.access_secret is required"))
	}
	if c.Auth.RefreshSecret == "" {
		errs = append(errs, errors.New("auth.refresh_secret is required"))
	}
	if c.Auth.AccessSecret != "" && c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("auth.access_secret and auth.refresh_secret must differ"))
	}
	if c.Devices.MaxPageSize <= 0 {
		errs = append(errs, errors.New("devices.max_page_size must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.ReadingsTopic == "" {
		errs = append(errs, errors.New("kafka.readings_topic is required when brokers are set"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

func (c Config) DatabaseEnabled() bool { return c.Database.URL != "" }

func (c Config) KafkaEnabled() bool { return len(c.Kafka.Brokers) > 0 }

func (c Config) RedisEnabled() bool { return c.Redis.Addr != "" }
