package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret is the fallback signing secret, accepted only in debug mode.
const DevJWTSecret = "food_delivery_super_secret_2024"

type Config struct {
	Port           int
	GinMode        string
	RequestTimeout time.Duration

	DB    DBConfig
	JWT   JWTConfig
	Redis RedisConfig
	Kafka KafkaConfig
	Log   LogConfig
	CORS  CORSConfig
	Auth  AuthConfig
	Admin AdminConfig
}

type DBConfig struct {
	Driver string
	DSN    string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type AuthConfig struct {
	RateLimit float64
	RateBurst int
}

type AdminConfig struct {
	SignupEnabled bool
}

// SetDefaults registers every key with its default so env vars bind even
// when no flag or file mentions them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "food_delivery.db")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "order-events")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("auth.rate_limit", 5.0)
	v.SetDefault("auth.rate_burst", 10)
	v.SetDefault("admin.signup_enabled", true)
}

// NewViper returns a viper instance reading defaults and environment
// variables (db.dsn -> DB_DSN). A .env file in the working directory is
// loaded first when present.
func NewViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:           v.GetInt("port"),
		GinMode:        v.GetString("gin_mode"),
		RequestTimeout: v.GetDuration("request_timeout"),
		DB: DBConfig{
			Driver: strings.ToLower(v.GetString("db.driver")),
			DSN:    v.GetString("db.dsn"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			TTL:    v.GetDuration("jwt.ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
		},
		Auth: AuthConfig{
			RateLimit: v.GetFloat64("auth.rate_limit"),
			RateBurst: v.GetInt("auth.rate_burst"),
		},
		Admin: AdminConfig{
			SignupEnabled: v.GetBool("admin.signup_enabled"),
		},
	}

	if cfg.JWT.Secret == "" && cfg.GinMode == "debug" {
		cfg.JWT.Secret = DevJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported db.driver %q (want sqlite, mysql or postgres)", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("db.dsn is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required outside debug mode")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("jwt.ttl must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Auth.RateLimit <= 0 || c.Auth.RateBurst <= 0 {
		return errors.New("auth.rate_limit and auth.rate_burst must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
