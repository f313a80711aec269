package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const envPrefix = "ORCHESTRATOR_"

type Config struct {
	Primary   Primary                  `koanf:"primary"`
	Server    ServerConfig             `koanf:"server"`
	Database  DatabaseConfig           `koanf:"database"`
	Logger    LoggerConfig             `koanf:"logger"`
	Retry     RetryConfig              `koanf:"retry"`
	Worker    WorkerConfig             `koanf:"worker"`
	RateLimit RateLimitConfig          `koanf:"rate_limit"`
	Payments  PaymentsConfig           `koanf:"payments"`
	Gateways  map[string]GatewayConfig `koanf:"gateways" validate:"dive"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
	// StrictExtensions makes extension failures surface to the caller
	// instead of being logged and swallowed.
	StrictExtensions bool `koanf:"strict_extensions"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Driver          string        `koanf:"driver" validate:"required,oneof=postgres memory"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type LoggerConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

// RetryConfig drives the retry decorator around HTTP gateway calls.
type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
	// PendingTTL is how long a checkout may wait for the payer before the
	// sweeper cancels it.
	PendingTTL time.Duration `koanf:"pending_ttl" validate:"required"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

type PaymentsConfig struct {
	EndpointBaseURL   string   `koanf:"endpoint_base_url" validate:"required,url"`
	AllowedGateways   []string `koanf:"allowed_gateways"`
	DefaultSuccessURL string   `koanf:"default_success_url" validate:"omitempty,url"`
	DefaultFailureURL string   `koanf:"default_failure_url" validate:"omitempty,url"`
}

// GatewayConfig binds a gateway name to a driver and carries its registry
// entry plus driver parameters (credentials, endpoints).
type GatewayConfig struct {
	Driver             string            `koanf:"driver" validate:"required"`
	Params             map[string]string `koanf:"params"`
	gatewayinfo.Config `koanf:",squash"`
}

// Registry returns the gatewayinfo entries keyed by gateway name.
func (c *Config) Registry() map[string]gatewayinfo.Config {
	out := make(map[string]gatewayinfo.Config, len(c.Gateways))
	for name, gw := range c.Gateways {
		out[name] = gw.Config
	}
	return out
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":                    "development",
		"server.port":                    "8080",
		"server.read_timeout":            "15s",
		"server.write_timeout":           "30s",
		"server.idle_timeout":            "60s",
		"database.driver":                "postgres",
		"database.port":                  5432,
		"database.ssl_mode":              "disable",
		"database.max_open_conns":        10,
		"database.max_idle_conns":        2,
		"database.conn_max_lifetime":     "1h",
		"database.conn_max_idle_time":    "30m",
		"logger.level":                   "info",
		"logger.format":                  "text",
		"retry.base_delay":               "200ms",
		"retry.max_retries":              3,
		"worker.interval":                "1m",
		"worker.batch_size":              50,
		"worker.pending_ttl":             "2h",
		"rate_limit.requests_per_second": 20.0,
		"rate_limit.burst":               40,
		"payments.endpoint_base_url":     "http://localhost:8080",
		"payments.allowed_gateways":      []string{gatewayinfo.ManualGateway},
		"gateways.Manual.driver":         "manual",
	}
}

// LoadConfig layers defaults, an optional YAML file named by
// ORCHESTRATOR_CONFIG_FILE and ORCHESTRATOR_ environment variables, in that
// order. Nested keys use "__" in variable names, e.g.
// ORCHESTRATOR_DATABASE__HOST.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load defaults", "error", err)
		return nil, err
	}

	if path := os.Getenv(envPrefix + "CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Error("failed to load config file", "path", path, "error", err)
			return nil, err
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if mainConfig.Database.Driver == "postgres" && mainConfig.Database.Host == "" {
		err = errors.New("database.host is required for the postgres driver")
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
