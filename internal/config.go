package internal

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env           string              `mapstructure:"env" env:"APP_ENV" envDefault:"development"`
	Server        ServerConfig        `mapstructure:"http_server" envPrefix:"HTTP_SERVER_"`
	Database      DatabaseConfig      `mapstructure:"database" envPrefix:"DATABASE_"`
	Security      SecurityConfig      `mapstructure:"security" envPrefix:"SECURITY_"`
	Observability ObservabilityConfig `mapstructure:"observability" envPrefix:"OBSERVABILITY_"`
	RateService   RateServiceConfig   `mapstructure:"rate_service" envPrefix:"RATE_SERVICE_"`
	Notification  NotificationConfig  `mapstructure:"notification" envPrefix:"NOTIFICATION_"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"PORT" envDefault:"8080"`
	BaseURL           string        `mapstructure:"base_url" env:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" env:"ALLOWED_ORIGINS"`
	OpenAPISpecPath   string        `mapstructure:"openapi_spec_path" env:"OPENAPI_SPEC_PATH" envDefault:"./api/openapi.yml"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"15s"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" env:"MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME" envDefault:"5m"`
	Source          string        `mapstructure:"source" env:"SOURCE"`
}

// SecurityConfig holds the verification side of the external identity
// provider. Tokens are issued elsewhere; this service only checks them.
type SecurityConfig struct {
	JWTPublicKey string `mapstructure:"jwt_public_key" env:"JWT_PUBLIC_KEY"`
	Issuer       string `mapstructure:"issuer" env:"ISSUER"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging" envPrefix:"LOGGING_"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LEVEL" envDefault:"info"`
	Format string `mapstructure:"format" env:"FORMAT" envDefault:"json"`
}

// RateServiceConfig configures the live exchange-rate lookup.
type RateServiceConfig struct {
	BaseURL           string        `mapstructure:"base_url" env:"BASE_URL" envDefault:"https://api.frankfurter.app"`
	Timeout           time.Duration `mapstructure:"timeout" env:"TIMEOUT" envDefault:"5s"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" env:"CACHE_TTL" envDefault:"1h"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" env:"REQUESTS_PER_SECOND" envDefault:"2"`
	Burst             int           `mapstructure:"burst" env:"BURST" envDefault:"5"`
}

type NotificationConfig struct {
	AppBaseURL       string        `mapstructure:"app_base_url" env:"APP_BASE_URL"`
	FromAddress      string        `mapstructure:"from_address" env:"FROM_ADDRESS" envDefault:"noreply@procurement.local"`
	ReminderInterval time.Duration `mapstructure:"reminder_interval" env:"REMINDER_INTERVAL" envDefault:"24h"`
	Workers          int           `mapstructure:"workers" env:"WORKERS" envDefault:"4"`
	QueueSize        int           `mapstructure:"queue_size" env:"QUEUE_SIZE" envDefault:"100"`
}

// LoadConfigFromEnv builds the configuration purely from environment
// variables, used by container deployments.
func LoadConfigFromEnv() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values left by a partial config file.
func (c *Config) ApplyDefaults() {
	if c.RateService.BaseURL == "" {
		c.RateService.BaseURL = "https://api.frankfurter.app"
	}
	if c.RateService.Timeout <= 0 {
		c.RateService.Timeout = 5 * time.Second
	}
	if c.RateService.CacheTTL <= 0 {
		c.RateService.CacheTTL = time.Hour
	}
	if c.RateService.RequestsPerSecond <= 0 {
		c.RateService.RequestsPerSecond = 2
	}
	if c.RateService.Burst <= 0 {
		c.RateService.Burst = 5
	}
	if c.Notification.ReminderInterval <= 0 {
		c.Notification.ReminderInterval = 24 * time.Hour
	}
	if c.Notification.Workers <= 0 {
		c.Notification.Workers = 4
	}
	if c.Notification.QueueSize <= 0 {
		c.Notification.QueueSize = 100
	}
	if c.Server.OpenAPISpecPath == "" {
		c.Server.OpenAPISpecPath = "./api/openapi.yml"
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.RateService.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rate service config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if c.JWTPublicKey == "" {
		return errors.New("jwt_public_key is required")
	}
	if _, err := c.GetPublicKey(); err != nil {
		return fmt.Errorf("invalid JWT public key: %w", err)
	}
	return nil
}

func (c *SecurityConfig) GetPublicKey() (*rsa.PublicKey, error) {
	keyData, err := base64.StdEncoding.DecodeString(c.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaPub, nil
}

func (c *RateServiceConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if c.Timeout > 30*time.Second {
		return errors.New("timeout must not exceed 30s")
	}
	return nil
}
