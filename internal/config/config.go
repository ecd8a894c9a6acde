package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	LogLevel           string   `mapstructure:"LOG_LEVEL"`
	DatabaseURL        string   `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret          string   `mapstructure:"JWT_SECRET"`
	JWTIssuer          string   `mapstructure:"JWT_ISSUER"`
	TokenTTLMinutes    int      `mapstructure:"TOKEN_TTL_MINUTES"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int      `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit          string   `mapstructure:"BODY_LIMIT"`
	RequestTimeoutSecs int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	QueueElderlyMinAge int      `mapstructure:"QUEUE_ELDERLY_MIN_AGE"`
	QueueChildUnderAge int      `mapstructure:"QUEUE_CHILD_UNDER_AGE"`
	ExportDocumentType string   `mapstructure:"EXPORT_DOCUMENT_TYPE"`
	ExportFontPath     string   `mapstructure:"EXPORT_FONT_PATH"`
}

var serverKeys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SECRET", "JWT_ISSUER", "TOKEN_TTL_MINUTES", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT", "REQUEST_TIMEOUT_SECONDS",
	"QUEUE_ELDERLY_MIN_AGE", "QUEUE_CHILD_UNDER_AGE",
	"EXPORT_DOCUMENT_TYPE", "EXPORT_FONT_PATH",
}

// Load reads the server configuration from the environment and an optional
// .env file in the working directory.
func Load() (*Config, error) {
	v := newViper()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JWT_ISSUER", "bhis")
	v.SetDefault("TOKEN_TTL_MINUTES", 720)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("QUEUE_ELDERLY_MIN_AGE", 60)
	v.SetDefault("QUEUE_CHILD_UNDER_AGE", 12)
	v.SetDefault("EXPORT_DOCUMENT_TYPE", "PhilPEN")

	for _, k := range serverKeys {
		v.BindEnv(k)
	}
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	return v
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

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// Validate checks the settings the server cannot run safely without.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("TOKEN_TTL_MINUTES must be positive, got %d", c.TokenTTLMinutes)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.QueueChildUnderAge < 0 || c.QueueElderlyMinAge <= c.QueueChildUnderAge {
		return fmt.Errorf("QUEUE_ELDERLY_MIN_AGE (%d) must exceed QUEUE_CHILD_UNDER_AGE (%d)",
			c.QueueElderlyMinAge, c.QueueChildUnderAge)
	}
	if c.IsProduction() {
		for _, o := range c.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("CORS_ORIGINS must not be \"*\" in production")
			}
		}
	}
	return nil
}

// ClientConfig configures the bhis command-line client.
type ClientConfig struct {
	APIURL         string `mapstructure:"BHIS_API_URL"`
	SessionFile    string `mapstructure:"BHIS_SESSION_FILE"`
	TimeoutSeconds int    `mapstructure:"BHIS_TIMEOUT_SECONDS"`
}

// LoadClient reads the client configuration. The session file defaults to
// .bhis/session.json under home.
func LoadClient(home string) (*ClientConfig, error) {
	v := newViper()
	v.SetDefault("BHIS_API_URL", "http://localhost:8000/api")
	v.SetDefault("BHIS_SESSION_FILE", filepath.Join(home, ".bhis", "session.json"))
	v.SetDefault("BHIS_TIMEOUT_SECONDS", 15)
	for _, k := range []string{"BHIS_API_URL", "BHIS_SESSION_FILE", "BHIS_TIMEOUT_SECONDS"} {
		v.BindEnv(k)
	}
	_ = v.ReadInConfig()

	cfg := &ClientConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal client config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("BHIS_API_URL is required")
	}
	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("BHIS_TIMEOUT_SECONDS must be positive, got %d", cfg.TimeoutSeconds)
	}
	return cfg, nil
}

func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
