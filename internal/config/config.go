package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFiles are read, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

type AdminOptions struct {
	Username string `env:"ADMIN_USERNAME"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

// Configured reports whether a bootstrap admin account was requested.
func (a AdminOptions) Configured() bool {
	return a.Username != "" && a.Password != ""
}

type SMTPOptions struct {
	Server      string `env:"SMTP_SERVER"`
	Port        int    `env:"SMTP_PORT" envDefault:"587"`
	Username    string `env:"SMTP_USERNAME"`
	Password    string `env:"SMTP_PASSWORD"`
	SenderEmail string `env:"SMTP_SENDER_EMAIL"`
	SenderName  string `env:"SMTP_SENDER_NAME" envDefault:"Change Management System"`
}

func (s SMTPOptions) Configured() bool {
	return s.Server != "" && s.SenderEmail != ""
}

type MailgunOptions struct {
	Domain string `env:"MAILGUN_DOMAIN"`
	APIKey string `env:"MAILGUN_API_KEY"`
}

func (m MailgunOptions) Configured() bool {
	return m.Domain != "" && m.APIKey != ""
}

type LogOptions struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
	Path   string `env:"LOG_PATH"`
}

type MetricsOptions struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH" envDefault:"/metrics"`
}

type Configuration struct {
	PostgresConn    string        `env:"POSTGRES_CONN"`
	ServerAddress   string        `env:"SERVER_ADDRESS" envDefault:"0.0.0.0:8080"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"24h"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"true"`
	RedisURL        string        `env:"REDIS_URL"`

	Admin   AdminOptions
	SMTP    SMTPOptions
	Mailgun MailgunOptions
	Log     LogOptions
	Metrics MetricsOptions
}

var (
	ErrMissingPostgresConn = errors.New("POSTGRES_CONN env variable is not set")
	ErrMissingSigningKey   = errors.New("JWT_SIGNING_KEY env variable is not set")
)

// LoadEnv loads the env files that exist and returns how many were read.
// Later files win over earlier ones; variables already set in the process
// win over all of them.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for i := len(envFiles) - 1; i >= 0; i-- {
		if _, err := os.Stat(envFiles[i]); err == nil {
			existing = append(existing, envFiles[i])
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads env files and parses the process environment.
func Load(envFiles ...string) (*Configuration, error) {
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return c, nil
}

// Validate checks the settings required to serve traffic.
func (c *Configuration) Validate() error {
	if c.PostgresConn == "" {
		return ErrMissingPostgresConn
	}
	if c.JWTSigningKey == "" {
		return ErrMissingSigningKey
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive, got %s", c.SessionDuration)
	}
	if c.Metrics.Enabled && (c.Metrics.Path == "" || c.Metrics.Path[0] != '/') {
		return fmt.Errorf("METRICS_PATH must start with '/', got %q", c.Metrics.Path)
	}
	return nil
}
