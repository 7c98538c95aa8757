// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Mail backends.
const (
	MailPostmark = "postmark"
	MailDir      = "dir"
	MailLog      = "log"
)

// ErrInvalidConfig is returned when the loaded settings are inconsistent.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the server settings.
type Config struct {
	Addr    string `env:"LOSTFOUND_ADDR" envDefault:":8080"`
	DBPath  string `env:"LOSTFOUND_DB" envDefault:"lostfound.db"`
	LogFile string `env:"LOSTFOUND_LOG"`
	Admin   string `env:"LOSTFOUND_ADMIN" envDefault:"admin"`
	BaseURL string `env:"LOSTFOUND_BASE_URL" envDefault:"http://localhost:8080"`

	Mail Mail
}

// Mail configures outgoing email.
type Mail struct {
	Backend              string `env:"MAIL_BACKEND" envDefault:"log"`
	Dir                  string `env:"MAIL_DIR" envDefault:"mail"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	From                 string `env:"MAIL_FROM" envDefault:"noreply@localhost"`
	ReplyTo              string `env:"MAIL_REPLY_TO"`
}

// Load reads the optional dotenv files (".env" when none are given) and
// then parses the environment. Variables already set take precedence over
// the files.
func Load(dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Mail.Backend {
	case MailLog:
	case MailDir:
		if c.Mail.Dir == "" {
			return fmt.Errorf("%w: MAIL_DIR is required for the dir backend", ErrInvalidConfig)
		}
	case MailPostmark:
		if c.Mail.PostmarkServerToken == "" || c.Mail.PostmarkAccountToken == "" {
			return fmt.Errorf("%w: postmark tokens are required for the postmark backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown MAIL_BACKEND %q", ErrInvalidConfig, c.Mail.Backend)
	}
	return nil
}
