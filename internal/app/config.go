package app

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config holds all runtime configuration. Values are layered: defaults,
// then .env file, then environment variables, then command-line flags.
type Config struct {
	Env       string
	LogLevel  string
	LogFormat string

	Port                int
	ShutdownGracePeriod time.Duration

	DatabaseFile string

	// TOTPIssuer is the label accounts appear under in authenticator apps.
	TOTPIssuer string

	// Independent secrets for the three token families.
	AccessTokenSecret  string
	RefreshTokenSecret string
	TwoFATokenSecret   string

	// CipherKeyHex is the 64-char hex encoding of the 32-byte AES key used
	// to encrypt TOTP secrets at rest.
	CipherKeyHex string
}

// LoadConfig builds the configuration from args and the process environment.
func LoadConfig(args []string) (Config, error) {
	// A missing .env file is fine; explicit env vars still apply.
	_ = godotenv.Load()

	cfg := Config{
		Env:                 envOr("ENV", "dev"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		LogFormat:           envOr("LOG_FORMAT", "json"),
		Port:                8080,
		ShutdownGracePeriod: 10 * time.Second,
		DatabaseFile:        envOr("DATABASE_FILE", "taskforge.db"),
		TOTPIssuer:          envOr("TOTP_ISSUER", "Task Management"),
		AccessTokenSecret:   os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret:  os.Getenv("REFRESH_TOKEN_SECRET"),
		TwoFATokenSecret:    os.Getenv("TWOFA_TOKEN_SECRET"),
		CipherKeyHex:        os.Getenv("SECRET_KEY"),
	}

	if port := os.Getenv("PORT"); port != "" {
		if _, err := fmt.Sscanf(port, "%d", &cfg.Port); err != nil {
			return Config{}, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
	}
	if grace := os.Getenv("SHUTDOWN_GRACE_PERIOD"); grace != "" {
		d, err := time.ParseDuration(grace)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_GRACE_PERIOD %q: %w", grace, err)
		}
		cfg.ShutdownGracePeriod = d
	}

	flags := pflag.NewFlagSet("taskforge", pflag.ContinueOnError)
	flags.IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	flags.StringVarP(&cfg.DatabaseFile, "database", "d", cfg.DatabaseFile, "path to the sqlite database file")
	flags.StringVar(&cfg.Env, "env", cfg.Env, "deployment environment (dev, prod)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (json, text)")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AccessTokenSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET is required")
	}
	if c.RefreshTokenSecret == "" {
		return errors.New("REFRESH_TOKEN_SECRET is required")
	}
	if c.TwoFATokenSecret == "" {
		return errors.New("TWOFA_TOKEN_SECRET is required")
	}
	if _, err := c.CipherKey(); err != nil {
		return err
	}
	return nil
}

// CipherKey decodes the hex cipher key and enforces its length.
func (c Config) CipherKey() ([]byte, error) {
	key, err := hex.DecodeString(c.CipherKeyHex)
	if err != nil {
		return nil, fmt.Errorf("SECRET_KEY must be hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("SECRET_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
