package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration, loaded from AUTH_* environment
// variables.
type Config struct {
	// Issuer is the iss claim stamped on every token. Tokens from a
	// different issuer never validate, even with the same key.
	Issuer string `env:"AUTH_ISSUER" envDefault:"authd"`

	// Algorithm selects the signing algorithm (EdDSA or RS256).
	Algorithm string `env:"AUTH_ALGORITHM" envDefault:"EdDSA"`
	RSABits   int    `env:"AUTH_RSA_BITS" envDefault:"4096"`

	// SigningKeyFile points at a PKCS8 PEM private key. When unset an
	// ephemeral key is generated on startup and all outstanding tokens die
	// with the process.
	SigningKeyFile string `env:"AUTH_SIGNING_KEY_FILE"`

	DatabaseFile string `env:"AUTH_DATABASE_FILE" envDefault:"authd.db"`
	PepperFile   string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`

	AccessTTL     time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"720h"`
	ResetTokenTTL time.Duration `env:"AUTH_RESET_TOKEN_TTL" envDefault:"1h"`

	// AdminUsername/AdminPassword seed the initial admin on an empty
	// database. An empty password means one is generated and logged once.
	AdminUsername string `env:"AUTH_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"AUTH_ADMIN_PASSWORD"`

	// SMTP delivery for password-reset mail. An empty SMTPAddr selects the
	// dev log notifier instead.
	SMTPAddr     string `env:"AUTH_SMTP_ADDR"`
	SMTPFrom     string `env:"AUTH_SMTP_FROM" envDefault:"no-reply@localhost"`
	SMTPUsername string `env:"AUTH_SMTP_USERNAME"`
	SMTPPassword string `env:"AUTH_SMTP_PASSWORD"`
	ResetURL     string `env:"AUTH_RESET_URL"`

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT" envDefault:"8080"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
