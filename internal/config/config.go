package config

import (
	"context"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port        string `env:"PORT,default=8080"`
	Environment string `env:"ENVIRONMENT,default=development"`
	DatabaseURL string `env:"DATABASE_URL"`

	PSQLHost     string `env:"PSQL_HOST,default=localhost"`
	PSQLPort     string `env:"PSQL_PORT,default=5432"`
	PSQLUser     string `env:"PSQL_USER,default=postgres"`
	PSQLPassword string `env:"PSQL_PASSWORD"`
	PSQLDBName   string `env:"PSQL_DB_NAME,default=pulse"`

	JWTSecret           string `env:"JWT_SECRET,default=dev-secret"`
	JWTExpiresInSeconds int64  `env:"JWT_EXPIRES_IN_SECONDS,default=86400"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT,default=587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM,default=no-reply@pulse.app"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS,default=false"`

	// EmailTestMode makes the send-code endpoint return the plaintext code in
	// the response instead of requiring working email delivery. Never enable
	// in production.
	EmailTestMode bool `env:"EMAIL_TEST_MODE,default=false"`

	OTPTTL time.Duration `env:"OTP_TTL,default=5m"`
}

func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.PSQLUser, cfg.PSQLPassword),
			Host:   cfg.PSQLHost + ":" + cfg.PSQLPort,
			Path:   cfg.PSQLDBName,
		}
		q := u.Query()
		q.Set("sslmode", "disable")
		u.RawQuery = q.Encode()
		cfg.DatabaseURL = u.String()
	}

	return &cfg, nil
}
