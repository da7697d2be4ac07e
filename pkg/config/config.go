package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v7"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort         int    `env:"HTTP_PORT" envDefault:"8080"`
	PostgresDSN      string `env:"POSTGRES_DSN"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	RedisAddr        string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	JWT              JWTConfig
	Auth             AuthConfig
	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic       string   `env:"KAFKA_NOTIFICATION_TOPIC"`

	// TLS is optional; without certificates the server speaks plain HTTP
	// behind the ingress.
	ServerCert string `env:"TLS_SERVER_CERT"`
	ServerKey  string `env:"TLS_SERVER_KEY"`
}

type JWTConfig struct {
	PrivateKey         string        `env:"JWT_PRIVATE_KEY"`
	PublicKey          string        `env:"JWT_PUBLIC_KEY"`
	AccessTokenExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"720h"`
}

type AuthConfig struct {
	// Per-IP limit on login attempts.
	LoginRatePerMinute   int           `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
	LoginRateBurst       int           `env:"LOGIN_RATE_BURST" envDefault:"5"`
	SessionHashRequired  bool          `env:"SESSION_HASH_REQUIRED" envDefault:"false"`
	TokenCleanupInterval time.Duration `env:"TOKEN_CLEANUP_INTERVAL" envDefault:"1h"`
}

func New(envPath string) (Config, error) {
	var c Config

	err := godotenv.Load(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	err = env.Parse(&c)
	if err != nil {
		return Config{}, err
	}

	if (c.ServerCert == "") != (c.ServerKey == "") {
		return Config{}, errors.New("TLS_SERVER_CERT and TLS_SERVER_KEY must be set together")
	}

	for _, path := range []string{c.ServerCert, c.ServerKey} {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Config{}, fmt.Errorf("missing TLS file: %s", path)
		}
	}

	return c, nil
}

func (c Config) TLSEnabled() bool {
	return c.ServerCert != "" && c.ServerKey != ""
}
