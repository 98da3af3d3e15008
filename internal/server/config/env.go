package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/divvyauth/internal/flagx"
	"github.com/joho/godotenv"
)

// envConfig mirrors Config with environment variable bindings. Unset
// variables leave the current value in place.
type envConfig struct {
	EndpointAddrHTTP             string        `env:"DIVVY_HTTP_ADDR"`
	DatabaseDSN                  string        `env:"DATABASE_URL"`
	SecretKey                    string        `env:"DIVVY_SECRET_KEY"`
	SigningAlgorithm             string        `env:"DIVVY_JWT_ALGORITHM"`
	AccessTokenValidityDuration  time.Duration `env:"DIVVY_ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"DIVVY_REFRESH_TOKEN_TTL"`
	BcryptCost                   int           `env:"DIVVY_BCRYPT_COST"`
	GoogleClientID               string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret           string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI            string        `env:"GOOGLE_REDIRECT_URI"`
	LogLevel                     string        `env:"DIVVY_LOG_LEVEL"`
}

// loadDotEnv reads path (".env" when empty) into the process environment
// without overriding variables that are already set. A missing file is fine.
func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// parseEnv overlays environment variables onto config. The dotenv file may
// be chosen with -env-file. Malformed values panic, like the other sources.
func parseEnv(config *Config) {
	if err := loadDotEnv(flagx.EnvFileFlag()); err != nil {
		panic(err)
	}

	raw := envConfig{
		EndpointAddrHTTP:             config.EndpointAddrHTTP,
		DatabaseDSN:                  config.DatabaseDSN,
		SecretKey:                    config.SecretKey,
		SigningAlgorithm:             config.SigningAlgorithm,
		AccessTokenValidityDuration:  config.AccessTokenValidityDuration,
		RefreshTokenValidityDuration: config.RefreshTokenValidityDuration,
		BcryptCost:                   config.BcryptCost,
		GoogleClientID:               config.GoogleClientID,
		GoogleClientSecret:           config.GoogleClientSecret,
		GoogleRedirectURI:            config.GoogleRedirectURI,
		LogLevel:                     config.LogLevel,
	}

	if err := env.Parse(&raw); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = raw.EndpointAddrHTTP
	config.DatabaseDSN = raw.DatabaseDSN
	config.SecretKey = raw.SecretKey
	config.SigningAlgorithm = raw.SigningAlgorithm
	config.AccessTokenValidityDuration = raw.AccessTokenValidityDuration
	config.RefreshTokenValidityDuration = raw.RefreshTokenValidityDuration
	config.BcryptCost = raw.BcryptCost
	config.GoogleClientID = raw.GoogleClientID
	config.GoogleClientSecret = raw.GoogleClientSecret
	config.GoogleRedirectURI = raw.GoogleRedirectURI
	config.LogLevel = raw.LogLevel
}
