// Package config loads process-wide configuration once at startup.
//
// Configuration is immutable after Load and is passed explicitly into each
// component's constructor — nothing reads the environment ad hoc at request
// time. A .env file in the working directory is honoured in development;
// real environment variables always win.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every knob the server reads from the environment.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs both access and refresh tokens. Required.
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// TokensOnRegister controls whether POST /api/auth/register also issues
	// and persists a token pair, making register behave like an implicit
	// login. Default off: a fresh account has no session until it logs in.
	TokensOnRegister bool

	// ComicVine catalog access. The API key is only needed by the comics
	// proxy routes; the rest of the service runs without it.
	ComicVineAPIKey  string
	ComicVineBaseURL string
}

// Load reads configuration from the environment (and .env, if present).
// It fails fast on a missing JWT secret so a misconfigured deployment never
// starts issuing unverifiable tokens.
func Load() (*Config, error) {
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("config: JWT_SECRET is required")
	}

	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:             port,
		DBPath:           getEnv("DB_PATH", "data/longbox.db"),
		JWTSecret:        secret,
		AccessTTL:        getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:       getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		TokensOnRegister: getBool("AUTH_TOKENS_ON_REGISTER", false),
		ComicVineAPIKey:  os.Getenv("COMICVINE_API_KEY"),
		ComicVineBaseURL: getEnv("COMICVINE_BASE_URL", "https://comicvine.gamespot.com/api"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("config: " + key + " must be an integer")
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
