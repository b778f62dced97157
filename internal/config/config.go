// Package config loads application configuration from environment
// variables. Configuration is read once at process start and passed
// by value into the components that need it; nothing here is mutated
// after Load returns.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. The auth secret and the
// pricing policy are process-wide by design: the token codec must
// never derive key material from request data, and the minimum-order
// threshold applies uniformly to every checkout.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	AuthSecret    string // secret used to sign session tokens
	AccessTTLMin  int    // session token time-to-live in minutes
	PBKDF2Iters   int    // password hashing iteration count (capped at 100k)
	MinOrderPaise int64  // minimum order amount in paise
}

// Load reads configuration from the environment. Required variables
// are enforced by must(); a missing secret or store address is a
// configuration error and stops the process before it can serve a
// single request, which keeps it distinct from any per-request
// authentication failure.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		AuthSecret:    must("AUTH_SECRET"),
		AccessTTLMin:  envInt("ACCESS_TOKEN_TTL_MIN", 60),
		PBKDF2Iters:   envInt("PBKDF2_ITERATIONS", 100000),
		MinOrderPaise: int64(envInt("MIN_ORDER_PAISE", 10000)),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
