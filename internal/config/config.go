package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Version is stamped into every save blob and checked on load.
const Version = "2.0.0"

type Config struct {
	Port        string
	Env         string
	DBSource    string // optional; file-backed storage is used when empty
	DataDir     string
	TokenSecret string

	StartingBalance int64
	MinTopUp        int64
	MaxTopUp        int64

	MinSellPrice    int64
	MaxListingsUser int
	CommissionRate  float64
	MaxListingAge   time.Duration

	AutosaveInterval time.Duration
	SweepInterval    time.Duration
}

func Load() (*Config, error) {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		if env == "production" {
			return nil, fmt.Errorf("TOKEN_SECRET environment variable is required in production")
		}
		secret = "dev-secret"
	}

	cfg := &Config{
		Port:        port,
		Env:         env,
		DBSource:    os.Getenv("DB_SOURCE"),
		DataDir:     dataDir,
		TokenSecret: secret,

		StartingBalance: 100,
		MinTopUp:        15,
		MaxTopUp:        100000,

		MinSellPrice:    1,
		MaxListingsUser: 10,
		CommissionRate:  0.05,
		MaxListingAge:   30 * 24 * time.Hour,

		AutosaveInterval: 30 * time.Second,
		SweepInterval:    time.Minute,
	}

	if v := os.Getenv("MAX_LISTING_AGE_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("invalid MAX_LISTING_AGE_DAYS: %q", v)
		}
		cfg.MaxListingAge = time.Duration(days) * 24 * time.Hour
	}

	return cfg, nil
}

// ValidTopUp reports whether amount is within the accepted top-up bounds.
func (c *Config) ValidTopUp(amount int64) bool {
	return amount >= c.MinTopUp && amount <= c.MaxTopUp
}
