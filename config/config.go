// Package config loads the Fuelflux service configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultFuelPrice is the per-litre price reported to customers when
// FUELFLUX_FUEL_PRICE is unset.
const DefaultFuelPrice = 63.09

// ErrInvalid is returned by Validate when one or more settings are unusable.
var ErrInvalid = errors.New("invalid configuration")

// Storage backends for the catalog.
const (
	StorageMemory   = "memory"
	StorageBBolt    = "bbolt"
	StoragePostgres = "postgres"
)

// Device session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds every runtime setting of the service.
type Config struct {
	// Secret signs both user and device tokens.
	Secret string
	// DeviceSessionMinutes may be zero or negative, in which case every
	// device token is expired at issuance.
	DeviceSessionMinutes int
	UserTokenDays        int
	CleanupInterval      time.Duration

	Storage     string
	DataDir     string
	PostgresDSN string

	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port int
	// TrustedProxies lists the networks whose X-Forwarded-For header is
	// honoured when picking the client address for rate limiting.
	TrustedProxies []netip.Prefix
	FuelPrice      float64

	AlertWebhookURL  string
	AlertWebhookAuth string
}

// DeviceSessionDuration returns the device session lifetime.
func (c *Config) DeviceSessionDuration() time.Duration {
	return time.Duration(c.DeviceSessionMinutes) * time.Minute
}

// UserTokenLifetime returns the user token lifetime.
func (c *Config) UserTokenLifetime() time.Duration {
	return time.Duration(c.UserTokenDays) * 24 * time.Hour
}

// Load reads envFile (if it exists) into the process environment and then
// builds a Config from FUELFLUX_* variables. An empty envFile means ".env".
// Malformed numeric values are reported as errors; missing ones use defaults.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	var errs []error
	cfg := &Config{
		Secret:        os.Getenv("FUELFLUX_SECRET"),
		Storage:       getEnv("FUELFLUX_STORAGE", StorageBBolt),
		DataDir:       getEnv("FUELFLUX_DATA_DIR", "./data"),
		PostgresDSN:   os.Getenv("FUELFLUX_POSTGRES_DSN"),
		SessionStore:  getEnv("FUELFLUX_SESSION_STORE", SessionStoreMemory),
		RedisAddr:     os.Getenv("FUELFLUX_REDIS_ADDR"),
		RedisPassword: os.Getenv("FUELFLUX_REDIS_PASSWORD"),

		AlertWebhookURL:  os.Getenv("FUELFLUX_ALERT_WEBHOOK_URL"),
		AlertWebhookAuth: os.Getenv("FUELFLUX_ALERT_WEBHOOK_AUTH"),
	}
	cfg.DeviceSessionMinutes = getInt("FUELFLUX_DEVICE_SESSION_MINUTES", 10, &errs)
	cfg.UserTokenDays = getInt("FUELFLUX_JWT_EXPIRATION_DAYS", 7, &errs)
	cfg.RedisDB = getInt("FUELFLUX_REDIS_DB", 0, &errs)
	cfg.Port = getInt("FUELFLUX_PORT", 8080, &errs)
	cfg.CleanupInterval = getDuration("FUELFLUX_CLEANUP_INTERVAL", time.Minute, &errs)
	cfg.FuelPrice = getFloat("FUELFLUX_FUEL_PRICE", DefaultFuelPrice, &errs)
	cfg.TrustedProxies = getPrefixes("FUELFLUX_TRUSTED_PROXIES", &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return cfg, nil
}

// Validate reports every unusable setting at once.
func (c *Config) Validate() error {
	var problems []string
	if c.Secret == "" {
		problems = append(problems, "FUELFLUX_SECRET must be set")
	}
	if c.UserTokenDays <= 0 {
		problems = append(problems, "user token lifetime must be at least one day")
	}
	if c.CleanupInterval <= 0 {
		problems = append(problems, "cleanup interval must be positive")
	}
	switch c.Storage {
	case StorageMemory, StorageBBolt:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			problems = append(problems, "FUELFLUX_POSTGRES_DSN is required for postgres storage")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q", c.Storage))
	}
	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "FUELFLUX_REDIS_ADDR is required for the redis session store")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown session store %q", c.SessionStore))
	}
	if c.FuelPrice <= 0 {
		problems = append(problems, "fuel price must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func getFloat(key string, defaultValue float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return f
}

// getPrefixes parses a comma separated list of CIDRs. A bare address is
// taken as a single-host prefix.
func getPrefixes(key string, errs *[]error) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, field := range strings.Split(os.Getenv(key), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if !strings.Contains(field, "/") {
			addr, err := netip.ParseAddr(field)
			if err != nil {
				*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(field)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes
}
