package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderFirebase = "firebase"
	ProviderLocal    = "local"

	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string
	BaseURL  string

	API APIConfig

	Storage StorageConfig

	IdentityProvider string
	FirebaseAPIKey   string

	DatabaseURL      string
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	Google            OAuthConfig
	OAuthPopupTimeout time.Duration

	LoginPath     string
	DashboardPath string
}

type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
}

type StorageConfig struct {
	Driver        string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	rateLimit, err := strconv.ParseFloat(getEnv("API_RATE_LIMIT", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid API_RATE_LIMIT: %w", err)
	}

	baseURL := getEnv("BASE_URL", "http://localhost:5173")

	cfg := &Config{
		Port:     getEnv("PORT", "5173"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		BaseURL:  baseURL,

		API: APIConfig{
			BaseURL:   getEnv("API_BASE_URL", "http://localhost:3000"),
			Timeout:   getDuration("API_TIMEOUT", 30*time.Second),
			RateLimit: rateLimit,
		},

		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", StorageSQLite),
			Path:          getEnv("STORAGE_PATH", defaultStoragePath()),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			RedisPrefix:   getEnv("REDIS_PREFIX", "contesthub"),
		},

		IdentityProvider: getEnv("IDENTITY_PROVIDER", ProviderFirebase),
		FirebaseAPIKey:   getEnv("FIREBASE_API_KEY", ""),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),

		Google: OAuthConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", baseURL+"/auth/google/callback"),
		},
		OAuthPopupTimeout: getDuration("OAUTH_POPUP_TIMEOUT", 5*time.Minute),

		LoginPath:     getEnv("LOGIN_PATH", "/login"),
		DashboardPath: getEnv("DASHBOARD_PATH", "/dashboard"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that depend on the chosen identity provider and storage driver.
func (c *Config) Validate() error {
	switch c.IdentityProvider {
	case ProviderFirebase:
		if c.FirebaseAPIKey == "" {
			return fmt.Errorf("FIREBASE_API_KEY is required for the firebase identity provider")
		}
	case ProviderLocal:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the local identity provider")
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for the local identity provider")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.IdentityProvider)
	}

	switch c.Storage.Driver {
	case StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.OAuthPopupTimeout <= 0 {
		return fmt.Errorf("OAUTH_POPUP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "contesthub.db"
	}
	return dir + string(os.PathSeparator) + "contesthub" + string(os.PathSeparator) + "session.db"
}
