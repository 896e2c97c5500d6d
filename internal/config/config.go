package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultAPIURL is the local development backend
const DefaultAPIURL = "http://localhost:8000/api"

type Config struct {
	API struct {
		BaseURL        string `mapstructure:"base_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
		UserAgent      string `mapstructure:"user_agent"`
	} `mapstructure:"api"`

	Storage struct {
		Backend     string `mapstructure:"backend"` // file, redis or memory
		File        string `mapstructure:"file"`
		RedisPrefix string `mapstructure:"redis_prefix"`
	} `mapstructure:"storage"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Session struct {
		RefreshSkewSeconds int `mapstructure:"refresh_skew_seconds"`
	} `mapstructure:"session"`

	Archive struct {
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		Prefix    string `mapstructure:"prefix"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"archive"`

	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`

	DevServer struct {
		Port               int      `mapstructure:"port"`
		JWTSecret          string   `mapstructure:"jwt_secret"`
		Issuer             string   `mapstructure:"issuer"`
		AccessTTLMinutes   int      `mapstructure:"access_ttl_minutes"`
		RefreshTTLHours    int      `mapstructure:"refresh_ttl_hours"`
		RotateRefresh      bool     `mapstructure:"rotate_refresh"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	} `mapstructure:"devserver"`
}

// Timeout is the per-request API timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// RefreshSkew is how long before expiry keepalive refreshes the access token
func (c *Config) RefreshSkew() time.Duration {
	return time.Duration(c.Session.RefreshSkewSeconds) * time.Second
}

// Load reads configs/config.yaml (optional), .env and the environment.
func Load() *Config {
	cfg, err := LoadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}
	return cfg
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	// Load .env file if exists
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	// Auto bind environment variables (API_BASE_URL, STORAGE_BACKEND, ...)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file at %s, using defaults", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultAPIURL)
	v.SetDefault("api.timeout_seconds", 15)
	v.SetDefault("api.user_agent", "btw-buddy-cli/1.0")
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.file", defaultTokenFile())
	v.SetDefault("storage.redis_prefix", "btw:session:")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("session.refresh_skew_seconds", 60)
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.region", "auto")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "receipts/")
	v.SetDefault("archive.access_key", "")
	v.SetDefault("archive.secret_key", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("devserver.port", 8000)
	v.SetDefault("devserver.issuer", "btw-buddy-dev")
	v.SetDefault("devserver.access_ttl_minutes", 5)
	v.SetDefault("devserver.refresh_ttl_hours", 24)
	v.SetDefault("devserver.rotate_refresh", true)
	v.SetDefault("devserver.cors_allowed_origins", []string{"http://localhost:3000"})
}

// applyEnvOverrides maps the well-known variable names that do not follow
// the SECTION_KEY convention.
func applyEnvOverrides(cfg *Config) {
	// The browser build reads REACT_APP_API_URL; honour it so both share a .env
	if url := os.Getenv("REACT_APP_API_URL"); url != "" {
		cfg.API.BaseURL = url
	}
	if url := os.Getenv("BTW_API_URL"); url != "" {
		cfg.API.BaseURL = url
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	if backend := os.Getenv("BTW_TOKEN_STORE"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if file := os.Getenv("BTW_TOKEN_FILE"); file != "" {
		cfg.Storage.File = file
	}

	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	if host := os.Getenv("REDIS_SERVICE_HOST"); host != "" {
		cfg.Redis.Host = host
	}
	if port := os.Getenv("REDIS_SERVICE_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Redis.Port = n
		}
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.DevServer.JWTSecret = secret
	}
	// An unexpanded placeholder counts as unset; the dev server then picks a random secret
	if cfg.DevServer.JWTSecret == "${JWT_SECRET}" {
		cfg.DevServer.JWTSecret = ""
	}
}

// defaultTokenFile lives in the user config dir, e.g. ~/.config/btw-buddy/session.json
func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "btw-buddy", "session.json")
}
