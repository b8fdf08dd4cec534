package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root client configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Registry RegistryConfig `yaml:"registry"`
	Sessions SessionsConfig `yaml:"sessions"`
	Account  AccountConfig  `yaml:"account"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig holds the draft service endpoint settings.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"DRAFTSHARE_API_URL"   env-default:"https://api.draftshare.dev"`
	Token   string        `yaml:"token"    env:"DRAFTSHARE_API_TOKEN" env-required:"true"`
	Timeout time.Duration `yaml:"timeout"  env:"DRAFTSHARE_API_TIMEOUT" env-default:"60s"`
}

// RegistryConfig holds the local repository registry settings.
type RegistryConfig struct {
	DBPath   string `yaml:"db_path"   env:"DRAFTSHARE_REGISTRY_DB" env-default:""`
	CloneDir string `yaml:"clone_dir" env:"DRAFTSHARE_CLONE_DIR"   env-default:""`
}

// SessionsConfig holds the provider session cache settings. An empty Redis
// URL disables the cache and provider-gated operations with it.
type SessionsConfig struct {
	RedisURL string        `yaml:"redis_url" env:"DRAFTSHARE_REDIS_URL"`
	TTL      time.Duration `yaml:"ttl"       env:"DRAFTSHARE_SESSION_TTL" env-default:"1h"`
}

// AccountConfig identifies the active account.
type AccountConfig struct {
	ID    string `yaml:"id"    env:"DRAFTSHARE_ACCOUNT_ID"    env-required:"true"`
	Name  string `yaml:"name"  env:"DRAFTSHARE_ACCOUNT_NAME"`
	Email string `yaml:"email" env:"DRAFTSHARE_ACCOUNT_EMAIL"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"DRAFTSHARE_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"DRAFTSHARE_LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults (via env-default tags).
// The YAML file path comes from DRAFTSHARE_CONFIG (fallback "./draftshare.yaml").
// If the file does not exist and the path was not set explicitly,
// configuration is loaded from ENV + defaults only.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("DRAFTSHARE_CONFIG")
	explicitPath := path != ""
	if !explicitPath {
		path = "./draftshare.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills the path settings that depend on the user's home
// directory and so cannot be expressed as static tag defaults.
func (c *Config) applyDefaults() {
	dataDir := dataDir()
	if c.Registry.DBPath == "" {
		c.Registry.DBPath = dataDir + "/registry.db"
	}
	if c.Registry.CloneDir == "" {
		c.Registry.CloneDir = dataDir + "/clones"
	}
}

func dataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/draftshare"
	}
	return "./.draftshare"
}
