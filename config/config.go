// Package config loads server configuration from the environment.
package config

import (
	"github.com/caarlos0/env/v11"
)

// Backend selects the storage medium implementation.
const (
	BackendSQLite = "sqlite"
	BackendDir    = "dir"
)

// Config is the server configuration. Flags in cmd/server override
// whatever the environment provides.
type Config struct {
	Port         int      `env:"PORT" envDefault:"8080"`
	Backend      string   `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	DatabasePath string   `env:"DB_PATH" envDefault:"finesse.db"`
	DataDir      string   `env:"DATA_DIR" envDefault:"./data"`
	CatalogPath  string   `env:"CATALOG_PATH"`
	RemoteAPIURL string   `env:"REMOTE_API_URL"`
	LogLevel     string   `env:"LOG_LEVEL" envDefault:"info"`
	Origins      []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
