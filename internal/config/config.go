// Package config resolves storage locations and runtime settings for cartracker.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix shared by every environment variable read by Load.
const EnvPrefix = "CARTRACKER"

// DefaultDBName is the logical database name used when none is configured.
const DefaultDBName = "CarTrackerDB"

// MinSchemaVersion is the oldest schema carrying every store the application
// reads. Version 4 adds app storage.
const MinSchemaVersion uint = 4

// Config holds runtime settings. Fields are populated from CARTRACKER_*
// environment variables, e.g. CARTRACKER_MAX_VEHICLES=5.
type Config struct {
	DBName        string        `envconfig:"DB_NAME" default:"CarTrackerDB"`
	SchemaVersion uint          `envconfig:"SCHEMA_VERSION" default:"4"`
	MaxVehicles   int           `envconfig:"MAX_VEHICLES" default:"3"`
	OpenTimeout   time.Duration `envconfig:"OPEN_TIMEOUT" default:"5s"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string        `envconfig:"LOG_FORMAT" default:"console"`
}

// Load reads an optional .env file from the working directory and then the
// process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the rest of the application cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DBName) == "" {
		return errors.New("config: DB_NAME must not be empty")
	}
	if c.SchemaVersion < MinSchemaVersion {
		return fmt.Errorf("config: SCHEMA_VERSION must be at least %d, got %d", MinSchemaVersion, c.SchemaVersion)
	}
	if c.MaxVehicles <= 0 {
		return fmt.Errorf("config: MAX_VEHICLES must be positive, got %d", c.MaxVehicles)
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("config: OPEN_TIMEOUT must be positive, got %s", c.OpenTimeout)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config: invalid LOG_FORMAT %q (valid values: console, json)", c.LogFormat)
	}
	return nil
}

// GetDataDir resolves the base directory for all cartracker storage. It checks
// CARTRACKER_DIR first, then XDG paths, and finally falls back to the user's
// home directory.
func GetDataDir() string {
	if explicit := os.Getenv(EnvPrefix + "_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "cartracker")
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, "cartracker")
}

// GetDBPath returns the path of the SQLite file backing the named database.
func GetDBPath(name string) string {
	if name == "" {
		name = DefaultDBName
	}
	return filepath.Join(GetDataDir(), sanitizeName(name)+".db")
}

// GetBackupsDir returns the directory that stores exported backup documents.
func GetBackupsDir() string {
	return filepath.Join(GetDataDir(), "backups")
}

func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "..", "-")
	return replacer.Replace(name)
}
