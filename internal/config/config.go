// Package config resolves tool settings from config files, environment
// variables and .env files.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is swapped for an in-memory filesystem in tests.
var AppFs = afero.NewOsFs()

// Config holds the resolved tool configuration.
type Config struct {
	// SchemaPath is the definition file fed to validate, diff and apply.
	SchemaPath string
	// DatabaseURL is the connection string for the target database.
	DatabaseURL string
	// Provider overrides the provider declared in the definition file.
	Provider string
	// ShadowDatabaseURL backs destructive-change detection when set.
	ShadowDatabaseURL string
	// ForceDestructive skips the interactive confirmation on apply.
	ForceDestructive bool
}

// Load resolves configuration in priority order: flags are handled by the
// commands themselves, then SCHEMAFORGE_* environment variables, then a
// .schemaforge.yaml in the working directory, the home directory or
// ~/.config/schemaforge. A .env file in the working directory is loaded
// first and .env.local on top of it.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName(".schemaforge")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "schemaforge"))

	viper.SetEnvPrefix("SCHEMAFORGE")
	viper.AutomaticEnv()

	viper.SetDefault("schema_path", "schema.forge")
	viper.SetDefault("force_destructive", false)

	// A missing config file is fine, everything has a default.
	_ = viper.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	// .env.local wins over .env.
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		SchemaPath:        viper.GetString("schema_path"),
		DatabaseURL:       firstNonEmpty(viper.GetString("database_url"), os.Getenv("DATABASE_URL")),
		Provider:          viper.GetString("provider"),
		ShadowDatabaseURL: firstNonEmpty(viper.GetString("shadow_database_url"), os.Getenv("SHADOW_DATABASE_URL")),
		ForceDestructive:  viper.GetBool("force_destructive"),
	}

	return cfg, nil
}

// Save writes the configuration to ~/.config/schemaforge/.schemaforge.yaml.
func Save(cfg *Config) error {
	viper.Set("schema_path", cfg.SchemaPath)
	viper.Set("provider", cfg.Provider)
	viper.Set("force_destructive", cfg.ForceDestructive)

	home, err := homedir.Dir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(home, ".config", "schemaforge")
	if err := AppFs.MkdirAll(configPath, 0755); err != nil {
		return err
	}

	return viper.WriteConfigAs(filepath.Join(configPath, ".schemaforge.yaml"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
