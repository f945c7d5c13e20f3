package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Log       LogConfig
	Analytics AnalyticsConfig
	BigQuery  BigQueryConfig
	Storage   StorageConfig
	Gemini    GeminiConfig
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// LogConfig holds zerolog settings.
type LogConfig struct {
	Level  string
	Format string
}

// AnalyticsConfig tunes the analytics engine.
type AnalyticsConfig struct {
	// Source selects where analytics reads transactions from: sqlite or bigquery.
	Source string
	// Similarity selects the description matcher: substring or levenshtein.
	Similarity             string
	LevenshteinMaxDistance int `mapstructure:"levenshtein_max_distance"`
	TrainingLimit          int `mapstructure:"training_limit"`
}

// BigQueryConfig points at the warehouse copy of the ledger.
type BigQueryConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Dataset   string
}

// StorageConfig holds the report export bucket.
type StorageConfig struct {
	Bucket string
}

// GeminiConfig controls the optional LLM categorization step.
type GeminiConfig struct {
	Enabled bool
	Model   string
}

// Load reads configuration from file and env. Env var overrides use prefix SMARTLEDGER_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgPath := os.Getenv("SMARTLEDGER_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "smart-ledger"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SMARTLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// a missing default config file is fine; a broken or missing explicit one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "smart-ledger", "ledger.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("analytics.source", "sqlite")
	v.SetDefault("analytics.similarity", "substring")
	v.SetDefault("analytics.levenshtein_max_distance", 2)
	v.SetDefault("analytics.training_limit", 5000)
	v.SetDefault("bigquery.project_id", "")
	v.SetDefault("bigquery.dataset", "finance")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	switch c.Analytics.Source {
	case "sqlite":
	case "bigquery":
		if c.BigQuery.ProjectID == "" {
			return fmt.Errorf("config: analytics.source=bigquery requires bigquery.project_id")
		}
	default:
		return fmt.Errorf("config: unknown analytics.source %q", c.Analytics.Source)
	}
	switch c.Analytics.Similarity {
	case "substring", "levenshtein":
	default:
		return fmt.Errorf("config: unknown analytics.similarity %q", c.Analytics.Similarity)
	}
	if c.Analytics.TrainingLimit <= 0 {
		return fmt.Errorf("config: analytics.training_limit must be positive")
	}
	return nil
}
