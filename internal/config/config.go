package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentx-labs/extsync/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config keys. Each is also readable from the environment as EXTSYNC_<KEY>.
const (
	KeyMarketplaceURL       = "marketplace_url"
	KeyManifest             = "manifest"
	KeyOutputDir            = "output_dir"
	KeyMaxConcurrentProbes  = "max_concurrent_probes"
	KeyMaxConcurrentFetches = "max_concurrent_fetches"
	KeyUserAgent            = "user_agent"
	KeyHTTPTimeout          = "http_timeout"
	KeyMetricsFile          = "metrics_file"
	KeyTraceFile            = "trace_file"
	KeyLogLevel             = "log_level"
	KeyLogFormat            = "log_format"
)

// Settings is the typed view of the effective configuration.
type Settings struct {
	MarketplaceURL       string
	Manifest             string
	OutputDir            string
	MaxConcurrentProbes  int
	MaxConcurrentFetches int
	UserAgent            string
	HTTPTimeout          time.Duration
	MetricsFile          string
	TraceFile            string
	LogLevel             string
	LogFormat            string
}

// Dir returns the path to the config directory (~/.extsync/).
func Dir() string {
	if dir := os.Getenv(branding.EnvVar("HOME")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.extsync/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// SetDefaults registers the built-in default for every key.
func SetDefaults() {
	viper.SetDefault(KeyMarketplaceURL, branding.MarketplaceURL())
	viper.SetDefault(KeyManifest, "extensions.json")
	viper.SetDefault(KeyOutputDir, "extensions")
	viper.SetDefault(KeyMaxConcurrentProbes, 0)
	viper.SetDefault(KeyMaxConcurrentFetches, 0)
	viper.SetDefault(KeyUserAgent, branding.UserAgent())
	viper.SetDefault(KeyHTTPTimeout, time.Duration(0))
	viper.SetDefault(KeyMetricsFile, "")
	viper.SetDefault(KeyTraceFile, "")
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyLogFormat, "text")
}

// Load initializes Viper to read from the config file and environment.
// An explicit path overrides the default location.
func Load(path string) error {
	SetDefaults()
	if path == "" {
		path = FilePath()
	}
	viper.SetConfigFile(path)
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine; a broken one is not.
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

// Current returns the effective settings.
func Current() Settings {
	return Settings{
		MarketplaceURL:       viper.GetString(KeyMarketplaceURL),
		Manifest:             viper.GetString(KeyManifest),
		OutputDir:            viper.GetString(KeyOutputDir),
		MaxConcurrentProbes:  viper.GetInt(KeyMaxConcurrentProbes),
		MaxConcurrentFetches: viper.GetInt(KeyMaxConcurrentFetches),
		UserAgent:            viper.GetString(KeyUserAgent),
		HTTPTimeout:          viper.GetDuration(KeyHTTPTimeout),
		MetricsFile:          viper.GetString(KeyMetricsFile),
		TraceFile:            viper.GetString(KeyTraceFile),
		LogLevel:             viper.GetString(KeyLogLevel),
		LogFormat:            viper.GetString(KeyLogFormat),
	}
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = FilePath()
	}

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
