// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vrsandeep/squish-go/internal/models"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port        int `mapstructure:"port"`
	Compression struct {
		DefaultFormat  string `mapstructure:"default_format"`
		DefaultQuality int    `mapstructure:"default_quality"`
		AutoProcess    bool   `mapstructure:"auto_process"`
		MaxPixels      int    `mapstructure:"max_pixels"`
	} `mapstructure:"compression"`
	Codecs struct {
		LoadTimeoutMs int      `mapstructure:"load_timeout_ms"`
		FallbackOrder []string `mapstructure:"fallback_order"`
		RetryInterval int      `mapstructure:"retry_interval"`
	} `mapstructure:"codecs"`
	Export struct {
		ArchiveName   string `mapstructure:"archive_name"`
		ArchiveFormat string `mapstructure:"archive_format"`
	} `mapstructure:"export"`
	Watch struct {
		OutputPath string `mapstructure:"output_path"`
	} `mapstructure:"watch"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")    // or "yaml"
	v.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// e.g., SQUISH_COMPRESSION_DEFAULT_FORMAT will override `compression.default_format`.
	v.SetEnvPrefix("SQUISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// Unmarshalling plain defaults cannot fail.
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("compression.default_format", "AVIF")
	v.SetDefault("compression.default_quality", 50)
	v.SetDefault("compression.auto_process", true)
	v.SetDefault("compression.max_pixels", 100_000_000)
	v.SetDefault("codecs.load_timeout_ms", 10000)
	v.SetDefault("codecs.fallback_order", []string{"JPEG", "WEBP", "PNG", "AVIF", "JXL"})
	v.SetDefault("codecs.retry_interval", 30)
	v.SetDefault("export.archive_name", "compressed_images")
	v.SetDefault("export.archive_format", "zip")
	v.SetDefault("watch.output_path", "./compressed")
}

// Validate checks the values that the rest of the application assumes are sane.
func (c *Config) Validate() error {
	if _, err := models.ParseFormat(c.Compression.DefaultFormat); err != nil {
		return fmt.Errorf("compression.default_format: %w", err)
	}
	if c.Compression.DefaultQuality < 1 || c.Compression.DefaultQuality > 100 {
		return fmt.Errorf("compression.default_quality must be between 1 and 100, got %d", c.Compression.DefaultQuality)
	}
	if _, err := c.FallbackFormats(); err != nil {
		return err
	}
	return nil
}

// DefaultFormat returns the parsed default output format, falling back to AVIF.
func (c *Config) DefaultFormat() models.Format {
	f, err := models.ParseFormat(c.Compression.DefaultFormat)
	if err != nil {
		return models.AVIF
	}
	return f
}

// LoadTimeout returns the per-codec load deadline.
func (c *Config) LoadTimeout() time.Duration {
	return time.Duration(c.Codecs.LoadTimeoutMs) * time.Millisecond
}

// FallbackFormats parses codecs.fallback_order.
func (c *Config) FallbackFormats() ([]models.Format, error) {
	formats := make([]models.Format, 0, len(c.Codecs.FallbackOrder))
	for _, name := range c.Codecs.FallbackOrder {
		f, err := models.ParseFormat(name)
		if err != nil {
			return nil, fmt.Errorf("codecs.fallback_order: %w", err)
		}
		formats = append(formats, f)
	}
	return formats, nil
}
