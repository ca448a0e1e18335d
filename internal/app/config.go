package app

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig `koanf:"browser" validate:"required"`
	Probe   ProbeConfig   `koanf:"probe" validate:"required"`
}

// Browser drivers.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// BrowserConfig holds settings for the real browser host.
type BrowserConfig struct {
	Driver     string        `koanf:"driver" validate:"required,oneof=chromedp rod"`
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
	Headless   bool          `koanf:"headless"`
	NoSandbox  bool          `koanf:"no_sandbox"`
	ChromePath string        `koanf:"chrome_path"`
}

// ProbeConfig holds settings for fingerprint probing.
type ProbeConfig struct {
	URL             string `koanf:"url" validate:"required"`
	Sessions        int    `koanf:"sessions" validate:"required,min=2"`
	ReadsPerSession int    `koanf:"reads_per_session" validate:"required,min=2"`
	Concurrency     int    `koanf:"concurrency" validate:"required,min=1"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Driver:   DriverChromedp,
			Timeout:  30 * time.Second,
			Headless: true,
		},
		Probe: ProbeConfig{
			URL:             "about:blank",
			Sessions:        2,
			ReadsPerSession: 2,
			Concurrency:     2,
		},
	}
}

// Load reads and validates configuration from a YAML file. Keys missing
// from the file keep their default value.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
