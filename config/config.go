// Package config provides configuration management for wgconv.
// It handles loading, saving, and validating application settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yllada/wgconv/common"
)

// ConfigPlaceholder is replaced by the runtime config path in kernel args.
const ConfigPlaceholder = "{config}"

// Config represents the application configuration.
// All settings are persisted to a YAML file in the user's config directory.
type Config struct {
	// DialFields is a JSON object merged into every converted endpoint,
	// e.g. {"detour": "direct"}. Malformed JSON is ignored with a warning.
	DialFields string `yaml:"dial_fields"`
	// ActiveProfile is the ID of the profile the kernel runs.
	ActiveProfile string `yaml:"active_profile"`
	// Store selects the profile backend: "yaml" or "sqlite".
	Store string `yaml:"store"`
	// ShowNotifications enables desktop notifications.
	ShowNotifications bool `yaml:"show_notifications"`
	// RememberInput keeps the last pasted WireGuard config in the keyring.
	RememberInput bool `yaml:"remember_input"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Kernel configures the proxy core process.
	Kernel KernelConfig `yaml:"kernel"`

	path string
}

// KernelConfig describes how to launch the proxy core.
type KernelConfig struct {
	// Binary is the executable name or path.
	Binary string `yaml:"binary"`
	// Args are passed to Binary; "{config}" expands to the runtime config file.
	Args []string `yaml:"args"`
	// RestartDelay is the pause between stop and start on restart.
	RestartDelay time.Duration `yaml:"restart_delay"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DialFields:        "",
		Store:             common.StoreYAML,
		ShowNotifications: true,
		RememberInput:     false,
		LogLevel:          "info",
		Kernel:            DefaultKernelConfig(),
	}
}

// DefaultKernelConfig returns launch settings for sing-box.
func DefaultKernelConfig() KernelConfig {
	return KernelConfig{
		Binary:       "sing-box",
		Args:         []string{"run", "-c", ConfigPlaceholder},
		RestartDelay: common.RestartDelay,
	}
}

// Load loads the configuration from the default config file.
// If the file doesn't exist, it creates one with default values.
func Load() (*Config, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from path, writing defaults there when
// the file does not exist yet.
func LoadFrom(path string) (*Config, error) {
	if !common.FileExists(path) {
		cfg := DefaultConfig()
		cfg.path = path
		if err := cfg.Save(); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: error opening configuration: %v", common.ErrConfigLoad, err)
	}
	defer file.Close()

	cfg, err := decode(file)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// decode reads YAML over the defaults so omitted keys keep their default.
func decode(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true) // Strict validation: reject unknown fields

	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: error parsing configuration: %v", common.ErrConfigLoad, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid configuration: %v", common.ErrConfigLoad, err)
	}

	return cfg, nil
}

// validate verifies configuration values, falling back to defaults where a
// value is unusable.
func (c *Config) validate() error {
	switch c.Store {
	case common.StoreYAML, common.StoreSQLite:
	default:
		common.LogWarn("Unknown profile store %q, using %s", c.Store, common.StoreYAML)
		c.Store = common.StoreYAML
	}

	if c.Kernel.Binary == "" {
		return errors.New("kernel.binary must not be empty")
	}
	if len(c.Kernel.Args) == 0 {
		c.Kernel.Args = DefaultKernelConfig().Args
	}
	if c.Kernel.RestartDelay < 0 {
		c.Kernel.RestartDelay = common.RestartDelay
	}

	return nil
}

// Save saves the configuration to the file it was loaded from, or to the
// default location.
func (c *Config) Save() error {
	configPath := c.path
	if configPath == "" {
		var err error
		configPath, err = DefaultPath()
		if err != nil {
			return err
		}
	}
	return c.SaveTo(configPath)
}

// SaveTo writes the configuration to path and remembers it for Save.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("%w: error creating config directory: %v", common.ErrConfigSave, err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("%w: error serializing configuration: %v", common.ErrConfigSave, err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("%w: error serializing configuration: %v", common.ErrConfigSave, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("%w: error saving configuration: %v", common.ErrConfigSave, err)
	}

	c.path = path
	return nil
}

// Path returns the file the configuration is bound to, if any.
func (c *Config) Path() string {
	return c.path
}

// DefaultPath returns ~/.config/wgconv/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", common.ConfigDirName, common.ConfigFileName), nil
}
