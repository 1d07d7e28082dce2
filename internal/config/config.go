// Package config provides configuration management for Drivelink.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/drivelink/drivelink/internal/constants"
)

// Config holds the client configuration.
//
// Config file location: ~/.config/drivelink/config
//
// INI format:
//
//	[drivelink]
//	server_url = https://files.example.com
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 8080
//	user =
//	no_proxy =
type Config struct {
	// ServerURL is the base URL of the storage service, without the /api/v1 suffix.
	ServerURL string `ini:"server_url"`

	// Proxy settings. Mode is one of "no-proxy", "system", "basic", "ntlm".
	ProxyMode     string `ini:"mode"`
	ProxyHost     string `ini:"host"`
	ProxyPort     int    `ini:"port"`
	ProxyUser     string `ini:"user"`
	ProxyPassword string `ini:"-"` // never persisted; prompted or from env
	NoProxy       string `ini:"no_proxy"`
}

// Validation errors
var (
	ErrMissingServerURL = errors.New("server_url is required")
)

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", constants.ConfigDir), nil
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		ProxyMode: "no-proxy",
	}
}

// LoadConfig loads configuration from an INI file.
// If the file doesn't exist, returns defaults and no error.
// Environment variables override file values:
// DRIVELINK_SERVER_URL for the server URL.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); err == nil {
		iniFile, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}

		main := iniFile.Section("drivelink")
		cfg.ServerURL = main.Key("server_url").String()

		proxy := iniFile.Section("proxy")
		cfg.ProxyMode = proxy.Key("mode").MustString("no-proxy")
		cfg.ProxyHost = proxy.Key("host").String()
		cfg.ProxyPort = proxy.Key("port").MustInt(0)
		cfg.ProxyUser = proxy.Key("user").String()
		cfg.NoProxy = proxy.Key("no_proxy").String()
	}

	if env := os.Getenv("DRIVELINK_SERVER_URL"); env != "" {
		cfg.ServerURL = env
	}
	if env := os.Getenv("DRIVELINK_PROXY_PASSWORD"); env != "" {
		cfg.ProxyPassword = env
	}

	cfg.ServerURL = strings.TrimSuffix(cfg.ServerURL, "/")
	return cfg, nil
}

// SaveConfig saves configuration to an INI file, creating parent
// directories as needed. The proxy password is never written.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	main, err := iniFile.NewSection("drivelink")
	if err != nil {
		return fmt.Errorf("failed to create drivelink section: %w", err)
	}
	main.Key("server_url").SetValue(cfg.ServerURL)

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)

	// Temp file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks that the configuration can reach the service.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return ErrMissingServerURL
	}
	return nil
}

// APIBaseURL returns the versioned API root the transport layer dials.
func (cfg *Config) APIBaseURL() string {
	return strings.TrimSuffix(cfg.ServerURL, "/") + "/api/v1"
}
