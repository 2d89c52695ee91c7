// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package config handles application configuration including reading and writing
// the configuration file, describing the external API and GUI services, and
// providing the defaults the launcher falls back to.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost    = "localhost"
	DefaultAPIPort = 8001
	DefaultGUIPort = 8000

	DefaultAPICommand = "fmu-settings-api"
	DefaultGUICommand = "fmu-settings-gui"

	DefaultLogLevel = "critical"
)

// LogLevels are the levels accepted by --log-level, least severe first.
var LogLevels = []string{"debug", "info", "warning", "error", "critical"}

// RegisteredGUIPorts are the GUI ports known to the Azure App Registration.
// The GUI refuses to start on any other port.
var RegisteredGUIPorts = []int{5173, 3000, 8000}

// Service describes how to launch one of the external servers.
type Service struct {
	// Command is the executable to run, looked up in PATH when not absolute
	Command string `yaml:"command"`

	// Args are passed before the launcher's own flags
	Args []string `yaml:"args,omitempty"`

	// Env holds extra environment variables for the child process
	Env map[string]string `yaml:"env,omitempty"`
}

// GUIService describes the GUI server. When StaticDir is set the launcher
// serves the built frontend itself instead of running Command.
type GUIService struct {
	Service `yaml:",inline"`

	StaticDir string `yaml:"static_dir,omitempty"`
}

// Config represents the top-level application configuration
type Config struct {
	// Host is the interface both servers bind to
	Host string `yaml:"host"`

	APIPort int `yaml:"api_port"`
	GUIPort int `yaml:"gui_port"`

	// LogLevel is handed to the servers and used for the launcher's own log
	LogLevel string `yaml:"log_level"`

	// OpenBrowser controls whether full mode opens the authorized URL
	OpenBrowser bool `yaml:"open_browser"`

	RegisteredGUIPorts []int `yaml:"registered_gui_ports"`

	API Service    `yaml:"api"`
	GUI GUIService `yaml:"gui"`

	// StartupTimeout bounds how long full mode waits for both ports to accept connections
	StartupTimeout time.Duration `yaml:"startup_timeout"`

	// ShutdownGrace is how long a child gets after SIGINT before it is killed
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Host:               DefaultHost,
		APIPort:            DefaultAPIPort,
		GUIPort:            DefaultGUIPort,
		LogLevel:           DefaultLogLevel,
		OpenBrowser:        true,
		RegisteredGUIPorts: slices.Clone(RegisteredGUIPorts),
		API:                Service{Command: DefaultAPICommand},
		GUI:                GUIService{Service: Service{Command: DefaultGUICommand}},
		StartupTimeout:     30 * time.Second,
		ShutdownGrace:      5 * time.Second,
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "fmu-settings", "config.yaml"), nil
}

// Path returns the config file location: path itself, or the default when
// path is empty.
func Path(path string) (string, error) {
	if path == "" {
		return DefaultConfigPath()
	}
	return ResolvePath(path)
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error and yields Default().
func Load(path string) (Config, error) {
	configPath, err := Path(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if cfg.GUI.StaticDir != "" {
		cfg.GUI.StaticDir, err = ResolvePath(cfg.GUI.StaticDir)
		if err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// Validate reports every problem with cfg at once.
func (c Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if err := ValidatePort(c.APIPort); err != nil {
		errs = append(errs, fmt.Errorf("api_port: %w", err))
	}
	if err := ValidatePort(c.GUIPort); err != nil {
		errs = append(errs, fmt.Errorf("gui_port: %w", err))
	}
	if err := ValidateLogLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if len(c.RegisteredGUIPorts) == 0 {
		errs = append(errs, errors.New("registered_gui_ports must list at least one port"))
	}
	for _, p := range c.RegisteredGUIPorts {
		if err := ValidatePort(p); err != nil {
			errs = append(errs, fmt.Errorf("registered_gui_ports: %w", err))
		}
	}
	if strings.TrimSpace(c.API.Command) == "" {
		errs = append(errs, errors.New("api.command must not be empty"))
	}
	if strings.TrimSpace(c.GUI.Command) == "" && c.GUI.StaticDir == "" {
		errs = append(errs, errors.New("gui.command or gui.static_dir must be set"))
	}
	if c.StartupTimeout <= 0 {
		errs = append(errs, errors.New("startup_timeout must be positive"))
	}
	if c.ShutdownGrace <= 0 {
		errs = append(errs, errors.New("shutdown_grace must be positive"))
	}
	return errors.Join(errs...)
}

// ValidatePort checks that port is a usable TCP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d is out of range 1-65535", port)
	}
	return nil
}

// ValidateLogLevel checks level against LogLevels, ignoring case.
func ValidateLogLevel(level string) error {
	if slices.Contains(LogLevels, strings.ToLower(level)) {
		return nil
	}
	return fmt.Errorf("unknown log level %q, use one of %s", level, strings.Join(LogLevels, ", "))
}

// IsRegisteredGUIPort reports whether port appears in the registered list.
func (c Config) IsRegisteredGUIPort(port int) bool {
	return slices.Contains(c.RegisteredGUIPorts, port)
}

func EnsureConfigDir(path string) error {
	configPath, err := Path(path)
	if err != nil {
		return err
	}
	configDir := filepath.Dir(configPath)
	err = os.MkdirAll(configDir, 0750) // rwxr-x---
	if err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

// Save writes cfg to path, or the default location when path is empty.
func Save(path string, cfg Config) error {
	configPath, err := Path(path)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	err = EnsureConfigDir(configPath)
	if err != nil {
		return err
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	// Write with permissions rw-r----- (0640)
	err = os.WriteFile(configPath, data, 0640)
	if err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configPath, err)
	}

	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	return data, nil
}

func ResolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path, fmt.Errorf("could not get user home directory to resolve path '%s': %w", path, err)
	}

	return filepath.Join(homeDir, path[2:]), nil
}
