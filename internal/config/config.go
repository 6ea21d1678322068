package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
)

const appName = "macro-tray"

// Environment overrides, applied after the config file.
const (
	EnvDataFile   = "MACRO_TRAY_DATA_FILE"
	EnvLogLevel   = "MACRO_TRAY_LOG_LEVEL"
	EnvStatusAddr = "MACRO_TRAY_STATUS_ADDR"
)

type Config struct {
	DataFile      string         `json:"data_file"`
	LogLevel      string         `json:"log_level"`
	StartActive   bool           `json:"start_active"`
	WatchDataFile bool           `json:"watch_data_file"`
	StatusAddr    string         `json:"status_addr"` // empty disables the status websocket
	Feedback      FeedbackConfig `json:"feedback"`
	Inject        InjectConfig   `json:"inject"`
	Listener      ListenerConfig `json:"listener"`
}

type FeedbackConfig struct {
	Beep         bool `json:"beep"`
	NotifyErrors bool `json:"notify_errors"`
}

type InjectConfig struct {
	PressMS int `json:"press_ms"` // default hold for a synthesized key press
	ClickMS int `json:"click_ms"` // hold between mouse down and up
}

type ListenerConfig struct {
	RestartPauseMS int `json:"restart_pause_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataFile:      filepath.Join(configDir(), appName, "hotkeys.json"),
		LogLevel:      "info",
		StartActive:   false,
		WatchDataFile: true,
		StatusAddr:    "",
		Feedback: FeedbackConfig{
			Beep:         true,
			NotifyErrors: true,
		},
		Inject: InjectConfig{
			PressMS: 10,
			ClickMS: 20,
		},
		Listener: ListenerConfig{
			RestartPauseMS: 100,
		},
	}
}

// Load reads the config from disk or returns defaults, then applies
// environment overrides (optionally sourced from a .env file).
func Load() (*Config, error) {
	return LoadFrom(configPath())
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	// Load existing config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDataFile)); v != "" {
		c.DataFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvStatusAddr); ok {
		c.StatusAddr = strings.TrimSpace(v)
	}
}

// Save writes the config to disk
func (c *Config) Save() error {
	return c.SaveTo(configPath())
}

// SaveTo is Save with an explicit config file path.
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the platform-specific config file path
func configPath() string {
	return filepath.Join(configDir(), appName, "config.json")
}

func configDir() string {
	switch runtime.GOOS {
	case "darwin":
		return os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		return os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg
		}
		return os.Getenv("HOME") + "/.config"
	}
}
