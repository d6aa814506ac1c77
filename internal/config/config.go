package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string  `json:"data_dir"`
	ExportDir         string  `json:"export_dir"`
	StartDir          string  `json:"start_dir"`
	RefreshIntervalMs int     `json:"refresh_interval_ms"`
	SpeakerBufferMs   int     `json:"speaker_buffer_ms"`
	SeekStepSeconds   float64 `json:"seek_step_seconds"`
	KeyBindings       KeyMap  `json:"key_bindings"`
}

// KeyMap defines keyboard shortcuts
type KeyMap struct {
	PlayPause   string `json:"play_pause"`
	SeekForward string `json:"seek_forward"`
	SeekBack    string `json:"seek_back"`
	ToggleTag   string `json:"toggle_tag"`
	ClearMarker string `json:"clear_marker"`
	RemoveTag   string `json:"remove_tag"`
	Export      string `json:"export"`
	Open        string `json:"open"`
	Quit        string `json:"quit"`
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		DataDir:           "./data",
		ExportDir:         "./data/exports",
		RefreshIntervalMs: 16,
		SpeakerBufferMs:   100,
		SeekStepSeconds:   1,
		KeyBindings: KeyMap{
			PlayPause:   " ",
			SeekForward: "right",
			SeekBack:    "left",
			ToggleTag:   "t",
			ClearMarker: "esc",
			RemoveTag:   "x",
			Export:      "e",
			Open:        "o",
			Quit:        "q",
		},
	}
}

// RefreshInterval returns the poll loop period
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}

// SpeakerBuffer returns the speaker buffer length
func (c *Config) SpeakerBuffer() time.Duration {
	return time.Duration(c.SpeakerBufferMs) * time.Millisecond
}

// Validate rejects values the player cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.RefreshIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval_ms must be positive, got %d", c.RefreshIntervalMs))
	}
	if c.SpeakerBufferMs <= 0 {
		errs = append(errs, fmt.Errorf("speaker_buffer_ms must be positive, got %d", c.SpeakerBufferMs))
	}
	if c.SeekStepSeconds <= 0 {
		errs = append(errs, fmt.Errorf("seek_step_seconds must be positive, got %v", c.SeekStepSeconds))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	return errors.Join(errs...)
}

// LoadConfig reads and unmarshals configuration from file. Fields missing
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	config := GetDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// SaveConfig marshals and saves configuration to file
func SaveConfig(config *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadOrCreate loads config from path or creates default if not exists,
// then applies environment overrides and validates the result
func LoadOrCreate(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Save default config if file didn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(config, path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	applyEnv(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// LoadEnvFile loads KEY=value pairs from a .env file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides file values from the environment
func applyEnv(config *Config) {
	if dir := os.Getenv("TAGGER_DATA_DIR"); dir != "" {
		config.DataDir = dir
	}
	if dir := os.Getenv("TAGGER_EXPORT_DIR"); dir != "" {
		config.ExportDir = dir
	}
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv("TAGGER_CONFIG"); path != "" {
		return path
	}

	// Use XDG config directory if available
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "wavtagger", "config.json")
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(home, ".config", "wavtagger", "config.json")
}
