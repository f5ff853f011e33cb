/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Fields missing from the file keep their defaults.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Storage       StorageConfig `yaml:"storage"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	Theme string `yaml:"theme"` // "system" | "light" | "dark"
}

type StorageConfig struct {
	Backend string `yaml:"backend"` // "fs" | "sqlite"
	Path    string `yaml:"path"`    // repository root; empty means DataDir()
	Watch   bool   `yaml:"watch"`   // reload pages changed by other processes (fs only)
}

type CanvasConfig struct {
	MoveSpeed     float64 `yaml:"move_speed"`
	LongPressMs   int     `yaml:"long_press_ms"`
	AutoSizeNotes bool    `yaml:"auto_size_notes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Storage:       StorageConfig{Backend: "fs", Watch: true},
		Canvas:        CanvasConfig{MoveSpeed: 1, LongPressMs: 500, AutoSizeNotes: true},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "PAMET_CONFIG"
	EnvStorageBackend = "PAMET_STORAGE_BACKEND"
	EnvStoragePath    = "PAMET_STORAGE_PATH"
	EnvStorageWatch   = "PAMET_STORAGE_WATCH"
	EnvMoveSpeed      = "PAMET_MOVE_SPEED"
	EnvLongPressMs    = "PAMET_LONG_PRESS_MS"
	EnvAutoSize       = "PAMET_AUTO_SIZE_NOTES"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PAMET_LOG_LEVEL"
	EnvLogFormat = "PAMET_LOG_FORMAT"
	EnvLogSource = "PAMET_LOG_SOURCE"
	EnvLogFile   = "PAMET_LOG_FILE"
)

// envKeys maps config keys to the env vars overriding them.
var envKeys = map[string]string{
	"storage.backend":        EnvStorageBackend,
	"storage.path":           EnvStoragePath,
	"storage.watch":          EnvStorageWatch,
	"canvas.move_speed":      EnvMoveSpeed,
	"canvas.long_press_ms":   EnvLongPressMs,
	"canvas.auto_size_notes": EnvAutoSize,
	"logging.level":          EnvLogLevel,
	"logging.format":         EnvLogFormat,
	"logging.source":         EnvLogSource,
	"logging.file":           EnvLogFile,
}

func userDir(kind string) (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Pamet")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Pamet")
	default: // linux and others
		if kind == "data" {
			base = filepath.Join(os.Getenv("HOME"), ".local", "share", "pamet")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "pamet")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve user directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path. PAMET_CONFIG replaces it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := userDir("config")
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir is the default repository root.
func DataDir() (string, error) {
	base, err := userDir("data")
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		base = filepath.Join(base, "pages")
	}
	return base, nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. A malformed file is an error; a missing one is not.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, err
	}
	applyEnvOverrides(&cfg)
	return cfg, cfg.Validate()
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects values the application cannot run with.
func (c AppConfig) Validate() error {
	switch c.Storage.Backend {
	case "fs", "sqlite":
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Canvas.MoveSpeed <= 0 {
		return fmt.Errorf("canvas.move_speed must be positive, got %v", c.Canvas.MoveSpeed)
	}
	if c.Canvas.LongPressMs <= 0 {
		return fmt.Errorf("canvas.long_press_ms must be positive, got %d", c.Canvas.LongPressMs)
	}
	return nil
}

// LongPressDelay returns the long press time as a duration.
func (c CanvasConfig) LongPressDelay() time.Duration {
	return time.Duration(c.LongPressMs) * time.Millisecond
}

// Root returns the repository root, falling back to DataDir.
func (s StorageConfig) Root() (string, error) {
	if p := strings.TrimSpace(s.Path); p != "" {
		return p, nil
	}
	return DataDir()
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	if v := strings.ToLower(strings.TrimSpace(src.Storage.Backend)); v != "" {
		dst.Storage.Backend = v
	}
	if strings.TrimSpace(src.Storage.Path) != "" {
		dst.Storage.Path = strings.TrimSpace(src.Storage.Path)
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Storage.Watch = src.Storage.Watch
	dst.Canvas.AutoSizeNotes = src.Canvas.AutoSizeNotes
	if src.Canvas.MoveSpeed != 0 {
		dst.Canvas.MoveSpeed = src.Canvas.MoveSpeed
	}
	if src.Canvas.LongPressMs != 0 {
		dst.Canvas.LongPressMs = src.Canvas.LongPressMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvStorageBackend)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageWatch)); v != "" {
		cfg.Storage.Watch = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMoveSpeed)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Canvas.MoveSpeed = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLongPressMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Canvas.LongPressMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutoSize)); v != "" {
		cfg.Canvas.AutoSizeNotes = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// OverridableKeys lists the config keys that have an env override, sorted.
func OverridableKeys() []string {
	keys := make([]string, 0, len(envKeys))
	for k := range envKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
