// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for flurchat.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jeranaias/flurchat/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the chat server used when none is configured.
	DefaultBaseURL = "http://localhost:3001"

	// DefaultChatPath is the streaming chat endpoint.
	DefaultChatPath = "/api/chat"

	// DefaultSystemPrompt seeds new installs.
	DefaultSystemPrompt = "You are an expert and helpful assistant."

	// DefaultTitleMaxRunes bounds derived conversation titles.
	DefaultTitleMaxRunes = 50

	// HomeEnv overrides the configuration directory.
	HomeEnv = "FLURCHAT_HOME"

	redacted = "[REDACTED]"
)

// Backends lists the accepted storage.backend values.
var Backends = []string{"file", "sqlite", "redis", "s3", "memory"}

// ErrUnknownKey is returned by Get and Set for keys that name no setting.
var ErrUnknownKey = errors.New("unknown config key")

// Themes lists the accepted ui.theme values.
var Themes = []string{"dark", "light", "auto"}

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the flurchat configuration.
type Config struct {
	API     APIConfig     `toml:"api" json:"api"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// APIConfig describes the chat server.
type APIConfig struct {
	// BaseURL is the server root. A value without a scheme gets https://.
	BaseURL string `toml:"base_url" json:"base_url"`

	ChatPath string `toml:"chat_path" json:"chat_path"`

	// Model is sent with every request when non-empty.
	Model string `toml:"model" json:"model"`

	// TimeoutSecs bounds the wait for response headers. 0 disables it.
	// The body of a stream is never timed out.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// ChatConfig holds conversation defaults.
type ChatConfig struct {
	SystemPrompt  string `toml:"system_prompt" json:"system_prompt"`
	TitleMaxRunes int    `toml:"title_max_runes" json:"title_max_runes"`
}

// StorageConfig selects and configures the snapshot backend.
type StorageConfig struct {
	Backend string `toml:"backend" json:"backend"`

	// Dir holds the file and sqlite backends. Empty means ~/.flurchat/data.
	Dir string `toml:"dir" json:"dir"`

	// Watch reloads the file backend when another process writes it.
	Watch bool `toml:"watch" json:"watch"`

	RedisAddr     string `toml:"redis_addr" json:"redis_addr"`
	RedisPassword string `toml:"redis_password" json:"redis_password"`
	RedisDB       int    `toml:"redis_db" json:"redis_db"`

	S3Endpoint  string `toml:"s3_endpoint" json:"s3_endpoint"`
	S3AccessKey string `toml:"s3_access_key" json:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key" json:"s3_secret_key"`
	S3Bucket    string `toml:"s3_bucket" json:"s3_bucket"`
	S3UseSSL    bool   `toml:"s3_use_ssl" json:"s3_use_ssl"`
}

// LogConfig configures the zerolog output.
type LogConfig struct {
	Level string `toml:"level" json:"level"`

	// File receives the log. Empty means ~/.flurchat/flurchat.log.
	File string `toml:"file" json:"file"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	Theme    string `toml:"theme" json:"theme"`
	Markdown bool   `toml:"markdown" json:"markdown"`
	Sidebar  bool   `toml:"sidebar" json:"sidebar"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:  DefaultBaseURL,
			ChatPath: DefaultChatPath,
		},
		Chat: ChatConfig{
			SystemPrompt:  DefaultSystemPrompt,
			TitleMaxRunes: DefaultTitleMaxRunes,
		},
		Storage: StorageConfig{
			Backend:   "file",
			Watch:     true,
			RedisAddr: "127.0.0.1:6379",
			S3Bucket:  "flurchat",
			S3UseSSL:  true,
		},
		Log: LogConfig{
			Level: "warn",
		},
		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
			Sidebar:  true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the flurchat configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".flurchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataDir returns the directory for the file and sqlite backends.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return util.ExpandHome(c.Storage.Dir)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// LogPath returns the log file path.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return util.ExpandHome(c.Log.File)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "flurchat.log"), nil
}

// HeaderTimeout returns api.timeout_secs as a duration.
func (c *Config) HeaderTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// ensureSecurePermissions tightens a config file to 0600.
// SECURITY: config files may carry storage credentials
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are named) into the environment. Variables already set win. Missing
// files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load loads configuration from the config directory.
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last. A file that fails to parse is
// reported alongside the default configuration.
func Load() (*Config, error) {
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			cfg, err := LoadFromPath(tomlPath)
			if err == nil {
				return cfg, nil
			}
			loadErr = err
		}
	}

	if loadErr == nil {
		if jsonPath, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(jsonPath); statErr == nil {
				cfg, err := LoadFromPath(jsonPath)
				if err == nil {
					return cfg, nil
				}
				loadErr = err
			}
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return fillDefaults(cfg)
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Files ending in .json are read as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults restores defaults for string fields a file set to empty.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.API.ChatPath == "" {
		cfg.API.ChatPath = defaults.API.ChatPath
	}
	if cfg.Chat.SystemPrompt == "" {
		cfg.Chat.SystemPrompt = defaults.Chat.SystemPrompt
	}
	if cfg.Chat.TitleMaxRunes == 0 {
		cfg.Chat.TitleMaxRunes = defaults.Chat.TitleMaxRunes
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: written atomically with 0600 permissions
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# flurchat configuration file")
	fmt.Fprintln(&buf, "# Generated by flurchat - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// NORMALIZATION AND VALIDATION
// =============================================================================

// NormalizeBaseURL trims raw, defaults it to DefaultBaseURL and adds
// https:// when no scheme is given. Trailing slashes are removed.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return DefaultBaseURL
	}
	lower := strings.ToLower(base)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		base = "https://" + base
	}
	return strings.TrimRight(base, "/")
}

// Normalize canonicalizes values that have more than one spelling.
func (c *Config) Normalize() {
	c.API.BaseURL = NormalizeBaseURL(c.API.BaseURL)
	c.API.ChatPath = strings.TrimSpace(c.API.ChatPath)
	if c.API.ChatPath != "" && !strings.HasPrefix(c.API.ChatPath, "/") {
		c.API.ChatPath = "/" + c.API.ChatPath
	}
	c.API.Model = strings.TrimSpace(c.API.Model)
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.UI.Theme = strings.ToLower(strings.TrimSpace(c.UI.Theme))
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every validation failure.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors when any
// field is invalid.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Host == "" {
		add("api.base_url", "invalid URL %q", c.API.BaseURL)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("api.base_url", "scheme must be http or https, got %q", u.Scheme)
	}
	if c.API.ChatPath == "" {
		add("api.chat_path", "must not be empty")
	}
	if c.API.TimeoutSecs < 0 {
		add("api.timeout_secs", "must not be negative")
	}

	if strings.TrimSpace(c.Chat.SystemPrompt) == "" {
		add("chat.system_prompt", "must not be empty")
	}
	if c.Chat.TitleMaxRunes < 1 || c.Chat.TitleMaxRunes > 500 {
		add("chat.title_max_runes", "must be between 1 and 500, got %d", c.Chat.TitleMaxRunes)
	}

	if !contains(Backends, c.Storage.Backend) {
		add("storage.backend", "must be one of %s, got %q", strings.Join(Backends, ", "), c.Storage.Backend)
	}
	if c.Storage.RedisDB < 0 {
		add("storage.redis_db", "must not be negative")
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisAddr == "" {
		add("storage.redis_addr", "required for the redis backend")
	}
	if c.Storage.Backend == "s3" {
		if c.Storage.S3Endpoint == "" {
			add("storage.s3_endpoint", "required for the s3 backend")
		}
		if c.Storage.S3Bucket == "" {
			add("storage.s3_bucket", "required for the s3 backend")
		}
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "unknown level %q", c.Log.Level)
	}

	if !contains(Themes, c.UI.Theme) {
		add("ui.theme", "must be one of %s, got %q", strings.Join(Themes, ", "), c.UI.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported variables:
//   - FLURCHAT_API_BASE: overrides api.base_url
//   - VITE_API_BASE: overrides api.base_url when FLURCHAT_API_BASE is unset
//   - FLURCHAT_MODEL: overrides api.model
//   - FLURCHAT_STORAGE: overrides storage.backend
//   - FLURCHAT_DATA_DIR: overrides storage.dir
//   - FLURCHAT_REDIS_ADDR, FLURCHAT_REDIS_PASSWORD: redis credentials
//   - FLURCHAT_S3_ENDPOINT, FLURCHAT_S3_ACCESS_KEY, FLURCHAT_S3_SECRET_KEY,
//     FLURCHAT_S3_BUCKET: object store credentials
//   - FLURCHAT_LOG_LEVEL: overrides log.level
//   - FLURCHAT_SYSTEM_PROMPT: overrides chat.system_prompt
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("FLURCHAT_API_BASE"); base != "" {
		c.API.BaseURL = base
	} else if base := os.Getenv("VITE_API_BASE"); base != "" {
		c.API.BaseURL = base
	}

	overrides := []struct {
		env   string
		field *string
	}{
		{"FLURCHAT_MODEL", &c.API.Model},
		{"FLURCHAT_STORAGE", &c.Storage.Backend},
		{"FLURCHAT_DATA_DIR", &c.Storage.Dir},
		{"FLURCHAT_REDIS_ADDR", &c.Storage.RedisAddr},
		{"FLURCHAT_REDIS_PASSWORD", &c.Storage.RedisPassword},
		{"FLURCHAT_S3_ENDPOINT", &c.Storage.S3Endpoint},
		{"FLURCHAT_S3_ACCESS_KEY", &c.Storage.S3AccessKey},
		{"FLURCHAT_S3_SECRET_KEY", &c.Storage.S3SecretKey},
		{"FLURCHAT_S3_BUCKET", &c.Storage.S3Bucket},
		{"FLURCHAT_LOG_LEVEL", &c.Log.Level},
		{"FLURCHAT_SYSTEM_PROMPT", &c.Chat.SystemPrompt},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.field = v
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strings.TrimSpace(strVal))
			if err != nil {
				switch strings.ToLower(strings.TrimSpace(strVal)) {
				case "yes", "on":
					boolVal = true
				case "no", "off":
					boolVal = false
				default:
					return fmt.Errorf("invalid boolean value: %q", strVal)
				}
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"api.base_url",
		"api.chat_path",
		"api.model",
		"api.timeout_secs",
		"chat.system_prompt",
		"chat.title_max_runes",
		"storage.backend",
		"storage.dir",
		"storage.watch",
		"storage.redis_addr",
		"storage.redis_password",
		"storage.redis_db",
		"storage.s3_endpoint",
		"storage.s3_access_key",
		"storage.s3_secret_key",
		"storage.s3_bucket",
		"storage.s3_use_ssl",
		"log.level",
		"log.file",
		"ui.theme",
		"ui.markdown",
		"ui.sidebar",
	}
}

// IsSecretKey reports whether key names a credential.
func IsSecretKey(key string) bool {
	switch strings.ToLower(key) {
	case "storage.redis_password", "storage.s3_access_key", "storage.s3_secret_key":
		return true
	}
	return false
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as indented JSON.
// SECURITY: credentials are redacted
func (c *Config) String() string {
	safe := c.Clone()
	for _, secret := range []*string{
		&safe.Storage.RedisPassword,
		&safe.Storage.S3AccessKey,
		&safe.Storage.S3SecretKey,
	} {
		if *secret != "" {
			*secret = redacted
		}
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
