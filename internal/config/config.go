package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7480"
	DefaultDBFileName = ".picstore.db"
	DefaultLogLevel   = "debug"

	DefaultMaxUploadBytes     int64 = 2 << 20
	DefaultMultipartMaxMemory int64 = 256 << 10
	DefaultSessionTTL               = 24 * time.Hour
	DefaultRegisterPath             = "/register"
	DefaultSettingsPath             = "/settings"

	configFileName     = ".picstore.toml"
	yamlConfigFileName = ".picstore.yaml"

	configDirEnvKey          = "PICSTORE_CONFIG_DIR"
	trustProjectConfigEnvKey = "PICSTORE_TRUST_PROJECT_CONFIG"
	apiURLEnvKey             = "PICSTORE_API_URL"
	dbPathEnvKey             = "PICSTORE_DB"
	scratchDirEnvKey         = "PICSTORE_SCRATCH_DIR"
	placeholderEnvKey        = "PICSTORE_PLACEHOLDER"
	acceptedMediaTypesEnvKey = "PICSTORE_ACCEPTED_MEDIA_TYPES"
)

// DefaultAcceptedMediaTypes is the image type set accepted for storage.
var DefaultAcceptedMediaTypes = []string{"image/jpeg", "image/jpg", "image/png"}

// ImagesConfig defines runtime configuration for image handling.
type ImagesConfig struct {
	MaxUploadBytes     int64    `toml:"max_upload_bytes" yaml:"max_upload_bytes" json:"max_upload_bytes"`
	MultipartMaxMemory int64    `toml:"multipart_max_memory" yaml:"multipart_max_memory" json:"multipart_max_memory"`
	ScratchDir         string   `toml:"scratch_dir" yaml:"scratch_dir" json:"scratch_dir"`
	AcceptedMediaTypes []string `toml:"accepted_media_types" yaml:"accepted_media_types" json:"accepted_media_types"`
	PlaceholderPath    string   `toml:"placeholder_path" yaml:"placeholder_path" json:"placeholder_path"`
}

// SessionConfig defines browser session behaviour.
type SessionConfig struct {
	TTL          string `toml:"ttl" yaml:"ttl" json:"ttl"`
	RegisterPath string `toml:"register_path" yaml:"register_path" json:"register_path"`
	SettingsPath string `toml:"settings_path" yaml:"settings_path" json:"settings_path"`
}

// Config defines runtime configuration for picstore.
type Config struct {
	APIURL                   string        `toml:"api_url" yaml:"api_url" json:"api_url"`
	DBPath                   string        `toml:"db_path" yaml:"db_path" json:"db_path"`
	LogLevel                 string        `toml:"log_level" yaml:"log_level" json:"log_level"`
	Images                   ImagesConfig  `toml:"images" yaml:"images" json:"images"`
	Session                  SessionConfig `toml:"session" yaml:"session" json:"session"`
	TrustedProjectConfigPath string        `toml:"-" yaml:"-" json:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Images: ImagesConfig{
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMaxMemory,
			AcceptedMediaTypes: append([]string(nil), DefaultAcceptedMediaTypes...),
		},
		Session: SessionConfig{
			TTL:          DefaultSessionTTL.String(),
			RegisterPath: DefaultRegisterPath,
			SettingsPath: DefaultSettingsPath,
		},
	}
}

// SessionTTL returns the parsed session lifetime.
func (c *Config) SessionTTL() time.Duration {
	if parsed, ok := parseDuration(c.Session.TTL); ok {
		return parsed
	}
	return DefaultSessionTTL
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return false, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return false, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return false, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	return true, nil
}

// loadDir applies the TOML file of dir and then its YAML variant.
func loadDir(dir string, cfg *Config) (bool, error) {
	tomlLoaded, err := loadFileIfExists(filepath.Join(dir, configFileName), cfg)
	if err != nil {
		return false, err
	}
	yamlLoaded, err := loadFileIfExists(filepath.Join(dir, yamlConfigFileName), cfg)
	if err != nil {
		return false, err
	}
	return tomlLoaded || yamlLoaded, nil
}

func overrideConfigDir() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return dir, true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"images.max_upload_bytes",
	"images.multipart_max_memory",
	"images.scratch_dir",
	"images.accepted_media_types",
	"images.placeholder_path",
	"session.ttl",
	"session.register_path",
	"session.settings_path",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "images.max_upload_bytes":
		return strconv.FormatInt(c.Images.MaxUploadBytes, 10), nil
	case "images.multipart_max_memory":
		return strconv.FormatInt(c.Images.MultipartMaxMemory, 10), nil
	case "images.scratch_dir":
		return c.Images.ScratchDir, nil
	case "images.accepted_media_types":
		return strings.Join(c.Images.AcceptedMediaTypes, ","), nil
	case "images.placeholder_path":
		return c.Images.PlaceholderPath, nil
	case "session.ttl":
		return c.Session.TTL, nil
	case "session.register_path":
		return c.Session.RegisterPath, nil
	case "session.settings_path":
		return c.Session.SettingsPath, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if dir, ok := overrideConfigDir(); ok {
		return filepath.Join(dir, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if dir, ok := overrideConfigDir(); ok {
		return filepath.Join(dir, configFileName), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if dir, ok := overrideConfigDir(); ok {
		if _, err := loadDir(dir, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if _, err := loadDir(home, &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				loaded, err := loadDir(cwd, &cfg)
				if err != nil {
					return nil, err
				}
				if loaded {
					cfg.TrustedProjectConfigPath = cwd
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dir := strings.TrimSpace(os.Getenv(scratchDirEnvKey)); dir != "" {
		cfg.Images.ScratchDir = dir
	}
	if path := strings.TrimSpace(os.Getenv(placeholderEnvKey)); path != "" {
		cfg.Images.PlaceholderPath = path
	}
	if raw := strings.TrimSpace(os.Getenv(acceptedMediaTypesEnvKey)); raw != "" {
		cfg.Images.AcceptedMediaTypes = splitCSV(raw)
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "images.max_upload_bytes", "images.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "images.accepted_media_types":
		values := splitCSV(value)
		for _, v := range values {
			if len(normalizeConfiguredMediaTypes([]string{v})) == 0 {
				return nil, fmt.Errorf("%s: %q is not one of %s", key, v, strings.Join(DefaultAcceptedMediaTypes, ", "))
			}
		}
		return values, nil
	case "session.ttl":
		if _, ok := parseDuration(value); !ok {
			return nil, fmt.Errorf("%s must be a positive duration", key)
		}
		return value, nil
	case "session.register_path", "session.settings_path":
		if !strings.HasPrefix(value, "/") {
			return nil, fmt.Errorf("%s must be an absolute path", key)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func parseDuration(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
		return parsed, true
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Images.MaxUploadBytes <= 0 {
		c.Images.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Images.MultipartMaxMemory <= 0 {
		c.Images.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	c.Images.AcceptedMediaTypes = normalizeConfiguredMediaTypes(c.Images.AcceptedMediaTypes)
	if len(c.Images.AcceptedMediaTypes) == 0 {
		c.Images.AcceptedMediaTypes = normalizeConfiguredMediaTypes(DefaultAcceptedMediaTypes)
	}
	if _, ok := parseDuration(c.Session.TTL); !ok {
		c.Session.TTL = DefaultSessionTTL.String()
	}
	if !strings.HasPrefix(c.Session.RegisterPath, "/") {
		c.Session.RegisterPath = DefaultRegisterPath
	}
	if !strings.HasPrefix(c.Session.SettingsPath, "/") {
		c.Session.SettingsPath = DefaultSettingsPath
	}
}

// normalizeConfiguredMediaTypes keeps only values from DefaultAcceptedMediaTypes;
// configuration can narrow the accepted set but never widen it.
func normalizeConfiguredMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(DefaultAcceptedMediaTypes))
	for _, value := range DefaultAcceptedMediaTypes {
		allowed[value] = struct{}{}
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if _, ok := allowed[normalized]; !ok {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
