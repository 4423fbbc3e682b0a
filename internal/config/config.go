// Package config provides persistent configuration for the salat CLI.
//
// Configuration is stored as JSON at ~/.config/salat/config.json
// (XDG-compliant). Every key can be overridden with a SALAT_<KEY>
// environment variable, and a .env file in the working directory is read
// first. The merge priority is: CLI flags > environment > config file >
// defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/smokyabdulrahman/salat/internal/method"
	"github.com/smokyabdulrahman/salat/internal/prayer"
)

const (
	configDirName  = "salat"
	configFileName = "config.json"

	// EnvPrefix is prepended to upper-cased keys for environment overrides.
	EnvPrefix = "SALAT"
)

// ErrInvalidValue is wrapped by every validation failure.
var ErrInvalidValue = errors.New("invalid config value")

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"city", "country",
	"latitude", "longitude",
	"timezone", "utc_offset",
	"method", "school",
	"time_format",
	"prayers",
	"orange_minutes", "red_minutes",
	"cache_dir",
	"log_level",
	"mqtt_broker", "mqtt_topic",
	"listen_addr",
}

// Config holds all user-configurable settings.
// Zero values mean "not set" (use defaults or auto-detect).
type Config struct {
	City          string   `json:"city,omitempty" mapstructure:"city"`
	Country       string   `json:"country,omitempty" mapstructure:"country"`
	Latitude      float64  `json:"latitude,omitempty" mapstructure:"latitude"`
	Longitude     float64  `json:"longitude,omitempty" mapstructure:"longitude"`
	Timezone      string   `json:"timezone,omitempty" mapstructure:"timezone"`     // IANA name, e.g. "Europe/Paris"
	UTCOffset     *float64 `json:"utc_offset,omitempty" mapstructure:"utc_offset"` // hours; wins over Timezone
	Method        *int     `json:"method,omitempty" mapstructure:"method"`         // pointer so we can distinguish "not set" from 0
	School        *int     `json:"school,omitempty" mapstructure:"school"`         // 0 Shafi, 1 Hanafi
	TimeFormat    string   `json:"time_format,omitempty" mapstructure:"time_format"`
	Prayers       string   `json:"prayers,omitempty" mapstructure:"prayers"` // comma-separated list
	OrangeMinutes int      `json:"orange_minutes,omitempty" mapstructure:"orange_minutes"`
	RedMinutes    int      `json:"red_minutes,omitempty" mapstructure:"red_minutes"`
	CacheDir      string   `json:"cache_dir,omitempty" mapstructure:"cache_dir"`
	LogLevel      string   `json:"log_level,omitempty" mapstructure:"log_level"`
	MQTTBroker    string   `json:"mqtt_broker,omitempty" mapstructure:"mqtt_broker"`
	MQTTTopic     string   `json:"mqtt_topic,omitempty" mapstructure:"mqtt_topic"`
	ListenAddr    string   `json:"listen_addr,omitempty" mapstructure:"listen_addr"`
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	m := method.Default
	school := 0
	return Config{
		Method:        &m,
		School:        &school,
		TimeFormat:    "24h",
		OrangeMinutes: prayer.DefaultThresholds.OrangeMinutes,
		RedMinutes:    prayer.DefaultThresholds.RedMinutes,
		LogLevel:      "warn",
		MQTTTopic:     "salat/next",
		ListenAddr:    "127.0.0.1:8080",
	}
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the config file from its default path and applies environment
// overrides.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	return LoadFrom(path)
}

// LoadFrom reads the config from a specific file path and applies
// environment overrides. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	return load(path, true)
}

// ReadFile reads only the config file, without environment overrides. It is
// used when the file is about to be edited and written back.
func ReadFile(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, withEnv bool) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	if withEnv {
		for _, key := range ValidKeys {
			if err := v.BindEnv(key, EnvVar(key)); err != nil {
				return nil, fmt.Errorf("failed to bind %s: %w", EnvVar(key), err)
			}
		}
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return c.SaveTo(path)
}

// SaveTo writes the config to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Reset deletes the config file.
func Reset() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return ResetAt(path)
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidValue, fmt.Sprintf(format, args...))
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	switch key {
	case "city":
		c.City = value
	case "country":
		c.Country = value
	case "latitude":
		v, err := parseRange("latitude", value, -90, 90)
		if err != nil {
			return err
		}
		c.Latitude = v
	case "longitude":
		v, err := parseRange("longitude", value, -180, 180)
		if err != nil {
			return err
		}
		c.Longitude = v
	case "timezone":
		if _, err := time.LoadLocation(value); err != nil || value == "" {
			return invalid("timezone %q: not a known IANA zone", value)
		}
		c.Timezone = value
	case "utc_offset":
		v, err := parseRange("utc_offset", value, -12, 14)
		if err != nil {
			return err
		}
		c.UTCOffset = &v
	case "method":
		v, err := strconv.Atoi(value)
		if err != nil {
			return invalid("method %q: must be an integer", value)
		}
		if !method.Valid(v) {
			return invalid("method %q: see `salat methods` for supported ids", value)
		}
		c.Method = &v
	case "school":
		v, err := strconv.Atoi(value)
		if err != nil {
			return invalid("school %q: must be an integer", value)
		}
		if v != 0 && v != 1 {
			return invalid("school %q: must be 0 (Shafi) or 1 (Hanafi)", value)
		}
		c.School = &v
	case "time_format":
		if value != "12h" && value != "24h" {
			return invalid("time_format %q: must be \"12h\" or \"24h\"", value)
		}
		c.TimeFormat = value
	case "prayers":
		if err := validatePrayers(value); err != nil {
			return err
		}
		c.Prayers = value
	case "orange_minutes", "red_minutes":
		v, err := strconv.Atoi(value)
		if err != nil || v <= 0 {
			return invalid("%s %q: must be a positive integer", key, value)
		}
		next := *c
		if key == "orange_minutes" {
			next.OrangeMinutes = v
		} else {
			next.RedMinutes = v
		}
		if err := next.validateThresholds(); err != nil {
			return err
		}
		*c = next
	case "cache_dir":
		c.CacheDir = value
	case "log_level":
		if !validLogLevels[strings.ToLower(value)] {
			return invalid("log_level %q: must be one of debug, info, warn, error, disabled", value)
		}
		c.LogLevel = strings.ToLower(value)
	case "mqtt_broker":
		if err := validateBroker(value); err != nil {
			return err
		}
		c.MQTTBroker = value
	case "mqtt_topic":
		if value == "" || strings.ContainsAny(value, "#+") {
			return invalid("mqtt_topic %q: must be a non-empty topic without wildcards", value)
		}
		c.MQTTTopic = value
	case "listen_addr":
		if _, _, err := net.SplitHostPort(value); err != nil {
			return invalid("listen_addr %q: %v", value, err)
		}
		c.ListenAddr = value
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "city":
		return c.City, nil
	case "country":
		return c.Country, nil
	case "latitude":
		return formatFloat(c.Latitude), nil
	case "longitude":
		return formatFloat(c.Longitude), nil
	case "timezone":
		return c.Timezone, nil
	case "utc_offset":
		if c.UTCOffset == nil {
			return "", nil
		}
		return strconv.FormatFloat(*c.UTCOffset, 'f', -1, 64), nil
	case "method":
		if c.Method == nil {
			return "", nil
		}
		return strconv.Itoa(*c.Method), nil
	case "school":
		if c.School == nil {
			return "", nil
		}
		return strconv.Itoa(*c.School), nil
	case "time_format":
		return c.TimeFormat, nil
	case "prayers":
		return c.Prayers, nil
	case "orange_minutes":
		return formatInt(c.OrangeMinutes), nil
	case "red_minutes":
		return formatInt(c.RedMinutes), nil
	case "cache_dir":
		return c.CacheDir, nil
	case "log_level":
		return c.LogLevel, nil
	case "mqtt_broker":
		return c.MQTTBroker, nil
	case "mqtt_topic":
		return c.MQTTTopic, nil
	case "listen_addr":
		return c.ListenAddr, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// Validate checks values that may have come from the file or the
// environment without passing through Set.
func (c *Config) Validate() error {
	if outside(c.Latitude, -90, 90) {
		return invalid("latitude %v: must be between -90 and 90", c.Latitude)
	}
	if outside(c.Longitude, -180, 180) {
		return invalid("longitude %v: must be between -180 and 180", c.Longitude)
	}
	if c.UTCOffset != nil && outside(*c.UTCOffset, -12, 14) {
		return invalid("utc_offset %v: must be between -12 and 14", *c.UTCOffset)
	}
	if c.Method != nil && !method.Valid(*c.Method) {
		return invalid("method %d: see `salat methods` for supported ids", *c.Method)
	}
	if c.School != nil && *c.School != 0 && *c.School != 1 {
		return invalid("school %d: must be 0 (Shafi) or 1 (Hanafi)", *c.School)
	}
	if c.TimeFormat != "" && c.TimeFormat != "12h" && c.TimeFormat != "24h" {
		return invalid("time_format %q: must be \"12h\" or \"24h\"", c.TimeFormat)
	}
	if c.Prayers != "" {
		if err := validatePrayers(c.Prayers); err != nil {
			return err
		}
	}
	if c.OrangeMinutes < 0 || c.RedMinutes < 0 {
		return invalid("urgency thresholds must be positive")
	}
	return c.validateThresholds()
}

// validateThresholds enforces red < orange, filling unset values from the
// defaults.
func (c *Config) validateThresholds() error {
	th := c.Thresholds()
	if th.RedMinutes >= th.OrangeMinutes {
		return invalid("red_minutes (%d) must be less than orange_minutes (%d)", th.RedMinutes, th.OrangeMinutes)
	}
	return nil
}

// Thresholds returns the urgency thresholds, using defaults for unset values.
func (c *Config) Thresholds() prayer.Thresholds {
	th := prayer.DefaultThresholds
	if c.OrangeMinutes > 0 {
		th.OrangeMinutes = c.OrangeMinutes
	}
	if c.RedMinutes > 0 {
		th.RedMinutes = c.RedMinutes
	}
	return th
}

// PrayerNames returns the configured prayer list, or nil when unset.
func (c *Config) PrayerNames() []string {
	if c.Prayers == "" {
		return nil
	}
	var names []string
	for _, n := range strings.Split(c.Prayers, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// MethodOrDefault returns the method value, falling back to the given default.
func (c *Config) MethodOrDefault(def int) int {
	if c.Method != nil {
		return *c.Method
	}
	return def
}

// SchoolOrDefault returns the school value, falling back to the given default.
func (c *Config) SchoolOrDefault(def int) int {
	if c.School != nil {
		return *c.School
	}
	return def
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

func validatePrayers(value string) error {
	for _, n := range strings.Split(value, ",") {
		n = strings.TrimSpace(n)
		if _, ok := prayer.ParseKey(n); !ok {
			return invalid("prayer name %q in prayers list", n)
		}
	}
	return nil
}

func validateBroker(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return invalid("mqtt_broker %q: %v", value, err)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts":
	default:
		return invalid("mqtt_broker %q: scheme must be tcp, ssl, ws or wss", value)
	}
	if u.Host == "" {
		return invalid("mqtt_broker %q: missing host", value)
	}
	return nil
}

func parseRange(key, value string, lo, hi float64) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, invalid("%s %q: must be a number", key, value)
	}
	if outside(v, lo, hi) {
		return 0, invalid("%s %q: must be between %g and %g", key, value, lo, hi)
	}
	return v, nil
}

// outside reports whether v is NaN or not within [lo, hi].
func outside(v, lo, hi float64) bool {
	return math.IsNaN(v) || v < lo || v > hi
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
