package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Codealike/Codealike-plugins-core/internal/core/constants"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

const (
	settingsFileName = "settings.toml"
	homeEnv          = "CODEALIKE_HOME"
)

// Settings holds the global agent configuration shared by every instance
type Settings struct {
	APIURL    string `toml:"api_url"`
	UserToken string `toml:"user_token"`
	Timezone  string `toml:"timezone"`

	Tracking TrackingSettings `toml:"tracking"`
	Log      LogSettings      `toml:"log"`
}

// TrackingSettings holds the tracker timings in milliseconds
type TrackingSettings struct {
	IdleCheckIntervalMs int64 `toml:"idle_check_interval_ms"`
	IdleMaxPeriodMs     int64 `toml:"idle_max_period_ms"`
	FlushIntervalMs     int64 `toml:"flush_interval_ms"`
}

type LogSettings struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultSettings returns settings with the stock intervals and API location
func DefaultSettings() Settings {
	return Settings{
		APIURL:   constants.DefaultAPIURL,
		Timezone: "Local",
		Tracking: TrackingSettings{
			IdleCheckIntervalMs: constants.IdleCheckInterval.Milliseconds(),
			IdleMaxPeriodMs:     constants.IdleMaxPeriod.Milliseconds(),
			FlushIntervalMs:     constants.FlushInterval.Milliseconds(),
		},
		Log: LogSettings{
			Level:  "info",
			Format: string(util.FormatText),
		},
	}
}

// BaseDir returns the agent's home directory: $CODEALIKE_HOME when set,
// otherwise ~/.codealike.
func BaseDir() string {
	if dir := os.Getenv(homeEnv); dir != "" {
		return expandHome(dir)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codealike")
}

// SettingsPath returns the default location of settings.toml
func SettingsPath() string {
	return filepath.Join(BaseDir(), settingsFileName)
}

// Load reads settings from path, falling back to defaults when the file
// does not exist. An empty path means SettingsPath().
func Load(path string) (Settings, error) {
	if path == "" {
		path = SettingsPath()
	}
	path = expandHome(path)

	cfg := DefaultSettings()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse settings %s: %w", path, err)
		}
		util.LogDebugf("Loaded settings from %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes settings to path atomically. The file holds the user token
// and is therefore only readable by its owner.
func (s Settings) Save(path string) error {
	if path == "" {
		path = SettingsPath()
	}
	path = expandHome(path)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := writeFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	util.LogDebugf("Saved settings to %s", path)
	return nil
}

// Validate fills empty values with defaults and rejects nonsensical ones
func (s *Settings) Validate() error {
	defaults := DefaultSettings()

	s.APIURL = strings.TrimRight(strings.TrimSpace(s.APIURL), "/")
	if s.APIURL == "" {
		s.APIURL = defaults.APIURL
	}

	if s.Tracking.IdleCheckIntervalMs == 0 {
		s.Tracking.IdleCheckIntervalMs = defaults.Tracking.IdleCheckIntervalMs
	}
	if s.Tracking.IdleMaxPeriodMs == 0 {
		s.Tracking.IdleMaxPeriodMs = defaults.Tracking.IdleMaxPeriodMs
	}
	if s.Tracking.FlushIntervalMs == 0 {
		s.Tracking.FlushIntervalMs = defaults.Tracking.FlushIntervalMs
	}
	if s.Tracking.IdleCheckIntervalMs < 0 || s.Tracking.IdleMaxPeriodMs < 0 || s.Tracking.FlushIntervalMs < 0 {
		return fmt.Errorf("tracking intervals must be positive")
	}

	if s.Timezone == "" {
		s.Timezone = defaults.Timezone
	}

	if s.Log.Level == "" {
		s.Log.Level = defaults.Log.Level
	}
	switch util.LogFormat(s.Log.Format) {
	case "":
		s.Log.Format = defaults.Log.Format
	case util.FormatText, util.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q (expected text or json)", s.Log.Format)
	}

	if s.UserToken != "" {
		if _, err := ParseToken(s.UserToken); err != nil {
			return err
		}
	}
	return nil
}

func (t TrackingSettings) IdleCheckInterval() time.Duration {
	return time.Duration(t.IdleCheckIntervalMs) * time.Millisecond
}

func (t TrackingSettings) IdleMaxPeriod() time.Duration {
	return time.Duration(t.IdleMaxPeriodMs) * time.Millisecond
}

func (t TrackingSettings) FlushInterval() time.Duration {
	return time.Duration(t.FlushIntervalMs) * time.Millisecond
}

// HasUserToken reports whether a user token has been configured
func (s Settings) HasUserToken() bool {
	return s.UserToken != ""
}

// Token returns the parsed user token
func (s Settings) Token() (Token, error) {
	if s.UserToken == "" {
		return Token{}, ErrNoToken
	}
	return ParseToken(s.UserToken)
}

// SetUserToken validates raw and stores it
func (s *Settings) SetUserToken(raw string) error {
	tok, err := ParseToken(raw)
	if err != nil {
		return err
	}
	s.UserToken = tok.String()
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, perm); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
