package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// MaxDelayMs caps every configurable delay.
const MaxDelayMs = 10000

// Script direction and unit values accepted in the config file.
const (
	ScriptAuto = "auto"
	ScriptLTR  = "ltr"
	ScriptRTL  = "rtl"

	UnitCharacter = "character"
	UnitWord      = "word"
	UnitPaste     = "paste"
	UnitAuto      = "auto"
)

// Backends for key injection.
const (
	BackendAuto    = "auto"
	BackendXdotool = "xdotool"
	BackendWtype   = "wtype"
	BackendYdotool = "ydotool"
	BackendRobotgo = "robotgo"
)

// HotkeyConfig holds the three global trigger bindings.
type HotkeyConfig struct {
	Start string `mapstructure:"start" json:"start"`
	Pause string `mapstructure:"pause" json:"pause"`
	Stop  string `mapstructure:"stop" json:"stop"`
}

// Config represents the application configuration
type Config struct {
	ScriptKind          string       `mapstructure:"script_kind" json:"script_kind"`
	LTRUnit             string       `mapstructure:"ltr_unit" json:"ltr_unit"`
	RTLUnit             string       `mapstructure:"rtl_unit" json:"rtl_unit"`
	StartDelayMs        int          `mapstructure:"start_delay_ms" json:"start_delay_ms"`
	InterUnitDelayMs    int          `mapstructure:"inter_unit_delay_ms" json:"inter_unit_delay_ms"`
	ClipboardSettleMs   int          `mapstructure:"clipboard_settle_ms" json:"clipboard_settle_ms"`
	RTLPasteThresholdMs int          `mapstructure:"rtl_paste_threshold_ms" json:"rtl_paste_threshold_ms"`
	PasteShortcut       string       `mapstructure:"paste_shortcut" json:"paste_shortcut"`
	Backend             string       `mapstructure:"backend" json:"backend"`
	ScriptsPath         string       `mapstructure:"scripts_path" json:"scripts_path"`
	Notifications       bool         `mapstructure:"notifications" json:"notifications"`
	LogLevel            string       `mapstructure:"log_level" json:"log_level"`
	LogFormat           string       `mapstructure:"log_format" json:"log_format"`
	Hotkeys             HotkeyConfig `mapstructure:"hotkeys" json:"hotkeys"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ScriptKind:          ScriptAuto,
		LTRUnit:             UnitCharacter,
		RTLUnit:             UnitWord,
		StartDelayMs:        3000,
		InterUnitDelayMs:    50,
		ClipboardSettleMs:   50,
		RTLPasteThresholdMs: 20,
		PasteShortcut:       "ctrl+v",
		Backend:             BackendAuto,
		ScriptsPath:         "",
		Notifications:       true,
		LogLevel:            "info",
		LogFormat:           "console",
		Hotkeys: HotkeyConfig{
			Start: "ctrl+shift+f9",
			Pause: "ctrl+shift+f10",
			Stop:  "ctrl+shift+f11",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("script_kind", d.ScriptKind)
	v.SetDefault("ltr_unit", d.LTRUnit)
	v.SetDefault("rtl_unit", d.RTLUnit)
	v.SetDefault("start_delay_ms", d.StartDelayMs)
	v.SetDefault("inter_unit_delay_ms", d.InterUnitDelayMs)
	v.SetDefault("clipboard_settle_ms", d.ClipboardSettleMs)
	v.SetDefault("rtl_paste_threshold_ms", d.RTLPasteThresholdMs)
	v.SetDefault("paste_shortcut", d.PasteShortcut)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("scripts_path", d.ScriptsPath)
	v.SetDefault("notifications", d.Notifications)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("hotkeys.start", d.Hotkeys.Start)
	v.SetDefault("hotkeys.pause", d.Hotkeys.Pause)
	v.SetDefault("hotkeys.stop", d.Hotkeys.Stop)
}

// Load reads path (the default config path when empty) and applies
// KEYTYPER_* environment overrides on top. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("KEYTYPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if cfg.ScriptsPath == "" {
		cfg.ScriptsPath = filepath.Join(filepath.Dir(path), "scripts.json")
	}
	cfg.clamp()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) clamp() {
	for _, ms := range []*int{&c.StartDelayMs, &c.InterUnitDelayMs, &c.ClipboardSettleMs, &c.RTLPasteThresholdMs} {
		if *ms > MaxDelayMs {
			*ms = MaxDelayMs
		}
	}
}

// Validate reports unknown enum values and negative delays.
func (c *Config) Validate() error {
	if !oneOf(c.ScriptKind, ScriptAuto, ScriptLTR, ScriptRTL) {
		return fmt.Errorf("script_kind must be auto, ltr or rtl, got %q", c.ScriptKind)
	}
	if !oneOf(c.LTRUnit, UnitCharacter, UnitWord) {
		return fmt.Errorf("ltr_unit must be character or word, got %q", c.LTRUnit)
	}
	if !oneOf(c.RTLUnit, UnitCharacter, UnitWord, UnitPaste, UnitAuto) {
		return fmt.Errorf("rtl_unit must be character, word, paste or auto, got %q", c.RTLUnit)
	}
	if !oneOf(c.Backend, BackendAuto, BackendXdotool, BackendWtype, BackendYdotool, BackendRobotgo) {
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.StartDelayMs < 0 || c.InterUnitDelayMs < 0 || c.ClipboardSettleMs < 0 || c.RTLPasteThresholdMs < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if strings.TrimSpace(c.PasteShortcut) == "" {
		return fmt.Errorf("paste_shortcut is empty")
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// GetConfigDir returns the keytyper config directory, honouring XDG_CONFIG_HOME
func GetConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "keytyper"), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}
