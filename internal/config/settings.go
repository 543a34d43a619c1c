package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Settings holds the user-tunable runtime configuration.
// Zero values are replaced by defaults in Load.
type Settings struct {
	// MaxLineLength bounds one unfolded logical line in bytes.
	MaxLineLength int `yaml:"max_line_length"`

	// StrictBegin rejects non-blank content appearing before BEGIN:VCARD.
	StrictBegin bool `yaml:"strict_begin"`

	// DisplayNamePolicy decides what happens when a record carries several FN lines:
	// "last" (later lines overwrite), "first" (later lines become generic properties)
	// or "reject" (the record is invalid).
	DisplayNamePolicy string `yaml:"display_name_policy"`

	// FoldWidth folds emitted lines longer than this many octets. 0 disables folding.
	FoldWidth int `yaml:"fold_width"`

	Language        string `yaml:"language"`
	ServerPort      string `yaml:"server_port"`
	DatabasePath    string `yaml:"database_path"`
	ReminderTrigger string `yaml:"reminder_trigger"`
	CardDAVURL      string `yaml:"carddav_url"`
	CardDAVUser     string `yaml:"carddav_user"`
}

// DefaultSettings returns the configuration used when no file exists.
func DefaultSettings() *Settings {
	return &Settings{
		MaxLineLength:     DefaultMaxLineLength,
		DisplayNamePolicy: DisplayNamePolicyLast,
		FoldWidth:         DefaultFoldWidth,
		Language:          DefaultLanguage,
		ServerPort:        DefaultPort,
	}
}

// Load reads the YAML settings at path.
// A missing file is not an error: defaults are returned instead.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug(MsgSettingsAbsent, LogKeyComponent, CompConfig, LogKeyFile, path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrSettingsRead, err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrSettingsParse, err)
	}
	s.applyDefaults()

	if err := s.Validate(); err != nil {
		return nil, err
	}

	slog.Debug(MsgSettingsLoaded, LogKeyComponent, CompConfig, LogKeyFile, path)
	return s, nil
}

// DefaultSettingsPath returns the settings location inside the user config dir.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppID, SettingsFileName)
}

// applyDefaults fills fields a settings file left empty.
func (s *Settings) applyDefaults() {
	if s.MaxLineLength == 0 {
		s.MaxLineLength = DefaultMaxLineLength
	}
	if s.DisplayNamePolicy == "" {
		s.DisplayNamePolicy = DisplayNamePolicyLast
	}
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	if s.ServerPort == "" {
		s.ServerPort = DefaultPort
	}
}

// Validate checks the settings for out-of-range values.
func (s *Settings) Validate() error {
	if s.MaxLineLength < 1 || s.MaxLineLength > MaxLineLengthCeiling {
		return fmt.Errorf("%s: %d", ErrSettingsLineLen, s.MaxLineLength)
	}
	switch s.DisplayNamePolicy {
	case DisplayNamePolicyLast, DisplayNamePolicyFirst, DisplayNamePolicyReject:
	default:
		return fmt.Errorf("%s: %q", ErrSettingsPolicy, s.DisplayNamePolicy)
	}
	if s.FoldWidth != 0 && s.FoldWidth < MinFoldWidth {
		return fmt.Errorf("%s: %d", ErrSettingsFold, s.FoldWidth)
	}
	if !slices.Contains(SupportedLanguages, s.Language) {
		return fmt.Errorf("%s: %q", ErrSettingsLanguage, s.Language)
	}
	return ValidatePort(s.ServerPort)
}

// ValidatePort checks that port is a number within the TCP range.
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < MinPort || n > MaxPort {
		return errors.New(ErrPortRange)
	}
	return nil
}
