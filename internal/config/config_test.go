package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-vcf/internal/config"
)

// TestConstants_Integrity ensures critical constants are not empty or malformed.
func TestConstants_Integrity(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"AppName", config.AppName},
		{"AppID", config.AppID},
		{"Version", config.Version},
		{"UserAgent", config.UserAgent},
		{"ICalVersion", config.ICalVersion},
		{"ICalProdid", config.ICalProdid},
		{"SettingsFileName", config.SettingsFileName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.value, "Critical constant %s should not be empty", tt.name)
		})
	}
}

func TestDefaults_Sanity(t *testing.T) {
	assert.Equal(t, 2000, config.DefaultLeapYear, "Default leap year must be 2000 for consistency")
	assert.Greater(t, config.DefaultMaxLineLength, 0)
	assert.LessOrEqual(t, config.DefaultMaxLineLength, config.MaxLineLengthCeiling)
	assert.NoError(t, config.ValidatePort(config.DefaultPort))
	assert.Contains(t, config.SupportedLanguages, config.DefaultLanguage)
}

func TestUserAgent_Format(t *testing.T) {
	assert.True(t, strings.HasPrefix(config.UserAgent, "Go-VCF/"), "UserAgent must start with AppName/")
}

func TestTimeoutsAndLimits(t *testing.T) {
	t.Parallel()

	assert.Greater(t, config.HTTPTimeout, 0*time.Second, "HTTPTimeout must be positive")
	assert.LessOrEqual(t, config.HTTPTimeout, 2*time.Minute, "HTTPTimeout should not be excessively long")
	assert.Greater(t, config.ShutdownTimeout, 0*time.Second, "ShutdownTimeout must be positive")

	assert.Greater(t, config.MaxHTTPResponseSize, 0, "MaxHTTPResponseSize must be positive")
	assert.Less(t, int64(config.MaxHTTPResponseSize), int64(1*1024*1024*1024), "MaxHTTPResponseSize should stay under 1GB to protect RAM")
}

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.SettingsFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	s, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSettings(), s)

	s, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSettings(), s)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeSettings(t, `
max_line_length: 4096
strict_begin: true
display_name_policy: reject
fold_width: 75
language: fr
server_port: "9000"
database_path: /tmp/contacts.db
reminder_trigger: -PT12H
carddav_url: https://dav.example.com/addressbook/
carddav_user: alice
`)

	s, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4096, s.MaxLineLength)
	assert.True(t, s.StrictBegin)
	assert.Equal(t, config.DisplayNamePolicyReject, s.DisplayNamePolicy)
	assert.Equal(t, 75, s.FoldWidth)
	assert.Equal(t, "fr", s.Language)
	assert.Equal(t, "9000", s.ServerPort)
	assert.Equal(t, "/tmp/contacts.db", s.DatabasePath)
	assert.Equal(t, "-PT12H", s.ReminderTrigger)
	assert.Equal(t, "https://dav.example.com/addressbook/", s.CardDAVURL)
	assert.Equal(t, "alice", s.CardDAVUser)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	s, err := config.Load(writeSettings(t, "strict_begin: true\n"))
	require.NoError(t, err)

	assert.True(t, s.StrictBegin)
	assert.Equal(t, config.DefaultMaxLineLength, s.MaxLineLength)
	assert.Equal(t, config.DisplayNamePolicyLast, s.DisplayNamePolicy)
	assert.Equal(t, config.DefaultLanguage, s.Language)
	assert.Equal(t, config.DefaultPort, s.ServerPort)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"Malformed", "max_line_length: [1, 2", config.ErrSettingsParse},
		{"NegativeLineLength", "max_line_length: -1", config.ErrSettingsLineLen},
		{"HugeLineLength", "max_line_length: 2000000", config.ErrSettingsLineLen},
		{"UnknownPolicy", "display_name_policy: merge", config.ErrSettingsPolicy},
		{"NarrowFold", "fold_width: 3", config.ErrSettingsFold},
		{"UnknownLanguage", "language: de", config.ErrSettingsLanguage},
		{"PortOutOfRange", `server_port: "70000"`, config.ErrPortRange},
		{"PortNotNumber", "server_port: http", config.ErrPortNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeSettings(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_UnreadablePath(t *testing.T) {
	// A directory cannot be read as a file.
	_, err := config.Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrSettingsRead)
}

func TestValidate(t *testing.T) {
	s := config.DefaultSettings()
	require.NoError(t, s.Validate())

	s.FoldWidth = 0
	assert.NoError(t, s.Validate(), "fold width 0 disables folding")

	s.FoldWidth = config.MinFoldWidth
	assert.NoError(t, s.Validate())

	s.ServerPort = ""
	assert.EqualError(t, s.Validate(), config.ErrPortRequired)
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		port string
		want string
	}{
		{"1", ""},
		{"65535", ""},
		{"0", config.ErrPortRange},
		{"65536", config.ErrPortRange},
		{"-5", config.ErrPortRange},
		{"abc", config.ErrPortNumber},
		{"", config.ErrPortRequired},
	}

	for _, tt := range tests {
		err := config.ValidatePort(tt.port)
		if tt.want == "" {
			assert.NoError(t, err, "port %q", tt.port)
			continue
		}
		assert.EqualError(t, err, tt.want, "port %q", tt.port)
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	path := config.DefaultSettingsPath()
	require.NotEmpty(t, path)
	assert.Equal(t, config.SettingsFileName, filepath.Base(path))
	assert.Equal(t, config.AppID, filepath.Base(filepath.Dir(path)))
}
