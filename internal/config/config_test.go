package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(envName(key), "")
		os.Unsetenv(envName(key))
	}
	for _, name := range legacyEnv {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o600))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://bb.cuhk.edu.cn", cfg.Portal.BaseURL)
	assert.Equal(t, "cuhksz", cfg.Portal.Domain)
	assert.Equal(t, 60*time.Second, cfg.Portal.Timeout)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, "Asia/Shanghai", cfg.Notify.Timezone)
	assert.Equal(t, 8, cfg.Notify.SummaryHour)
	assert.Equal(t, 2*time.Hour, cfg.Notify.UrgentWindow)
	assert.False(t, cfg.Crawl.Calendar)
	assert.Equal(t, 17520*time.Hour, cfg.Crawl.CalendarWindow)
	assert.Equal(t, 30, cfg.Watch.IntervalMinutes)
	assert.Equal(t, 22, cfg.Export.SFTP.Port)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, `
portal:
  username: alice
  timeout: 15s
mail:
  host: smtp.example.com
  port: 587
  receivers: "a@example.com, b@example.com"
notify:
  urgent_window: 90m
watch:
  interval_minutes: 15
  aligned: true
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Portal.Username)
	assert.Equal(t, 15*time.Second, cfg.Portal.Timeout)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Mail.ReceiverList())
	assert.Equal(t, 90*time.Minute, cfg.Notify.UrgentWindow)
	assert.Equal(t, 15*time.Minute, cfg.WatchInterval())
	assert.Equal(t, "https://bb.cuhk.edu.cn", cfg.Portal.BaseURL, "unset keys keep defaults")
	require.NoError(t, cfg.Validate())
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, "portal: [unclosed\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, "portal:\n  username: from-file\n")

	t.Setenv("BB_USERNAME", "legacy-user")
	t.Setenv("BB_PASSWORD", "legacy-pass")
	t.Setenv("EMAIL_RECEIVER", "x@example.com")
	t.Setenv("NOTIFY_INTERVAL", "10")
	t.Setenv("COURSEWATCH_NOTIFY_SUMMARY_HOUR", "20")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "legacy-user", cfg.Portal.Username, "environment overrides file")
	assert.Equal(t, "legacy-pass", cfg.Portal.Password)
	assert.Equal(t, []string{"x@example.com"}, cfg.Mail.ReceiverList())
	assert.Equal(t, 10, cfg.Watch.IntervalMinutes)
	assert.Equal(t, 20, cfg.Notify.SummaryHour)
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("BB_USERNAME", "legacy")
	t.Setenv("COURSEWATCH_PORTAL_USERNAME", "prefixed")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Portal.Username)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Portal: PortalConfig{BaseURL: "https://bb", AuthURL: "https://sts"},
			Notify: NotifyConfig{Timezone: "Asia/Shanghai", SummaryHour: 8},
			Watch:  WatchConfig{IntervalMinutes: 30},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{"valid", func(*Config) {}, nil},
		{"zero interval", func(c *Config) { c.Watch.IntervalMinutes = 0 }, ErrInvalidInterval},
		{"aligned divides 60", func(c *Config) { c.Watch.Aligned = true; c.Watch.IntervalMinutes = 20 }, nil},
		{"aligned does not divide 60", func(c *Config) { c.Watch.Aligned = true; c.Watch.IntervalMinutes = 25 }, ErrUnalignedGrid},
		{"unaligned any interval", func(c *Config) { c.Watch.IntervalMinutes = 25 }, nil},
		{"bad timezone", func(c *Config) { c.Notify.Timezone = "Mars/Olympus" }, ErrInvalidTimezone},
		{"hour too large", func(c *Config) { c.Notify.SummaryHour = 24 }, ErrInvalidHour},
		{"missing base url", func(c *Config) { c.Portal.BaseURL = "" }, ErrInvalidPortalURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRequirements(t *testing.T) {
	var cfg Config
	assert.ErrorIs(t, cfg.RequirePortal(), ErrMissingPortal)
	assert.ErrorIs(t, cfg.RequireMail(), ErrMissingMail)
	assert.ErrorIs(t, cfg.RequireSFTP(), ErrMissingSFTPHost)

	cfg.Portal.Username, cfg.Portal.Password = "u", "p"
	cfg.Mail.Host = "smtp"
	cfg.Mail.Receivers = " , "
	cfg.Export.SFTP.Host = "sftp"
	assert.NoError(t, cfg.RequirePortal())
	assert.ErrorIs(t, cfg.RequireMail(), ErrMissingMail, "blank receivers do not count")
	assert.NoError(t, cfg.RequireSFTP())

	cfg.Mail.Receivers = "a@example.com"
	assert.NoError(t, cfg.RequireMail())
}

func TestWriteDefault(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "conf")

	written, err := WriteDefault(dir, "/var/lib/coursewatch")
	require.NoError(t, err)
	assert.True(t, written)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/coursewatch", cfg.DataDir)
	assert.Equal(t, 2*time.Hour, cfg.Notify.UrgentWindow)
	assert.Equal(t, 60*time.Second, cfg.Portal.Timeout)
	require.NoError(t, cfg.Validate())

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("watch:\n  interval_minutes: 5\n"), 0o600))
	written, err = WriteDefault(dir, "")
	require.NoError(t, err)
	assert.False(t, written, "existing file is left alone")

	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Watch.IntervalMinutes)
}
