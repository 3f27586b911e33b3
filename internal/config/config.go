// Package config loads coursewatch settings from config.yaml and the
// environment using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	// FileName is the config file inside the config directory.
	FileName = "config.yaml"

	envPrefix = "COURSEWATCH"
)

// Validation errors.
var (
	ErrInvalidInterval  = errors.New("watch interval must be a positive number of minutes")
	ErrUnalignedGrid    = errors.New("aligned watch interval must divide 60")
	ErrInvalidTimezone  = errors.New("invalid notify timezone")
	ErrInvalidHour      = errors.New("summary hour must be within 0-23")
	ErrMissingPortal    = errors.New("portal username and password are required")
	ErrMissingMail      = errors.New("mail host and receivers are required")
	ErrMissingSFTPHost  = errors.New("export.sftp.host is required for upload")
	ErrInvalidPortalURL = errors.New("portal base_url and auth_url are required")
)

// Config is the full settings tree.
type Config struct {
	DataDir string       `mapstructure:"data_dir"`
	Portal  PortalConfig `mapstructure:"portal"`
	Mail    MailConfig   `mapstructure:"mail"`
	Notify  NotifyConfig `mapstructure:"notify"`
	Crawl   CrawlConfig  `mapstructure:"crawl"`
	Watch   WatchConfig  `mapstructure:"watch"`
	Export  ExportConfig `mapstructure:"export"`
}

type PortalConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	AuthURL     string        `mapstructure:"auth_url"`
	ClientID    string        `mapstructure:"client_id"`
	RedirectURI string        `mapstructure:"redirect_uri"`
	Domain      string        `mapstructure:"domain"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	// Receivers is a comma-separated address list.
	Receivers string `mapstructure:"receivers"`
}

// ReceiverList splits Receivers, dropping blanks.
func (m MailConfig) ReceiverList() []string {
	var out []string
	for _, r := range strings.Split(m.Receivers, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

type NotifyConfig struct {
	Timezone     string        `mapstructure:"timezone"`
	SummaryHour  int           `mapstructure:"summary_hour"`
	UrgentWindow time.Duration `mapstructure:"urgent_window"`
	NewContent   bool          `mapstructure:"new_content"`
}

type CrawlConfig struct {
	Calendar       bool          `mapstructure:"calendar"`
	CalendarWindow time.Duration `mapstructure:"calendar_window"`
}

type WatchConfig struct {
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	Aligned         bool `mapstructure:"aligned"`
}

type ExportConfig struct {
	SFTP SFTPConfig `mapstructure:"sftp"`
}

type SFTPConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	RemoteDir string `mapstructure:"remote_dir"`
	// HostKey is an authorized_keys line pinning the server key.
	HostKey string `mapstructure:"host_key"`
}

// defaults lists every key so that AutomaticEnv can see it.
var defaults = map[string]any{
	"data_dir":               "",
	"portal.base_url":        "https://bb.cuhk.edu.cn",
	"portal.auth_url":        "https://sts.cuhk.edu.cn/adfs/oauth2/authorize",
	"portal.client_id":       "4b71b947-7b0d-4611-b47e-0ec37aabfd5e",
	"portal.redirect_uri":    "https://bb.cuhk.edu.cn/webapps/bb-SSOIntegrationOAuth2-BBLEARN/authValidate/getCode",
	"portal.domain":          "cuhksz",
	"portal.username":        "",
	"portal.password":        "",
	"portal.timeout":         "60s",
	"mail.host":              "",
	"mail.port":              465,
	"mail.username":          "",
	"mail.password":          "",
	"mail.from":              "",
	"mail.receivers":         "",
	"notify.timezone":        "Asia/Shanghai",
	"notify.summary_hour":    8,
	"notify.urgent_window":   "2h",
	"notify.new_content":     false,
	"crawl.calendar":         false,
	"crawl.calendar_window":  "17520h",
	"watch.interval_minutes": 30,
	"watch.aligned":          false,
	"export.sftp.host":       "",
	"export.sftp.port":       22,
	"export.sftp.user":       "",
	"export.sftp.password":   "",
	"export.sftp.remote_dir": ".",
	"export.sftp.host_key":   "",
}

// legacyEnv maps keys to the environment names used by earlier deployments.
var legacyEnv = map[string]string{
	"portal.username":        "BB_USERNAME",
	"portal.password":        "BB_PASSWORD",
	"mail.host":              "EMAIL_SERVER",
	"mail.port":              "EMAIL_PORT",
	"mail.username":          "EMAIL_USERNAME",
	"mail.password":          "EMAIL_PASSWORD",
	"mail.receivers":         "EMAIL_RECEIVER",
	"watch.interval_minutes": "NOTIFY_INTERVAL",
}

// Load reads configDir/config.yaml, then the environment. A missing file is
// not an error. COURSEWATCH_<KEY> variables (dots become underscores) win
// over the legacy names.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	if configDir != "" {
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key := range defaults {
		names := []string{envName(key)}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, legacy)
		}
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if c.Watch.IntervalMinutes <= 0 {
		return ErrInvalidInterval
	}
	if c.Watch.Aligned && 60%c.Watch.IntervalMinutes != 0 {
		return fmt.Errorf("%w: %d", ErrUnalignedGrid, c.Watch.IntervalMinutes)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Notify.SummaryHour < 0 || c.Notify.SummaryHour > 23 {
		return ErrInvalidHour
	}
	if c.Portal.BaseURL == "" || c.Portal.AuthURL == "" {
		return ErrInvalidPortalURL
	}
	return nil
}

// RequirePortal checks the portal credentials needed to crawl.
func (c *Config) RequirePortal() error {
	if c.Portal.Username == "" || c.Portal.Password == "" {
		return ErrMissingPortal
	}
	return nil
}

// RequireMail checks the settings needed to send mail.
func (c *Config) RequireMail() error {
	if c.Mail.Host == "" || len(c.Mail.ReceiverList()) == 0 {
		return ErrMissingMail
	}
	return nil
}

// RequireSFTP checks the settings needed to upload exports.
func (c *Config) RequireSFTP() error {
	if c.Export.SFTP.Host == "" {
		return ErrMissingSFTPHost
	}
	return nil
}

// Location loads the notification time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, c.Notify.Timezone, err)
	}
	return loc, nil
}

// WatchInterval returns the polling interval.
func (c *Config) WatchInterval() time.Duration {
	return time.Duration(c.Watch.IntervalMinutes) * time.Minute
}

// WriteDefault writes a default config.yaml into configDir
// unless one exists. It reports whether a file was written.
func WriteDefault(configDir, dataDir string) (bool, error) {
	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(defaultFile(dataDir))
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
