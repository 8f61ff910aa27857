package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/skythread/internal/bluesky"
	"github.com/starford/skythread/internal/media"
	"github.com/starford/skythread/internal/postservice"
	"github.com/starford/skythread/internal/settings"
	"github.com/starford/skythread/internal/thread"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var hotkeyRe = regexp.MustCompile(`^([a-z]+\+)*[a-z0-9]+$`)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Outline  OutlineConfig     `yaml:"outline"`
	Settings SettingsConfig    `yaml:"settings"`
	Bluesky  BlueskyConfig     `yaml:"bluesky"`
	Media    MediaConfig       `yaml:"media"`
	Auth     AuthConfig        `yaml:"auth"`
	Command  CommandConfig     `yaml:"command"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Outline, &c.Settings, &c.Bluesky, &c.Media, &c.Auth, &c.Command,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// OutlineConfig locates the outline database.
type OutlineConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Validate validates the outline configuration.
func (c *OutlineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SQLitePath, validation.Required),
	)
}

// SettingsConfig locates the settings file.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the settings configuration.
func (c *SettingsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// BlueskyConfig holds the network endpoint and post limits.
type BlueskyConfig struct {
	Service       string        `yaml:"service"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxPostLength int           `yaml:"max_post_length"`
}

// Validate validates the Bluesky configuration.
func (c *BlueskyConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Service, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MaxPostLength, validation.Required, validation.Min(1), validation.Max(thread.MaxPostLength)),
	)
}

// MediaConfig bounds image attachments.
type MediaConfig struct {
	MaxBytes  int64         `yaml:"max_bytes"`
	MaxImages int           `yaml:"max_images"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Validate validates the media configuration.
func (c *MediaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1)), validation.Max(int64(media.DefaultMaxBytes))),
		validation.Field(&c.MaxImages, validation.Required, validation.Min(1), validation.Max(media.DefaultMaxImages)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// CommandConfig describes how the host invokes the post command.
type CommandConfig struct {
	Hotkey string `yaml:"hotkey"`
}

// Validate validates the command configuration.
func (c *CommandConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Hotkey, validation.Required, validation.Match(hotkeyRe)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Outline: OutlineConfig{
			SQLitePath: "./skythread.db",
		},
		Settings: SettingsConfig{
			Path: "./data/" + settings.DefaultFileName,
		},
		Bluesky: BlueskyConfig{
			Service:       bluesky.DefaultHost,
			Timeout:       30 * time.Second,
			MaxPostLength: thread.MaxPostLength,
		},
		Media: MediaConfig{
			MaxBytes:  media.DefaultMaxBytes,
			MaxImages: media.DefaultMaxImages,
			Timeout:   media.DefaultTimeout,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Command: CommandConfig{
			Hotkey: postservice.DefaultHotkey,
		},
	}
}
