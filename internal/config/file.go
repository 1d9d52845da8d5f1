package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration written as a string such as "1.5s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// FileConfig represents the TOML configuration file. Absent keys are nil and
// keep their defaults.
type FileConfig struct {
	ServerURL       *string          `toml:"server_url"`
	ConnectTimeout  *Duration        `toml:"connect_timeout"`
	MaxFPS          *float64         `toml:"max_fps"`
	TransitionDelay *Duration        `toml:"transition_delay"`
	RefreshInterval *Duration        `toml:"refresh_interval"`
	LogLevel        *string          `toml:"log_level"`
	Reconnect       ReconnectFile    `toml:"reconnect"`
	Confirmation    ConfirmationFile `toml:"confirmation"`
	Camera          CameraFile       `toml:"camera"`
	Storage         StorageFile      `toml:"storage"`
	Server          ServerFile       `toml:"server"`
}

// ReconnectFile maps the [reconnect] table.
type ReconnectFile struct {
	Policy    *string   `toml:"policy"`
	BaseDelay *Duration `toml:"base_delay"`
	Factor    *float64  `toml:"factor"`
	MaxDelay  *Duration `toml:"max_delay"`
}

// ConfirmationFile maps the [confirmation] table.
type ConfirmationFile struct {
	Policy          *string   `toml:"policy"`
	StreakThreshold *int      `toml:"streak_threshold"`
	HoldDuration    *Duration `toml:"hold_duration"`
}

// CameraFile maps the [camera] table.
type CameraFile struct {
	ID       *int `toml:"id"`
	MaxHands *int `toml:"max_hands"`
}

// StorageFile maps the [storage] table.
type StorageFile struct {
	DBPath      *string `toml:"db_path"`
	CatalogPath *string `toml:"catalog_path"`
}

// ServerFile maps the [server] table.
type ServerFile struct {
	ListenAddr *string `toml:"listen_addr"`
	StaticDir  *string `toml:"static_dir"`
}

func (f FileConfig) apply(c *Config) {
	setValue(&c.ServerURL, f.ServerURL)
	setDuration(&c.ConnectTimeout, f.ConnectTimeout)
	setValue(&c.MaxFPS, f.MaxFPS)
	setDuration(&c.TransitionDelay, f.TransitionDelay)
	setDuration(&c.RefreshInterval, f.RefreshInterval)
	setValue(&c.LogLevel, f.LogLevel)

	setValue(&c.Reconnect.Policy, f.Reconnect.Policy)
	setDuration(&c.Reconnect.BaseDelay, f.Reconnect.BaseDelay)
	setValue(&c.Reconnect.Factor, f.Reconnect.Factor)
	setDuration(&c.Reconnect.MaxDelay, f.Reconnect.MaxDelay)

	setValue(&c.Confirmation.Policy, f.Confirmation.Policy)
	setValue(&c.Confirmation.StreakThreshold, f.Confirmation.StreakThreshold)
	setDuration(&c.Confirmation.HoldDuration, f.Confirmation.HoldDuration)

	setValue(&c.CameraID, f.Camera.ID)
	setValue(&c.MaxHands, f.Camera.MaxHands)

	setValue(&c.DBPath, f.Storage.DBPath)
	setValue(&c.CatalogPath, f.Storage.CatalogPath)

	setValue(&c.ListenAddr, f.Server.ListenAddr)
	setValue(&c.StaticDir, f.Server.StaticDir)
}

func setValue[T any](target *T, value *T) {
	if value != nil {
		*target = *value
	}
}

func setDuration(target *time.Duration, value *Duration) {
	if value != nil {
		*target = value.Duration
	}
}

// Template returns a commented config file listing every key with its
// default value.
func Template() string {
	d := Default()
	return fmt.Sprintf(`# signlingo configuration
# Uncomment a value to enable it. CLI flags override config values.
# %s overrides server_url.

# server_url = %q
# connect_timeout = %q
# max_fps = %.1f
# transition_delay = %q
# refresh_interval = %q
# log_level = %q

[reconnect]
# policy = %q        # "fixed" or "exponential"
# base_delay = %q
# factor = %v
# max_delay = %q

[confirmation]
# policy = %q        # "streak" or "hold"
# streak_threshold = %d
# hold_duration = %q

[camera]
# id = %d
# max_hands = %d

[storage]
# db_path = %q
# catalog_path = ""   # YAML file replacing the built-in lessons and quizzes

[server]
# listen_addr = %q
# static_dir = ""
`,
		EnvServerURL,
		d.ServerURL,
		d.ConnectTimeout,
		d.MaxFPS,
		d.TransitionDelay,
		d.RefreshInterval,
		d.LogLevel,
		d.Reconnect.Policy,
		d.Reconnect.BaseDelay,
		d.Reconnect.Factor,
		d.Reconnect.MaxDelay,
		d.Confirmation.Policy,
		d.Confirmation.StreakThreshold,
		d.Confirmation.HoldDuration,
		d.CameraID,
		d.MaxHands,
		d.DBPath,
		d.ListenAddr,
	)
}
