// Package config holds the application configuration: built-in defaults,
// an optional TOML file, and the SIGNLINGO_WS_URL environment override.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/signlingo/internal/confirm"
	"github.com/ayusman/signlingo/internal/detector"
	"github.com/ayusman/signlingo/internal/realtime"
)

// EnvServerURL overrides the prediction service URL.
const EnvServerURL = "SIGNLINGO_WS_URL"

// Reconnect policy names.
const (
	PolicyFixed       = "fixed"
	PolicyExponential = "exponential"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the resolved application configuration.
type Config struct {
	ServerURL       string
	Reconnect       Reconnect
	ConnectTimeout  time.Duration
	MaxFPS          float64
	Confirmation    Confirmation
	TransitionDelay time.Duration
	RefreshInterval time.Duration
	CameraID        int
	MaxHands        int
	DBPath          string
	CatalogPath     string
	ListenAddr      string
	StaticDir       string
	LogLevel        string
}

// Reconnect configures the channel's reconnect policy.
type Reconnect struct {
	Policy    string
	BaseDelay time.Duration
	Factor    float64
	MaxDelay  time.Duration
}

// Confirmation configures how a letter is confirmed.
type Confirmation struct {
	Policy          string
	StreakThreshold int
	HoldDuration    time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL: realtime.DefaultURL,
		Reconnect: Reconnect{
			Policy:    PolicyExponential,
			BaseDelay: time.Second,
			Factor:    1.5,
			MaxDelay:  30 * time.Second,
		},
		ConnectTimeout: realtime.DefaultConnectTimeout,
		MaxFPS:         10,
		Confirmation: Confirmation{
			Policy:          confirm.PolicyHold,
			StreakThreshold: 10,
			HoldDuration:    3 * time.Second,
		},
		TransitionDelay: confirm.DefaultTransitionDelay,
		RefreshInterval: 50 * time.Millisecond,
		MaxHands:        2,
		DBPath:          DefaultDBPath(),
		ListenAddr:      ":8080",
		LogLevel:        "info",
	}
}

// Load resolves the configuration from defaults, the TOML file at path (a
// missing file is not an error), and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		file.apply(&cfg)
	}

	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		cfg.ServerURL = v
	}

	return cfg, nil
}

// Validate checks every value and wraps failures in ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	u, err := url.Parse(c.ServerURL)
	switch {
	case err != nil:
		fail("server_url: %v", err)
	case u.Scheme != "ws" && u.Scheme != "wss":
		fail("server_url: scheme must be ws or wss, got %q", u.Scheme)
	case u.Host == "":
		fail("server_url: missing host")
	}

	switch c.Reconnect.Policy {
	case PolicyFixed, PolicyExponential:
	default:
		fail("reconnect.policy: unknown policy %q", c.Reconnect.Policy)
	}
	if c.Reconnect.BaseDelay <= 0 {
		fail("reconnect.base_delay must be positive")
	}
	if c.Reconnect.Policy == PolicyExponential {
		if c.Reconnect.Factor < 1 {
			fail("reconnect.factor must be at least 1, got %v", c.Reconnect.Factor)
		}
		if c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
			fail("reconnect.max_delay %s is below base_delay %s", c.Reconnect.MaxDelay, c.Reconnect.BaseDelay)
		}
	}

	if c.ConnectTimeout <= 0 {
		fail("connect_timeout must be positive")
	}
	if c.MaxFPS <= 0 {
		fail("max_fps must be positive")
	}

	switch c.Confirmation.Policy {
	case confirm.PolicyStreak:
		if c.Confirmation.StreakThreshold <= 0 {
			fail("confirmation.streak_threshold must be positive")
		}
	case confirm.PolicyHold:
		if c.Confirmation.HoldDuration <= 0 {
			fail("confirmation.hold_duration must be positive")
		}
	default:
		fail("confirmation.policy: unknown policy %q", c.Confirmation.Policy)
	}

	if c.TransitionDelay < 0 {
		fail("transition_delay must not be negative")
	}
	if c.RefreshInterval <= 0 {
		fail("refresh_interval must be positive")
	}
	if c.MaxHands <= 0 || c.MaxHands > detector.MaxSupportedHands {
		fail("camera.max_hands must be between 1 and %d", detector.MaxSupportedHands)
	}
	if c.CameraID < 0 {
		fail("camera.id must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		fail("log_level: %v", err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Policy builds the reconnect policy.
func (c Config) Policy() realtime.Policy {
	if c.Reconnect.Policy == PolicyFixed {
		return realtime.Fixed{Interval: c.Reconnect.BaseDelay}
	}
	return realtime.Exponential{
		Base:   c.Reconnect.BaseDelay,
		Factor: c.Reconnect.Factor,
		Max:    c.Reconnect.MaxDelay,
	}
}

// Strategy builds a fresh confirmation strategy. Each session needs its own.
func (c Config) Strategy() (confirm.Strategy, error) {
	return confirm.NewStrategy(c.Confirmation.Policy, c.Confirmation.StreakThreshold, c.Confirmation.HoldDuration)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, err
	}
	return level, nil
}

// LoadFile reads the TOML file at path. A missing file yields an empty
// FileConfig.
func LoadFile(path string) (FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}

	var file FileConfig
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
	}
	return file, nil
}
