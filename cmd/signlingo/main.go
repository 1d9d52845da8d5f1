// Package main provides the CLI entrypoint for signlingo.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/signlingo/internal/app"
	"github.com/ayusman/signlingo/internal/config"
	"github.com/ayusman/signlingo/internal/lesson"
	"github.com/ayusman/signlingo/internal/store"
)

var (
	flagConfigPath   string
	flagServerURL    string
	flagMaxFPS       float64
	flagPolicy       string
	flagStreak       int
	flagHold         time.Duration
	flagTransition   time.Duration
	flagCameraID     int
	flagDBPath       string
	flagCatalogPath  string
	flagLogLevel     string
	flagNoHistory    bool
	flagListenAddr   string
	flagStaticDir    string
	flagHistoryLimit int
	flagHistoryStats bool
	flagPlain        bool
	flagTrayServe    bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	d := config.Default()

	rootCmd := &cobra.Command{
		Use:           "signlingo",
		Short:         "Practice ASL fingerspelling with live hand tracking",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigPath, "config", config.DefaultConfigPath(), "config file path")
	pf.StringVar(&flagServerURL, "server-url", d.ServerURL, "prediction service WebSocket URL (env "+config.EnvServerURL+")")
	pf.Float64Var(&flagMaxFPS, "max-fps", d.MaxFPS, "maximum landmark frames sent per second")
	pf.StringVar(&flagPolicy, "policy", d.Confirmation.Policy, "confirmation policy: streak or hold")
	pf.IntVar(&flagStreak, "streak", d.Confirmation.StreakThreshold, "matching predictions needed with the streak policy")
	pf.DurationVar(&flagHold, "hold", d.Confirmation.HoldDuration, "how long to hold a sign with the hold policy")
	pf.DurationVar(&flagTransition, "transition", d.TransitionDelay, "pause after a confirmed letter")
	pf.IntVar(&flagCameraID, "camera", d.CameraID, "camera device id")
	pf.StringVar(&flagDBPath, "db", d.DBPath, "history database path")
	pf.StringVar(&flagCatalogPath, "catalog", "", "custom exercise catalog (YAML)")
	pf.StringVar(&flagLogLevel, "log-level", d.LogLevel, "log level: debug, info, warn, error")
	pf.BoolVar(&flagNoHistory, "no-history", false, "do not record attempts")

	rootCmd.AddCommand(newPracticeCmd())
	rootCmd.AddCommand(newTrayCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExercisesCmd(lesson.KindLesson))
	rootCmd.AddCommand(newExercisesCmd(lesson.KindQuiz))
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// loadSettings resolves defaults, the config file, the environment, and
// finally any flags set on the command line.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	applyFlag(cmd, "server-url", &cfg.ServerURL, flagServerURL)
	applyFlag(cmd, "max-fps", &cfg.MaxFPS, flagMaxFPS)
	applyFlag(cmd, "policy", &cfg.Confirmation.Policy, flagPolicy)
	applyFlag(cmd, "streak", &cfg.Confirmation.StreakThreshold, flagStreak)
	applyFlag(cmd, "hold", &cfg.Confirmation.HoldDuration, flagHold)
	applyFlag(cmd, "transition", &cfg.TransitionDelay, flagTransition)
	applyFlag(cmd, "camera", &cfg.CameraID, flagCameraID)
	applyFlag(cmd, "db", &cfg.DBPath, flagDBPath)
	applyFlag(cmd, "catalog", &cfg.CatalogPath, flagCatalogPath)
	applyFlag(cmd, "log-level", &cfg.LogLevel, flagLogLevel)
	applyFlag(cmd, "addr", &cfg.ListenAddr, flagListenAddr)
	applyFlag(cmd, "static", &cfg.StaticDir, flagStaticDir)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// applyFlag overrides target with value when the flag was set explicitly.
func applyFlag[T any](cmd *cobra.Command, name string, target *T, value T) {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

// newLogger builds the process logger writing text records to w.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// openLogFile opens the log file used while a full-screen UI owns the terminal.
func openLogFile() (*os.File, error) {
	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// parseExercise reads "<lesson|quiz> <id>" arguments.
func parseExercise(args []string) (lesson.Kind, int, error) {
	if len(args) != 2 {
		return "", 0, fmt.Errorf("expected <lesson|quiz> <id>, got %d arguments", len(args))
	}
	kind, err := lesson.ParseKind(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.Atoi(args[1])
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid %s id %q", kind, args[1])
	}
	return kind, id, nil
}

// environment holds what every session-running command needs.
type environment struct {
	settings config.Config
	log      *slog.Logger
	store    *store.Store
	app      *app.App
}

func openEnvironment(settings config.Config, logger *slog.Logger, withHistory bool) (*environment, error) {
	env := &environment{settings: settings, log: logger}

	if withHistory {
		st, err := store.New(settings.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		env.store = st
	}

	a, err := app.New(app.Config{
		Settings: settings,
		Store:    env.store,
		Logger:   logger,
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	env.app = a
	return env, nil
}

func (e *environment) Close() {
	if e.app != nil {
		if err := e.app.Close(); err != nil {
			e.log.Warn("failed to shut down app", "error", err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warn("failed to close db", "error", err)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
