// Package app wires configuration, history storage, the exercise catalog,
// the camera and the hand detector into practice sessions.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ayusman/signlingo/internal/capture"
	"github.com/ayusman/signlingo/internal/config"
	"github.com/ayusman/signlingo/internal/detector"
	"github.com/ayusman/signlingo/internal/lesson"
	"github.com/ayusman/signlingo/internal/realtime"
	"github.com/ayusman/signlingo/internal/session"
	"github.com/ayusman/signlingo/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	Settings config.Config

	// Store records attempts when set.
	Store *store.Store

	// Catalog overrides the catalog named by Settings.CatalogPath.
	Catalog *lesson.Catalog

	// Source overrides the camera and detector built from Settings.
	Source session.Source

	Logger *slog.Logger
}

// App is the main application that turns exercises into running sessions.
type App struct {
	config  Config
	log     *slog.Logger
	catalog *lesson.Catalog
	source  session.Source
	owned   io.Closer

	mu        sync.Mutex
	recorders []*Recorder
}

// New creates a new App. It loads the exercise catalog and, unless a Source
// is given, sets up the camera and hand detector.
func New(cfg Config) (*App, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		config: cfg,
		log:    logger.With("component", "app"),
	}

	switch {
	case cfg.Catalog != nil:
		a.catalog = cfg.Catalog
	case cfg.Settings.CatalogPath != "":
		catalog, err := lesson.LoadCatalog(cfg.Settings.CatalogPath)
		if err != nil {
			return nil, err
		}
		a.catalog = catalog
	default:
		a.catalog = lesson.DefaultCatalog()
	}

	a.source = cfg.Source
	if a.source == nil {
		src := capture.NewLandmarkSource(capture.NewDevice(capture.DeviceConfigFor(cfg.Settings.CameraID, cfg.Settings.MaxFPS*session.CaptureOversample)), a.newDetector())
		a.source = src
		a.owned = src
	}

	return a, nil
}

// newDetector prefers MediaPipe and falls back to the mock detector.
func (a *App) newDetector() detector.Detector {
	dcfg := detector.DefaultConfig()
	if a.config.Settings.MaxHands > 0 {
		dcfg.MaxHands = a.config.Settings.MaxHands
	}

	mp, err := detector.NewMediaPipeDetector(dcfg)
	if err != nil {
		a.log.Warn("MediaPipe not available, using mock detector", "error", err)
		return detector.NewMockDetector()
	}
	a.log.Info("using MediaPipe hand detection", "max_hands", dcfg.MaxHands)
	return mp
}

// Catalog returns the exercise catalog.
func (a *App) Catalog() *lesson.Catalog {
	return a.catalog
}

// Exercise looks up an exercise by kind and id.
func (a *App) Exercise(kind lesson.Kind, id int) (lesson.Exercise, error) {
	return a.catalog.Find(kind, id)
}

// NewSession builds a session for the exercise with its own realtime
// channel. When a store is configured, the session's attempts are recorded.
func (a *App) NewSession(ex lesson.Exercise) (*session.Session, error) {
	settings := a.config.Settings

	strategy, err := settings.Strategy()
	if err != nil {
		return nil, fmt.Errorf("confirmation strategy: %w", err)
	}

	channel := realtime.New(realtime.Config{
		URL:            settings.ServerURL,
		Policy:         settings.Policy(),
		ConnectTimeout: settings.ConnectTimeout,
		Logger:         a.config.Logger,
	})

	sess := session.New(session.Config{
		Exercise:        ex,
		Source:          a.source,
		Channel:         channel,
		Strategy:        strategy,
		MaxFPS:          settings.MaxFPS,
		TransitionDelay: settings.TransitionDelay,
		RefreshInterval: settings.RefreshInterval,
		Logger:          a.config.Logger,
	})

	if a.config.Store != nil {
		rec := NewRecorder(RecorderConfig{
			Store:    a.config.Store,
			Exercise: ex,
			Policy:   settings.Confirmation.Policy,
			Logger:   a.config.Logger,
		})
		rec.Attach(sess)

		a.mu.Lock()
		a.recorders = append(a.recorders, rec)
		a.mu.Unlock()
	}

	a.log.Info("session created", "session_id", sess.ID(), "kind", ex.Kind, "exercise_id", ex.ID)
	return sess, nil
}

// Close finishes any open attempts and releases the camera and detector the
// app created.
func (a *App) Close() error {
	a.mu.Lock()
	recorders := a.recorders
	a.recorders = nil
	a.mu.Unlock()

	var errs []error
	for _, rec := range recorders {
		errs = append(errs, rec.Close())
	}
	if a.owned != nil {
		errs = append(errs, a.owned.Close())
	}
	return errors.Join(errs...)
}
