// Package session runs one pass through a lesson or quiz: it connects the
// realtime channel, starts the camera once everything is ready, and feeds
// predictions through the confirmation machine into the sequencer.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/signlingo/internal/confirm"
	"github.com/ayusman/signlingo/internal/detector"
	"github.com/ayusman/signlingo/internal/dispatch"
	"github.com/ayusman/signlingo/internal/lesson"
	"github.com/ayusman/signlingo/internal/realtime"
)

// Session defaults.
const (
	DefaultRefreshInterval = 50 * time.Millisecond
	DefaultMaxFPS          = dispatch.DefaultMaxFPS

	// CaptureOversample is how many times faster than MaxFPS the camera is
	// polled when CaptureFPS is unset. The dispatcher alone enforces the cap;
	// polling faster keeps detector latency from costing whole frame slots.
	CaptureOversample = 4
)

// ErrAlreadyRunning is returned by Run when the session is already running.
var ErrAlreadyRunning = errors.New("session already running")

// Source produces hand landmarks from the camera. Init loads the detection
// model; Acquire and Release own the camera device.
type Source interface {
	Init() error
	Acquire() error
	Landmarks() ([]detector.HandLandmarks, error)
	Release() error
}

// Channel is the realtime connection the session owns.
type Channel interface {
	dispatch.Sender
	Connect(ctx context.Context)
	Close(reason string) error
	WatchState(fn func(realtime.Event)) func()
	State() realtime.State
	Err() error
}

// Config holds the session configuration.
type Config struct {
	ID              string
	Exercise        lesson.Exercise
	Source          Source
	Channel         Channel
	Strategy        confirm.Strategy
	MaxFPS          float64
	CaptureFPS      float64 // camera polling rate; below MaxFPS means MaxFPS * CaptureOversample
	TransitionDelay time.Duration
	RefreshInterval time.Duration
	Now             func() time.Time
	Logger          *slog.Logger
}

// Confirmation records one confirmed letter.
type Confirmation struct {
	Position   int       `json:"position"`
	Letter     string    `json:"letter"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// Snapshot is the state exposed to the UI.
type Snapshot struct {
	SessionID      string               `json:"session_id"`
	Exercise       lesson.Exercise      `json:"exercise"`
	Readiness      Readiness            `json:"readiness"`
	Channel        string               `json:"channel"`
	ChannelError   string               `json:"channel_error,omitempty"`
	RetryIn        time.Duration        `json:"retry_in,omitempty"`
	Status         string               `json:"status"`
	Error          string               `json:"error,omitempty"`
	Letter         string               `json:"letter,omitempty"`
	Progress       lesson.Progress      `json:"progress"`
	LastPrediction *dispatch.Prediction `json:"last_prediction,omitempty"`
	Readout        confirm.Readout      `json:"readout"`
	Transitioning  bool                 `json:"transitioning"`
	Completed      bool                 `json:"completed"`
	FramesSent     uint64               `json:"frames_sent"`
}

// Session is one active exercise. All progress changes happen on the Run
// goroutine; the other methods are safe to call from anywhere.
type Session struct {
	id         string
	config     Config
	log        *slog.Logger
	now        func() time.Time
	source     Source
	channel    Channel
	dispatcher *dispatch.Dispatcher
	sequencer  *lesson.Sequencer
	machine    *confirm.Machine

	events      chan event
	channelSig  chan struct{}
	initDone    chan error
	acquired    chan error
	done        chan struct{}
	started     atomic.Bool
	running     atomic.Bool
	captureDone chan struct{}

	// Owned by the Run goroutine.
	ctx           context.Context
	facts         facts
	readiness     Readiness
	serviceErr    string
	detectorErr   error
	acquiring     bool
	initializing  bool
	transitionGen uint64
	transition    *time.Timer

	chanMu    sync.Mutex
	chanEvent realtime.Event

	mu         sync.RWMutex
	snapshot   Snapshot
	nextID     int
	watchers   map[int]func(Snapshot)
	onComplete map[int]func(Snapshot)
	onConfirm  map[int]func(Confirmation)
}

// New creates a session. Zero-valued durations take their defaults.
func New(config Config) *Session {
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	if config.MaxFPS <= 0 {
		config.MaxFPS = DefaultMaxFPS
	}
	if config.CaptureFPS < config.MaxFPS {
		config.CaptureFPS = config.MaxFPS * CaptureOversample
	}
	if config.TransitionDelay < 0 {
		config.TransitionDelay = 0
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Strategy == nil {
		config.Strategy = &confirm.Hold{Duration: 3 * time.Second}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	seq := lesson.NewSequencer(config.Exercise)
	dispatcher := dispatch.New(dispatch.Config{
		Sender: config.Channel,
		MaxFPS: config.MaxFPS,
		Now:    config.Now,
		Logger: logger,
	})

	s := &Session{
		id:         config.ID,
		config:     config,
		log:        logger.With("component", "session", "session_id", config.ID),
		now:        config.Now,
		source:     config.Source,
		channel:    config.Channel,
		dispatcher: dispatcher,
		sequencer:  seq,
		machine:    confirm.NewMachine(config.Strategy, seq, config.TransitionDelay),
		events:     make(chan event, 64),
		channelSig: make(chan struct{}, 1),
		initDone:   make(chan error, 1),
		acquired:   make(chan error, 1),
		done:       make(chan struct{}),
		watchers:   make(map[int]func(Snapshot)),
		onComplete: make(map[int]func(Snapshot)),
		onConfirm:  make(map[int]func(Confirmation)),
	}
	s.snapshot = s.buildSnapshot()

	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Exercise returns the exercise this session walks through.
func (s *Session) Exercise() lesson.Exercise {
	return s.config.Exercise
}

// Snapshot returns the latest published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Watch registers fn for every published snapshot. fn runs on the session
// goroutine and must not block.
func (s *Session) Watch(fn func(Snapshot)) func() {
	return s.register(s.watchers, fn)
}

// OnComplete registers fn to run once the last letter is confirmed.
func (s *Session) OnComplete(fn func(Snapshot)) func() {
	return s.register(s.onComplete, fn)
}

// OnConfirm registers fn for each confirmed letter.
func (s *Session) OnConfirm(fn func(Confirmation)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.onConfirm[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.onConfirm, id)
	}
}

func (s *Session) register(m map[int]func(Snapshot), fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	m[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(m, id)
	}
}

// Reset starts the exercise over from the first letter. A completed session
// reconnects and restarts the camera.
func (s *Session) Reset() {
	s.post(resetEvent{})
}

// Retry clears a camera or detector failure and tries again.
func (s *Session) Retry() {
	s.post(retryEvent{})
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// signalChannel coalesces channel state changes into one pending wakeup.
func (s *Session) signalChannel(ev realtime.Event) {
	s.chanMu.Lock()
	s.chanEvent = ev
	s.chanMu.Unlock()

	select {
	case s.channelSig <- struct{}{}:
	default:
	}
}

func (s *Session) lastChannelEvent() realtime.Event {
	s.chanMu.Lock()
	defer s.chanMu.Unlock()
	return s.chanEvent
}

// buildSnapshot assembles the UI state from the loop state.
func (s *Session) buildSnapshot() Snapshot {
	letter, _ := s.sequencer.CurrentLetter()

	snap := Snapshot{
		SessionID:      s.id,
		Exercise:       s.config.Exercise,
		Readiness:      s.readiness,
		Channel:        s.facts.channel.String(),
		Status:         status(s.readiness, s.facts),
		Error:          s.errorText(),
		Letter:         letter,
		Progress:       s.sequencer.Progress(),
		LastPrediction: s.machine.LastPrediction(),
		Readout:        s.machine.Tick(s.now()),
		Transitioning:  s.machine.Transitioning(),
		Completed:      s.sequencer.Completed(),
	}
	if err := s.channel.Err(); err != nil {
		snap.ChannelError = err.Error()
	}
	if ev := s.lastChannelEvent(); ev.State == realtime.Disconnected {
		snap.RetryIn = ev.RetryIn
	}
	snap.FramesSent = s.dispatcher.Stats().Forwarded
	return snap
}

func (s *Session) errorText() string {
	switch {
	case s.facts.cameraErr != nil:
		return s.facts.cameraErr.Error()
	case s.detectorErr != nil:
		return s.detectorErr.Error()
	default:
		return s.serviceErr
	}
}
