// Package dispatch paces landmark frames onto the realtime channel and turns
// inbound prediction messages into normalized predictions.
package dispatch

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ayusman/signlingo/internal/detector"
	"github.com/ayusman/signlingo/internal/realtime"
)

// DefaultMaxFPS is the default cap on forwarded frames per second.
const DefaultMaxFPS = 10

// Sender is the part of realtime.Channel the dispatcher needs.
type Sender interface {
	Send(v any) bool
	Subscribe(fn func(realtime.PredictionMessage)) func()
}

// Config holds the dispatcher configuration. MaxFPS <= 0 disables the cap.
type Config struct {
	Sender Sender
	MaxFPS float64
	Now    func() time.Time
	Logger *slog.Logger
}

// Prediction is a normalized letter prediction: trimmed, uppercased, with the
// time it was received.
type Prediction struct {
	Letter     string    `json:"letter"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// Stats counts what happened to submitted frames and inbound messages.
type Stats struct {
	Forwarded     uint64
	Throttled     uint64
	Empty         uint64
	Unsent        uint64
	Predictions   uint64
	NoLetter      uint64
	ServiceErrors uint64
}

// Dispatcher forwards at most MaxFPS frames per second. Frames that arrive
// faster are dropped, never queued.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
	now     func() time.Time
	log     *slog.Logger

	unsubscribe func()
	closed      atomic.Bool

	mu          sync.RWMutex
	nextID      int
	predictions map[int]func(Prediction)
	errorSubs   map[int]func(string)

	forwarded, throttled, empty, unsent   atomic.Uint64
	received, noLetter, serviceErrorCount atomic.Uint64
}

// New creates a Dispatcher and subscribes it to config.Sender.
func New(config Config) *Dispatcher {
	now := config.Now
	if now == nil {
		now = time.Now
	}

	limit := rate.Inf
	if config.MaxFPS > 0 {
		limit = rate.Limit(config.MaxFPS)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sender:      config.Sender,
		limiter:     rate.NewLimiter(limit, 1),
		now:         now,
		log:         logger.With("component", "dispatch"),
		predictions: make(map[int]func(Prediction)),
		errorSubs:   make(map[int]func(string)),
	}
	d.unsubscribe = config.Sender.Subscribe(d.handle)

	return d
}

// SubmitFrame forwards the hands detected in one video frame if the rate cap
// allows it. It reports whether the frame was handed to the channel. Frames
// without hands are never sent.
func (d *Dispatcher) SubmitFrame(hands []detector.HandLandmarks) bool {
	if d.closed.Load() {
		return false
	}
	if len(hands) == 0 {
		d.empty.Add(1)
		return false
	}
	if !d.limiter.AllowN(d.now(), 1) {
		d.throttled.Add(1)
		return false
	}

	if !d.sender.Send(detector.Frame(hands)) {
		d.unsent.Add(1)
		return false
	}
	d.forwarded.Add(1)
	return true
}

// OnPrediction registers fn for every normalized prediction. Messages that
// carry no letter and service errors are not delivered here.
func (d *Dispatcher) OnPrediction(fn func(Prediction)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.predictions[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.predictions, id)
	}
}

// OnServiceError registers fn for error messages reported by the service.
func (d *Dispatcher) OnServiceError(fn func(string)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.errorSubs[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.errorSubs, id)
	}
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Forwarded:     d.forwarded.Load(),
		Throttled:     d.throttled.Load(),
		Empty:         d.empty.Load(),
		Unsent:        d.unsent.Load(),
		Predictions:   d.received.Load(),
		NoLetter:      d.noLetter.Load(),
		ServiceErrors: d.serviceErrorCount.Load(),
	}
}

// Close detaches the dispatcher from the channel. Later frames are dropped.
func (d *Dispatcher) Close() {
	if d.closed.Swap(true) {
		return
	}
	d.unsubscribe()
}

func (d *Dispatcher) handle(msg realtime.PredictionMessage) {
	if d.closed.Load() {
		return
	}

	if msg.IsError() {
		d.serviceErrorCount.Add(1)
		d.log.Warn("prediction service error", "error", msg.Error)

		d.mu.RLock()
		subs := make([]func(string), 0, len(d.errorSubs))
		for _, fn := range d.errorSubs {
			subs = append(subs, fn)
		}
		d.mu.RUnlock()

		for _, fn := range subs {
			fn(msg.Error)
		}
		return
	}

	letter := Normalize(msg.Letter)
	if !msg.HasLetter || letter == "" {
		d.noLetter.Add(1)
		return
	}

	d.received.Add(1)
	p := Prediction{Letter: letter, Confidence: msg.Confidence, At: d.now()}

	d.mu.RLock()
	subs := make([]func(Prediction), 0, len(d.predictions))
	for _, fn := range d.predictions {
		subs = append(subs, fn)
	}
	d.mu.RUnlock()

	for _, fn := range subs {
		fn(p)
	}
}

// Normalize trims surrounding whitespace and uppercases a predicted letter.
func Normalize(letter string) string {
	return strings.ToUpper(strings.TrimSpace(letter))
}
