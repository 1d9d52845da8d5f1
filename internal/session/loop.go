package session

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/signlingo/internal/confirm"
	"github.com/ayusman/signlingo/internal/dispatch"
	"github.com/ayusman/signlingo/internal/lesson"
	"github.com/ayusman/signlingo/internal/realtime"
)

type event any

type (
	predictionEvent   struct{ p dispatch.Prediction }
	serviceErrorEvent struct{ reason string }
	transitionEvent   struct{ gen uint64 }
	resetEvent        struct{}
	retryEvent        struct{}
)

// Run drives the session until ctx is cancelled. It connects the channel,
// loads hand detection, and starts the camera once both are ready. On
// return the capture loop is stopped, the camera released and the channel
// closed normally.
func (s *Session) Run(ctx context.Context) error {
	if s.started.Swap(true) {
		return ErrAlreadyRunning
	}
	defer close(s.done)

	s.ctx = ctx

	unsubscribe := []func(){
		s.channel.WatchState(s.signalChannel),
		s.dispatcher.OnPrediction(func(p dispatch.Prediction) {
			s.post(predictionEvent{p: p})
		}),
		s.dispatcher.OnServiceError(func(reason string) {
			s.post(serviceErrorEvent{reason: reason})
		}),
	}
	defer func() {
		for _, fn := range unsubscribe {
			fn()
		}
		s.dispatcher.Close()
	}()

	s.log.Info("session started",
		"kind", s.config.Exercise.Kind,
		"exercise_id", s.config.Exercise.ID,
		"letters", len(s.config.Exercise.Letters),
	)

	s.startInit()
	s.channel.Connect(ctx)
	s.update()

	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.teardown("session ended")
			s.facts.stopped = true
			s.update()
			s.log.Info("session stopped")
			return nil

		case <-s.channelSig:
			s.facts.channel = s.channel.State()

		case err := <-s.initDone:
			s.initializing = false
			if err != nil {
				s.detectorErr = err
				s.log.Error("hand detection failed to load", "error", err)
			} else {
				s.facts.detectorReady = true
				s.log.Info("hand detection ready")
			}

		case err := <-s.acquired:
			s.cameraResult(err)

		case ev := <-s.events:
			s.handle(ev)

		case <-ticker.C:
			if !s.readoutChanged() {
				continue
			}
		}

		s.update()
	}
}

func (s *Session) handle(ev event) {
	switch ev := ev.(type) {
	case predictionEvent:
		s.observe(ev.p)

	case serviceErrorEvent:
		if s.readiness == Completed || s.readiness == Stopped {
			return
		}
		s.serviceErr = ev.reason

	case transitionEvent:
		if ev.gen != s.transitionGen {
			return
		}
		s.transition = nil
		s.finishTransition()

	case resetEvent:
		s.reset()

	case retryEvent:
		s.retry()
	}
}

// observe feeds one prediction through the confirmation machine.
func (s *Session) observe(p dispatch.Prediction) {
	if s.readiness == Completed || s.readiness == Stopped {
		return
	}

	position := s.sequencer.Progress().CurrentIndex
	d := s.machine.Observe(p)
	if d.Outcome == confirm.OutcomeIgnored {
		return
	}
	s.serviceErr = ""

	if d.Outcome != confirm.OutcomeConfirmed {
		return
	}

	c := Confirmation{Position: position, Letter: d.Letter, Confidence: d.Confidence, At: p.At}
	s.log.Info("letter confirmed", "letter", c.Letter, "position", c.Position, "confidence", c.Confidence)

	s.mu.RLock()
	handlers := make([]func(Confirmation), 0, len(s.onConfirm))
	for _, fn := range s.onConfirm {
		handlers = append(handlers, fn)
	}
	s.mu.RUnlock()
	for _, fn := range handlers {
		fn(c)
	}

	if d.Delay == 0 {
		s.finishTransition()
		return
	}

	gen := s.transitionGen
	s.transition = time.AfterFunc(d.Delay, func() {
		s.post(transitionEvent{gen: gen})
	})
}

// finishTransition hands the confirmed letter to the sequencer and readies
// the machine for the next one.
func (s *Session) finishTransition() {
	outcome, err := s.sequencer.Advance()
	s.machine.FinishTransition()
	if err != nil {
		s.log.Warn("advance", "error", err)
		return
	}

	if outcome == lesson.Finished {
		s.facts.done = true
		return
	}
	letter, _ := s.sequencer.CurrentLetter()
	s.log.Debug("next letter", "letter", letter)
}

func (s *Session) stopTransition() {
	s.transitionGen++
	if s.transition != nil {
		s.transition.Stop()
		s.transition = nil
	}
}

func (s *Session) reset() {
	s.stopTransition()
	s.sequencer.Reset()
	s.machine.Reset()
	s.serviceErr = ""

	if s.facts.done {
		s.facts.done = false
		s.channel.Connect(s.ctx)
		s.facts.channel = s.channel.State()
	}
	s.log.Info("session reset")
}

func (s *Session) retry() {
	if s.facts.cameraErr != nil {
		s.facts.cameraErr = nil
	}
	if s.detectorErr != nil {
		s.detectorErr = nil
		s.startInit()
	}
	if !s.facts.done && s.channel.State() == realtime.Disconnected {
		s.channel.Connect(s.ctx)
		s.facts.channel = s.channel.State()
	}
}

// update applies the readiness rule, runs entry actions, and publishes.
func (s *Session) update() {
	next := nextReadiness(s.facts)
	entered := next != s.readiness
	if entered {
		s.log.Info("readiness changed", "from", s.readiness, "to", next)
		s.readiness = next
		s.enter(next)
	}

	snap := s.publish()

	if entered && next == Completed {
		s.mu.RLock()
		handlers := make([]func(Snapshot), 0, len(s.onComplete))
		for _, fn := range s.onComplete {
			handlers = append(handlers, fn)
		}
		s.mu.RUnlock()
		for _, fn := range handlers {
			fn(snap)
		}
	}
}

func (s *Session) enter(r Readiness) {
	switch r {
	case Ready:
		s.acquire()
	case CaptureActive:
		s.startCapture()
	case Completed:
		s.teardown("exercise complete")
	}
}

func (s *Session) publish() Snapshot {
	snap := s.buildSnapshot()

	s.mu.Lock()
	s.snapshot = snap
	watchers := make([]func(Snapshot), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(snap)
	}
	return snap
}

func (s *Session) readoutChanged() bool {
	if s.readiness != CaptureActive {
		return false
	}
	r := s.machine.Tick(s.now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return r != s.snapshot.Readout
}

func (s *Session) startInit() {
	if s.initializing {
		return
	}
	s.initializing = true
	go func() {
		s.initDone <- s.source.Init()
	}()
}

func (s *Session) acquire() {
	if s.acquiring || s.facts.cameraOpen {
		return
	}
	s.acquiring = true
	go func() {
		s.acquired <- s.source.Acquire()
	}()
}

func (s *Session) cameraResult(err error) {
	s.acquiring = false

	if err != nil {
		s.facts.cameraErr = err
		s.log.Error("camera unavailable", "error", err)
		return
	}
	s.facts.cameraOpen = true

	// Finished or stopped while the camera was opening.
	if s.facts.done || s.facts.stopped {
		s.releaseCamera()
	}
}

func (s *Session) releaseCamera() {
	if !s.facts.cameraOpen {
		return
	}
	if err := s.source.Release(); err != nil {
		s.log.Warn("release camera", "error", err)
	}
	s.facts.cameraOpen = false
}

// teardown stops streaming, releases the camera and closes the channel with
// a normal closure so no reconnect follows.
func (s *Session) teardown(reason string) {
	s.stopTransition()
	s.stopCapture()

	if s.acquiring {
		s.cameraResult(<-s.acquired)
	}
	s.releaseCamera()

	if err := s.channel.Close(reason); err != nil && !errors.Is(err, realtime.ErrClosed) {
		s.log.Warn("close channel", "error", err)
	}
	s.facts.channel = s.channel.State()
}

var _ Channel = (*realtime.Channel)(nil)
