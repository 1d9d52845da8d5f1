package session

import "time"

// startCapture launches the capture loop. It keeps going while the running
// flag is set and stops itself at the next tick once it is cleared. The loop
// polls at CaptureFPS, above the dispatch cap, so a frame is ready soon after
// the limiter allows the next one.
func (s *Session) startCapture() {
	if s.running.Swap(true) {
		return
	}

	done := make(chan struct{})
	s.captureDone = done

	interval := time.Duration(float64(time.Second) / s.config.CaptureFPS)
	go s.captureLoop(interval, done)

	s.log.Info("capture started", "interval", interval, "max_fps", s.config.MaxFPS)
}

func (s *Session) captureLoop(interval time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if !s.running.Load() {
			return
		}

		hands, err := s.source.Landmarks()
		if err != nil {
			s.log.Debug("capture frame", "error", err)
			continue
		}
		s.dispatcher.SubmitFrame(hands)
	}
}

// stopCapture clears the running flag and waits for the loop to exit.
func (s *Session) stopCapture() {
	if !s.running.Swap(false) {
		return
	}
	<-s.captureDone
	s.captureDone = nil
	s.log.Info("capture stopped")
}
