package detector

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// Detector finds hands in camera frames.
type Detector interface {
	// Init loads the hand-pose model. It may block for a while and runs
	// before the first Detect.
	Init() error

	// Detect returns the landmarks of every hand found in frame, or an empty
	// slice when there are none.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	Close() error
}

// Config tunes the hand landmarker. Both thresholds are in [0, 1].
type Config struct {
	MaxHands        int
	MinConfidence   float64
	MinTrackingConf float64

	// ExchangeTimeout bounds one frame round trip with the helper process.
	// Zero means DefaultExchangeTimeout.
	ExchangeTimeout time.Duration
}

// DefaultExchangeTimeout is how long Detect waits for the helper to answer.
const DefaultExchangeTimeout = 5 * time.Second

// MaxSupportedHands is the largest MaxHands the landmarker accepts.
const MaxSupportedHands = 4

// DefaultConfig tracks up to two hands, matching what the prediction
// service expects per frame.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		ExchangeTimeout: DefaultExchangeTimeout,
	}
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.MaxHands < 1 || c.MaxHands > MaxSupportedHands:
		return fmt.Errorf("max hands must be between 1 and %d, got %d", MaxSupportedHands, c.MaxHands)
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return fmt.Errorf("min detection confidence must be in [0, 1], got %g", c.MinConfidence)
	case c.MinTrackingConf < 0 || c.MinTrackingConf > 1:
		return fmt.Errorf("min tracking confidence must be in [0, 1], got %g", c.MinTrackingConf)
	case c.ExchangeTimeout < 0:
		return fmt.Errorf("exchange timeout must not be negative, got %s", c.ExchangeTimeout)
	}
	return nil
}
