package session

import (
	"fmt"

	"github.com/ayusman/signlingo/internal/realtime"
)

// Readiness is where a session is on its way to streaming frames.
type Readiness int

const (
	// Initializing waits for hand detection to load and the channel to connect.
	Initializing Readiness = iota
	// Ready has both and is acquiring the camera.
	Ready
	// CaptureActive is streaming frames.
	CaptureActive
	// CameraFailed could not acquire the camera. Capture never starts until Retry.
	CameraFailed
	// Completed has confirmed every letter.
	Completed
	// Stopped has been torn down.
	Stopped
)

var readinessNames = map[Readiness]string{
	Initializing:  "initializing",
	Ready:         "ready",
	CaptureActive: "capture_active",
	CameraFailed:  "camera_failed",
	Completed:     "completed",
	Stopped:       "stopped",
}

func (r Readiness) String() string {
	if name, ok := readinessNames[r]; ok {
		return name
	}
	return "unknown"
}

func (r Readiness) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Readiness) UnmarshalText(text []byte) error {
	for k, v := range readinessNames {
		if v == string(text) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown readiness %q", text)
}

// Status strings shown to the learner.
const (
	StatusConnecting = "Connecting to server..."
	StatusLoading    = "Loading hand detection..."
	StatusStarting   = "Starting camera..."
	StatusActive     = "Camera active"
	StatusComplete   = "Exercise complete"
	StatusCameraErr  = "Camera unavailable"
	StatusStopped    = "Session ended"
)

// facts are the inputs to the readiness rule.
type facts struct {
	detectorReady bool
	channel       realtime.State
	cameraOpen    bool
	cameraErr     error
	done          bool
	stopped       bool
}

// nextReadiness is the single transition rule for a session.
func nextReadiness(f facts) Readiness {
	switch {
	case f.stopped:
		return Stopped
	case f.done:
		return Completed
	case f.cameraErr != nil:
		return CameraFailed
	case f.cameraOpen:
		return CaptureActive
	case f.detectorReady && f.channel == realtime.Connected:
		return Ready
	default:
		return Initializing
	}
}

// status picks the status line for the current facts.
func status(r Readiness, f facts) string {
	switch r {
	case Stopped:
		return StatusStopped
	case Completed:
		return StatusComplete
	case CameraFailed:
		return StatusCameraErr
	}

	switch {
	case f.channel != realtime.Connected:
		return StatusConnecting
	case !f.detectorReady:
		return StatusLoading
	case !f.cameraOpen:
		return StatusStarting
	default:
		return StatusActive
	}
}
