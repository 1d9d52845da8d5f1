package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ayusman/signlingo/internal/realtime"
)

func TestNextReadiness(t *testing.T) {
	tests := []struct {
		name  string
		facts facts
		want  Readiness
	}{
		{name: "nothing ready", facts: facts{}, want: Initializing},
		{name: "detector only", facts: facts{detectorReady: true}, want: Initializing},
		{name: "channel only", facts: facts{channel: realtime.Connected}, want: Initializing},
		{name: "both ready", facts: facts{detectorReady: true, channel: realtime.Connected}, want: Ready},
		{name: "camera open", facts: facts{detectorReady: true, channel: realtime.Connected, cameraOpen: true}, want: CaptureActive},
		{name: "camera open while reconnecting", facts: facts{detectorReady: true, channel: realtime.Connecting, cameraOpen: true}, want: CaptureActive},
		{name: "camera failed", facts: facts{detectorReady: true, channel: realtime.Connected, cameraErr: errors.New("denied")}, want: CameraFailed},
		{name: "done", facts: facts{detectorReady: true, cameraOpen: true, done: true}, want: Completed},
		{name: "stopped wins", facts: facts{done: true, stopped: true}, want: Stopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextReadiness(tt.facts); got != tt.want {
				t.Errorf("nextReadiness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name      string
		readiness Readiness
		facts     facts
		want      string
	}{
		{name: "connecting", readiness: Initializing, facts: facts{detectorReady: true}, want: StatusConnecting},
		{name: "loading", readiness: Initializing, facts: facts{channel: realtime.Connected}, want: StatusLoading},
		{name: "starting camera", readiness: Ready, facts: facts{detectorReady: true, channel: realtime.Connected}, want: StatusStarting},
		{name: "active", readiness: CaptureActive, facts: facts{detectorReady: true, channel: realtime.Connected, cameraOpen: true}, want: StatusActive},
		{name: "reconnecting while active", readiness: CaptureActive, facts: facts{detectorReady: true, channel: realtime.Disconnected, cameraOpen: true}, want: StatusConnecting},
		{name: "camera failed", readiness: CameraFailed, facts: facts{channel: realtime.Connected}, want: StatusCameraErr},
		{name: "complete", readiness: Completed, want: StatusComplete},
		{name: "stopped", readiness: Stopped, want: StatusStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status(tt.readiness, tt.facts); got != tt.want {
				t.Errorf("status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadiness_Text(t *testing.T) {
	data, err := json.Marshal(map[string]Readiness{"r": CaptureActive})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"r":"capture_active"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var r Readiness
	if err := r.UnmarshalText([]byte("camera_failed")); err != nil || r != CameraFailed {
		t.Errorf("UnmarshalText() = %v, %v", r, err)
	}
	if err := r.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("UnmarshalText(bogus) should fail")
	}
	if Readiness(99).String() != "unknown" {
		t.Error("unexpected string for unknown readiness")
	}
}
