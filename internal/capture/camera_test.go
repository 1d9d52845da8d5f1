package capture

import (
	"errors"
	"testing"
)

func TestDeviceConfigFor(t *testing.T) {
	tests := []struct {
		name    string
		maxFPS  float64
		wantFPS int
	}{
		{name: "no cap uses default", maxFPS: 0, wantFPS: DefaultFPS},
		{name: "below default", maxFPS: 4, wantFPS: DefaultFPS},
		{name: "fractional rounds up", maxFPS: 12.5, wantFPS: 13},
		{name: "high cap", maxFPS: 30, wantFPS: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DeviceConfigFor(2, tt.maxFPS)
			if cfg.ID != 2 {
				t.Errorf("ID = %d, want 2", cfg.ID)
			}
			if cfg.FPS != tt.wantFPS {
				t.Errorf("FPS = %d, want %d", cfg.FPS, tt.wantFPS)
			}
			if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, DefaultWidth, DefaultHeight)
			}
		})
	}
}

func TestNewDevice_Defaults(t *testing.T) {
	d := NewDevice(DeviceConfig{ID: 1})

	cfg := d.Config()
	if cfg.FPS != DefaultFPS || cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
		t.Errorf("Config() = %+v, want defaults", cfg)
	}
	if d.IsOpen() {
		t.Error("new device should not be open")
	}
	if got := d.Stats(); got != (ReadStats{}) {
		t.Errorf("Stats() = %+v, want zero", got)
	}
}

func TestDevice_ReadFrame_NotOpened(t *testing.T) {
	d := NewCamera(0)

	if _, err := d.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() should return ErrCameraNotOpen, got %v", err)
	}
}

func TestDevice_Close_NotOpened(t *testing.T) {
	d := NewCamera(0)

	if err := d.Close(); err != nil {
		t.Errorf("Close() on a device that is not open should return nil, got %v", err)
	}
}

func TestDevice_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	d := NewCamera(0)

	if err := d.Open(); err != nil {
		if !errors.Is(err, ErrCameraUnavailable) {
			t.Errorf("Open() error should wrap ErrCameraUnavailable, got %v", err)
		}
		t.Skipf("camera not available: %v", err)
	}

	if !d.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := d.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		mat.Close()
		if d.Stats().Frames != 1 {
			t.Errorf("Stats().Frames = %d, want 1", d.Stats().Frames)
		}
	}

	// Reacquiring releases the old handle and resets the counters.
	if err := d.Open(); err != nil {
		t.Errorf("second Open() failed: %v", err)
	}
	if d.Stats().Frames != 0 {
		t.Error("Open() should reset read stats")
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if d.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}
