// Package capture owns the camera device and turns frames into hand landmarks.
package capture

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// Capture defaults. Landmark detection runs on 640x480 frames.
const (
	DefaultFPS    = 10
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a device that has not
	// been acquired.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrCameraUnavailable is returned when the device cannot be acquired,
	// typically because it is missing or access was denied.
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrEmptyFrame is returned when the device delivered no image data.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Camera is a video device that can be acquired and released repeatedly.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}

// DeviceConfig selects and shapes the capture device.
type DeviceConfig struct {
	ID     int
	Width  int
	Height int
	FPS    int
}

// DeviceConfigFor returns the settings used for device id when frames are
// consumed at maxFPS. The device is asked for at least that rate.
func DeviceConfigFor(id int, maxFPS float64) DeviceConfig {
	fps := DefaultFPS
	if want := int(math.Ceil(maxFPS)); want > fps {
		fps = want
	}
	return DeviceConfig{ID: id, Width: DefaultWidth, Height: DefaultHeight, FPS: fps}
}

// ReadStats counts frame reads since the device was last acquired.
type ReadStats struct {
	Frames   uint64
	Failures uint64
}

// Device captures from a local camera through OpenCV.
type Device struct {
	config DeviceConfig

	mu      sync.Mutex
	capture *gocv.VideoCapture
	stats   ReadStats
}

// NewCamera returns a Device for camera id with the default frame size and rate.
func NewCamera(id int) *Device {
	return NewDevice(DeviceConfigFor(id, 0))
}

// NewDevice returns a Device for cfg. Zero sizes and rates take the defaults.
func NewDevice(cfg DeviceConfig) *Device {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	return &Device{config: cfg}
}

// Config returns the device settings.
func (d *Device) Config() DeviceConfig {
	return d.config
}

// Open acquires the camera. An already-open device is released first so the
// capture never holds two handles to it.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.release(); err != nil {
		return fmt.Errorf("release before reopen: %w", err)
	}

	vc, err := gocv.OpenVideoCapture(d.config.ID)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", ErrCameraUnavailable, d.config.ID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("%w: device %d could not be opened", ErrCameraUnavailable, d.config.ID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(d.config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(d.config.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(d.config.FPS))

	d.capture = vc
	d.stats = ReadStats{}
	return nil
}

// Close releases the device. Closing a device that is not open is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release()
}

func (d *Device) release() error {
	if d.capture == nil {
		return nil
	}
	err := d.capture.Close()
	d.capture = nil
	return err
}

// ReadFrame grabs the next frame. The caller closes the returned Mat.
func (d *Device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := d.capture.Read(&mat); !ok {
		mat.Close()
		d.stats.Failures++
		return nil, fmt.Errorf("read device %d: no frame available", d.config.ID)
	}
	if mat.Empty() {
		mat.Close()
		d.stats.Failures++
		return nil, ErrEmptyFrame
	}

	d.stats.Frames++
	return &mat, nil
}

// IsOpen reports whether the device is currently acquired.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capture != nil
}

// Stats returns read counters for the current acquisition.
func (d *Device) Stats() ReadStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}
