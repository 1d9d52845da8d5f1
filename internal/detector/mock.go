package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu      sync.Mutex
	hands   []HandLandmarks
	err     error
	initErr error
	inits   int
	calls   int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetInitError sets the error that will be returned by Init.
func (m *MockDetector) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

// Init records the call and returns the configured init error.
func (m *MockDetector) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits++
	return m.initErr
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// LetterALandmarks returns a right hand making the ASL letter A:
// a closed fist with the thumb resting upright against the index finger.
func LetterALandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.94}

	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.82}

	h.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.77, Z: -0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.59, Y: 0.70, Z: -0.02}
	h.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.63, Z: -0.03}
	h.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.57, Z: -0.03}

	// Fingers folded: tips come back down toward the palm.
	curled := [][4]Point3D{
		{{X: 0.56, Y: 0.62}, {X: 0.56, Y: 0.56, Z: -0.04}, {X: 0.55, Y: 0.61, Z: -0.05}, {X: 0.55, Y: 0.66, Z: -0.04}},
		{{X: 0.51, Y: 0.61}, {X: 0.51, Y: 0.55, Z: -0.04}, {X: 0.50, Y: 0.60, Z: -0.05}, {X: 0.50, Y: 0.65, Z: -0.04}},
		{{X: 0.46, Y: 0.62}, {X: 0.46, Y: 0.57, Z: -0.04}, {X: 0.46, Y: 0.62, Z: -0.05}, {X: 0.46, Y: 0.66, Z: -0.04}},
		{{X: 0.42, Y: 0.65}, {X: 0.42, Y: 0.60, Z: -0.03}, {X: 0.42, Y: 0.64, Z: -0.04}, {X: 0.42, Y: 0.68, Z: -0.03}},
	}
	setFingers(&h, curled)

	return h
}

// LetterBLandmarks returns a right hand making the ASL letter B:
// four fingers extended together with the thumb folded across the palm.
func LetterBLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.96}

	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.85}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.80, Z: -0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.56, Y: 0.74, Z: -0.03}
	h.Points[ThumbIP] = Point3D{X: 0.52, Y: 0.71, Z: -0.05}
	h.Points[ThumbTip] = Point3D{X: 0.48, Y: 0.70, Z: -0.05}

	extended := [][4]Point3D{
		{{X: 0.55, Y: 0.64}, {X: 0.55, Y: 0.50}, {X: 0.55, Y: 0.42}, {X: 0.55, Y: 0.35}},
		{{X: 0.51, Y: 0.63}, {X: 0.51, Y: 0.48}, {X: 0.51, Y: 0.39}, {X: 0.51, Y: 0.31}},
		{{X: 0.47, Y: 0.64}, {X: 0.47, Y: 0.50}, {X: 0.47, Y: 0.42}, {X: 0.47, Y: 0.35}},
		{{X: 0.43, Y: 0.67}, {X: 0.43, Y: 0.55}, {X: 0.43, Y: 0.48}, {X: 0.43, Y: 0.42}},
	}
	setFingers(&h, extended)

	return h
}

// setFingers fills MCP..Tip for index, middle, ring and pinky in order.
func setFingers(h *HandLandmarks, fingers [][4]Point3D) {
	bases := []int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	for f, base := range bases {
		for j := 0; j < 4; j++ {
			h.Points[base+j] = fingers[f][j]
		}
	}
}
