package capture

import (
	"errors"
	"slices"
	"sync/atomic"

	"github.com/ayusman/signlingo/internal/detector"
)

// LandmarkSource pairs the camera with a hand detector and produces one
// landmark set per captured frame.
type LandmarkSource struct {
	camera   Camera
	detector detector.Detector
	clamped  atomic.Uint64
}

// NewLandmarkSource creates a LandmarkSource over the given camera and detector.
func NewLandmarkSource(camera Camera, det detector.Detector) *LandmarkSource {
	return &LandmarkSource{camera: camera, detector: det}
}

// Init loads the hand-pose model.
func (s *LandmarkSource) Init() error {
	return s.detector.Init()
}

// Acquire opens the camera, releasing any handle it already held.
func (s *LandmarkSource) Acquire() error {
	return s.camera.Open()
}

// Landmarks captures one frame and returns the hands found in it. Points
// the tracker places just outside the frame are clamped onto its edge.
func (s *LandmarkSource) Landmarks() ([]detector.HandLandmarks, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	hands, err := s.detector.Detect(frame)
	if err != nil {
		return nil, err
	}

	hands = slices.Clone(hands)
	for i := range hands {
		if hands[i].Clamp() {
			s.clamped.Add(1)
		}
	}
	return hands, nil
}

// Clamped is the number of hands that needed clamping so far.
func (s *LandmarkSource) Clamped() uint64 {
	return s.clamped.Load()
}

// Release stops the camera so the device can be acquired again.
func (s *LandmarkSource) Release() error {
	return s.camera.Close()
}

// Close releases the camera and shuts the detector down.
func (s *LandmarkSource) Close() error {
	return errors.Join(s.camera.Close(), s.detector.Close())
}
