// Package detector provides hand detection interfaces and landmark types.
package detector

import (
	"encoding/json"
	"fmt"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is one normalized keypoint. X and Y are image-relative in [0,1];
// Z is MediaPipe's relative depth and may be omitted on the wire.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks of one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// InRange reports whether every point has X and Y inside the unit square.
func (h *HandLandmarks) InRange() bool {
	for _, p := range h.Points {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return false
		}
	}
	return true
}

// Clamp pulls every X and Y into the unit square. Points tracked just past
// the frame edge keep the hand usable. It reports whether anything moved.
func (h *HandLandmarks) Clamp() bool {
	moved := false
	for i := range h.Points {
		p := &h.Points[i]
		x, y := min(max(p.X, 0), 1), min(max(p.Y, 0), 1)
		if x != p.X || y != p.Y {
			p.X, p.Y = x, y
			moved = true
		}
	}
	return moved
}

// Frame is the set of hands detected in a single video frame.
//
// On the wire a frame is a bare JSON array of per-hand landmark arrays:
//
//	[[{"x":0.5,"y":0.8,"z":0}, ... 21 points], ...]
//
// Handedness and score are not sent.
type Frame []HandLandmarks

// MarshalJSON encodes the frame in the prediction service's wire shape.
func (f Frame) MarshalJSON() ([]byte, error) {
	hands := make([][]Point3D, len(f))
	for i := range f {
		hands[i] = f[i].Points[:]
	}
	return json.Marshal(hands)
}

// UnmarshalJSON decodes the wire shape. Each hand must carry exactly
// NumLandmarks points.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var hands [][]Point3D
	if err := json.Unmarshal(data, &hands); err != nil {
		return err
	}

	out := make(Frame, len(hands))
	for i, points := range hands {
		if len(points) != NumLandmarks {
			return fmt.Errorf("hand %d has %d landmarks, expected %d", i, len(points), NumLandmarks)
		}
		copy(out[i].Points[:], points)
	}

	*f = out
	return nil
}
