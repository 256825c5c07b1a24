// Package detector provides hand landmark types and the hand tracker collaborator.
package detector

import (
	"errors"
	"fmt"
	"math"
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

// ErrInvalidHand is returned for hands that cannot be classified.
var ErrInvalidHand = errors.New("invalid hand")

// Point3D is a normalized image coordinate. Origin is top-left and Y grows
// downward. Z is carried through but not used by the classifier.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks holds the 21 landmarks of one hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness,omitempty"` // "Left" or "Right"
	Score      float64               `json:"score,omitempty"`
}

// NewHand builds a hand from an ordered landmark list. The list must hold
// exactly NumLandmarks finite points.
func NewHand(points []Point3D) (HandLandmarks, error) {
	var h HandLandmarks
	if len(points) != NumLandmarks {
		return h, fmt.Errorf("%w: got %d landmarks, want %d", ErrInvalidHand, len(points), NumLandmarks)
	}
	for i, p := range points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return h, fmt.Errorf("%w: landmark %d is not finite", ErrInvalidHand, i)
		}
		h.Points[i] = p
	}
	return h, nil
}

// WristPoint returns landmark 0.
func (h HandLandmarks) WristPoint() Point3D {
	return h.Points[Wrist]
}

// PointSlice returns the landmarks as a slice in index order.
func (h HandLandmarks) PointSlice() []Point3D {
	out := make([]Point3D, NumLandmarks)
	copy(out, h.Points[:])
	return out
}

// Shifted returns a copy of the hand translated by dx, dy.
func (h HandLandmarks) Shifted(dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
