// Package gesture turns hand landmarks and camera frames into discrete gesture labels.
package gesture

import (
	"math"

	"github.com/ayusman/gesturecast/internal/detector"
)

// Distance returns the Euclidean distance between two landmarks in the image
// plane. Z is ignored.
func Distance(p1, p2 detector.Point3D) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}

// FingerOpen reports whether a finger is extended. Image Y grows downward,
// so an extended fingertip sits above its base.
func FingerOpen(tip, base detector.Point3D) bool {
	return tip.Y < base.Y
}

// fingers is the open/closed state of thumb, index, middle, ring and pinky.
type fingers struct {
	thumb, index, middle, ring, pinky bool
}

func fingerStates(h *detector.HandLandmarks) fingers {
	p := &h.Points
	return fingers{
		thumb:  FingerOpen(p[detector.ThumbTip], p[detector.ThumbMCP]),
		index:  FingerOpen(p[detector.IndexTip], p[detector.IndexMCP]),
		middle: FingerOpen(p[detector.MiddleTip], p[detector.MiddleMCP]),
		ring:   FingerOpen(p[detector.RingTip], p[detector.RingMCP]),
		pinky:  FingerOpen(p[detector.PinkyTip], p[detector.PinkyMCP]),
	}
}

func (f fingers) count() int {
	n := 0
	for _, open := range []bool{f.thumb, f.index, f.middle, f.ring, f.pinky} {
		if open {
			n++
		}
	}
	return n
}

// tipGap is the thumb-to-index fingertip distance used by pinch and click.
func tipGap(h *detector.HandLandmarks) float64 {
	return Distance(h.Points[detector.ThumbTip], h.Points[detector.IndexTip])
}
