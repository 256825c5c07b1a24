package gesture

import (
	"fmt"

	"github.com/ayusman/gesturecast/internal/detector"
	"gocv.io/x/gocv"
)

// Thresholds tunes the classifier and the motion augmenters. All distances
// are in normalized image units.
type Thresholds struct {
	Pinch  float64 // thumb-index tip gap below which a hand is a pinch
	Click  float64 // tighter tip gap that overrides to click
	Swipe  float64 // wrist X travel between frames for next/prev
	Zoom   float64 // change in wrist-to-wrist distance for zoom_in/zoom_out
	Motion float64 // mean luma difference (0..1) for the fallback
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pinch:  0.05,
		Click:  0.03,
		Swipe:  0.08,
		Zoom:   0.02,
		Motion: 0.2,
	}
}

// Classify maps one hand pose to a label. Rules are checked in priority
// order and the first match wins.
func Classify(hand *detector.HandLandmarks, pinch float64) Label {
	if tipGap(hand) < pinch {
		return Pinch
	}

	f := fingerStates(hand)
	switch {
	case f.count() == 0:
		return Fist
	case f.count() == 5:
		return OpenPalm
	case f.thumb && f.count() == 1:
		return ThumbsUp
	case f.index && f.middle && !f.ring && !f.pinky:
		return Rotate
	case f.index && f.pinky && !f.middle && !f.ring:
		return Ice
	}
	return None
}

// Frame is one time step from a client. Either Hands is set (landmarks were
// computed upstream) or Image holds a decoded camera frame.
type Frame struct {
	Hands []detector.HandLandmarks
	Image *gocv.Mat
}

// Classifier produces a candidate label for a frame. Implementations keep
// their per-identity history in the supplied MotionState.
type Classifier interface {
	Classify(state *MotionState, frame Frame) (Label, error)
}

// LandmarkClassifier runs the static pose tree followed by the click, swipe
// and zoom augmenters. When a frame carries only an image it asks Detector
// for landmarks first.
type LandmarkClassifier struct {
	Thresholds Thresholds
	Detector   detector.Detector
}

// NewLandmarkClassifier creates a LandmarkClassifier. det may be nil when
// every frame arrives with landmarks.
func NewLandmarkClassifier(t Thresholds, det detector.Detector) *LandmarkClassifier {
	return &LandmarkClassifier{Thresholds: t, Detector: det}
}

// Classify implements Classifier.
func (c *LandmarkClassifier) Classify(state *MotionState, frame Frame) (Label, error) {
	hands := frame.Hands
	if len(hands) == 0 && frame.Image != nil && c.Detector != nil {
		detected, err := c.Detector.Detect(frame.Image)
		if err != nil {
			return None, fmt.Errorf("detect hands: %w", err)
		}
		hands = detected
	}
	return c.classifyHands(state, hands), nil
}

func (c *LandmarkClassifier) classifyHands(state *MotionState, hands []detector.HandLandmarks) Label {
	if len(hands) != 2 {
		state.ResetZoom()
	}
	if len(hands) == 0 {
		return None
	}

	primary := &hands[0]
	label := Classify(primary, c.Thresholds.Pinch)

	if tipGap(primary) < c.Thresholds.Click {
		label = Click
	}

	if swipe := state.Swipe(primary.WristPoint().X, c.Thresholds.Swipe); swipe != "" {
		label = swipe
	}

	if len(hands) == 2 {
		span := Distance(hands[0].WristPoint(), hands[1].WristPoint())
		if zoom := state.Zoom(span, c.Thresholds.Zoom); zoom != "" {
			label = zoom
		}
	}

	return label
}
