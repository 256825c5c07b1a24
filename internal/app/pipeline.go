package app

import (
	"errors"
	"fmt"

	"github.com/ayusman/gesturecast/internal/detector"
	"github.com/ayusman/gesturecast/internal/dispatch"
	"github.com/ayusman/gesturecast/internal/gesture"
	"gocv.io/x/gocv"
)

// ErrUndecodableFrame is returned for binary messages that are not an image.
var ErrUndecodableFrame = errors.New("undecodable frame")

// MaxHands is the most hands a landmarks message may carry.
const MaxHands = 2

// HandleLandmarks classifies one landmark frame from identity. Hands are
// validated before any state changes; a frame with an invalid hand is
// dropped whole.
//
// Pipeline:
// 1. Validate every hand (21 finite points)
// 2. Static pose tree on the first hand
// 3. Click, swipe and zoom augmenters
// 4. Classifier debounce gate
// 5. Map and broadcast
func (a *App) HandleLandmarks(identity string, raw [][]detector.Point3D) ([]dispatch.Event, error) {
	if !a.IsEnabled() {
		return nil, nil
	}
	if len(raw) > MaxHands {
		return nil, fmt.Errorf("%w: %d hands, at most %d", detector.ErrInvalidHand, len(raw), MaxHands)
	}

	hands := make([]detector.HandLandmarks, 0, len(raw))
	for i, points := range raw {
		hand, err := detector.NewHand(points)
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i, err)
		}
		hands = append(hands, hand)
	}

	return a.classify(identity, a.landmarks, gesture.Frame{Hands: hands})
}

// HandleFrame decodes an encoded image from identity and classifies it with
// the hand tracker, or with the motion fallback when no tracker is running.
func (a *App) HandleFrame(identity string, data []byte) ([]dispatch.Event, error) {
	if !a.IsEnabled() {
		return nil, nil
	}
	if len(data) == 0 {
		return nil, ErrUndecodableFrame
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableFrame, err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, ErrUndecodableFrame
	}

	return a.classify(identity, a.frames, gesture.Frame{Image: &img})
}

// HandleLabel dispatches a label a client classified itself. It goes through
// the dispatch debounce gate rather than the classifier gate.
func (a *App) HandleLabel(identity, raw string) ([]dispatch.Event, error) {
	if !a.IsEnabled() {
		return nil, nil
	}
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	return a.dispatcher.Receive(identity, raw)
}

func (a *App) classify(identity string, c gesture.Classifier, frame gesture.Frame) ([]dispatch.Event, error) {
	state, err := a.state(identity)
	if err != nil {
		return nil, err
	}
	label, err := c.Classify(state, frame)
	if err != nil {
		return nil, err
	}

	if !a.gate.ShouldEmit(identity, label, a.now()) {
		return nil, nil
	}
	return a.dispatcher.Dispatch(identity, label), nil
}
