package gesture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MotionState is the per-identity history the augmenters and the motion
// fallback compare against. The zero value is not usable; call NewMotionState.
type MotionState struct {
	mu sync.Mutex

	prevWristX float64
	hasWrist   bool

	prevSpan float64
	hasSpan  bool

	prevLuma gocv.Mat
	hasLuma  bool
}

// NewMotionState returns an empty history.
func NewMotionState() *MotionState {
	return &MotionState{}
}

// Swipe compares wristX with the previous frame's wrist position and records
// it. It returns Next or Prev when the wrist travelled more than threshold,
// otherwise the empty label.
func (s *MotionState) Swipe(wristX, threshold float64) Label {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.prevWristX, s.hasWrist
	s.prevWristX, s.hasWrist = wristX, true
	if !had {
		return ""
	}

	dx := wristX - prev
	switch {
	case dx > threshold:
		return Next
	case dx < -threshold:
		return Prev
	}
	return ""
}

// Zoom compares the current wrist-to-wrist distance with the previous
// two-hand frame and records it.
func (s *MotionState) Zoom(span, threshold float64) Label {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.prevSpan, s.hasSpan
	s.prevSpan, s.hasSpan = span, true
	if !had {
		return ""
	}

	delta := span - prev
	switch {
	case delta > threshold:
		return ZoomIn
	case delta < -threshold:
		return ZoomOut
	}
	return ""
}

// ResetZoom forgets the two-hand distance. Called whenever a frame does not
// carry exactly two hands.
func (s *MotionState) ResetZoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasSpan = false
	s.prevSpan = 0
}

// LumaDelta returns the mean absolute difference between gray and the
// previous grayscale frame, normalized to [0, 1], and stores gray as the new
// baseline. The first frame, or one whose size differs from the baseline,
// only sets the baseline and reports ok=false.
func (s *MotionState) LumaDelta(gray gocv.Mat) (delta float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasLuma {
		s.prevLuma = gocv.NewMat()
		s.hasLuma = true
	}
	defer gray.CopyTo(&s.prevLuma)

	if s.prevLuma.Empty() ||
		s.prevLuma.Rows() != gray.Rows() ||
		s.prevLuma.Cols() != gray.Cols() {
		return 0, false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, s.prevLuma, &diff)

	return diff.Mean().Val1 / 255.0, true
}

// Reset clears all history so the next frame starts fresh.
func (s *MotionState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prevWristX, s.hasWrist = 0, false
	s.prevSpan, s.hasSpan = 0, false
	s.releaseLuma()
}

// Close releases the stored luma frame.
func (s *MotionState) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLuma()
}

func (s *MotionState) releaseLuma() {
	if s.hasLuma {
		s.prevLuma.Close()
		s.prevLuma = gocv.Mat{}
		s.hasLuma = false
	}
}
