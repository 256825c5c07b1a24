package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
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

// Calls reports how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
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

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Preset hands below share one skeleton: wrist at (0.5, 0.8), knuckles
// around y=0.7, open fingertips well above their knuckles and curled
// fingertips just below them.

var (
	thumbOpen   = [4]Point3D{{X: 0.55, Y: 0.75}, {X: 0.62, Y: 0.70}, {X: 0.68, Y: 0.65}, {X: 0.73, Y: 0.60}}
	thumbClosed = [4]Point3D{{X: 0.55, Y: 0.75}, {X: 0.58, Y: 0.65}, {X: 0.60, Y: 0.68}, {X: 0.60, Y: 0.70}}

	indexOpen    = [4]Point3D{{X: 0.55, Y: 0.68}, {X: 0.57, Y: 0.55}, {X: 0.58, Y: 0.45}, {X: 0.58, Y: 0.35}}
	indexClosed  = [4]Point3D{{X: 0.55, Y: 0.70, Z: -0.02}, {X: 0.55, Y: 0.68, Z: -0.05}, {X: 0.52, Y: 0.70, Z: -0.04}, {X: 0.50, Y: 0.72, Z: -0.02}}
	middleOpen   = [4]Point3D{{X: 0.50, Y: 0.66}, {X: 0.50, Y: 0.52}, {X: 0.50, Y: 0.40}, {X: 0.50, Y: 0.28}}
	middleClosed = [4]Point3D{{X: 0.50, Y: 0.68, Z: -0.02}, {X: 0.50, Y: 0.66, Z: -0.05}, {X: 0.47, Y: 0.68, Z: -0.04}, {X: 0.45, Y: 0.70, Z: -0.02}}
	ringOpen     = [4]Point3D{{X: 0.45, Y: 0.68}, {X: 0.43, Y: 0.55}, {X: 0.42, Y: 0.45}, {X: 0.42, Y: 0.35}}
	ringClosed   = [4]Point3D{{X: 0.45, Y: 0.70, Z: -0.02}, {X: 0.45, Y: 0.68, Z: -0.05}, {X: 0.42, Y: 0.70, Z: -0.04}, {X: 0.40, Y: 0.72, Z: -0.02}}
	pinkyOpen    = [4]Point3D{{X: 0.40, Y: 0.70}, {X: 0.37, Y: 0.60}, {X: 0.35, Y: 0.50}, {X: 0.34, Y: 0.42}}
	pinkyClosed  = [4]Point3D{{X: 0.40, Y: 0.72, Z: -0.02}, {X: 0.40, Y: 0.70, Z: -0.05}, {X: 0.37, Y: 0.72, Z: -0.04}, {X: 0.35, Y: 0.74, Z: -0.02}}
)

func assemble(thumb, index, middle, ring, pinky [4]Point3D) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}
	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}
	for i, finger := range [][4]Point3D{thumb, index, middle, ring, pinky} {
		copy(h.Points[1+i*4:5+i*4], finger[:])
	}
	return h
}

// ThumbsUpLandmarks returns a hand with only the thumb extended upward.
func ThumbsUpLandmarks() HandLandmarks {
	thumb := [4]Point3D{{X: 0.55, Y: 0.75}, {X: 0.58, Y: 0.65}, {X: 0.58, Y: 0.50}, {X: 0.58, Y: 0.35}}
	return assemble(thumb, indexClosed, middleClosed, ringClosed, pinkyClosed)
}

// OpenPalmLandmarks returns a hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return assemble(thumbOpen, indexOpen, middleOpen, ringOpen, pinkyOpen)
}

// FistLandmarks returns a hand with every finger curled.
func FistLandmarks() HandLandmarks {
	return assemble(thumbClosed, indexClosed, middleClosed, ringClosed, pinkyClosed)
}

// RotateLandmarks returns a hand with index and middle extended (the "victory" sign).
func RotateLandmarks() HandLandmarks {
	return assemble(thumbClosed, indexOpen, middleOpen, ringClosed, pinkyClosed)
}

// IceLandmarks returns a hand with index and pinky extended (the "rock" sign).
func IceLandmarks() HandLandmarks {
	return assemble(thumbClosed, indexOpen, middleClosed, ringClosed, pinkyOpen)
}

// PinchLandmarks returns an open hand whose thumb and index tips are 0.04 apart.
func PinchLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	h.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.39}
	return h
}

// ClickLandmarks returns an open hand whose thumb and index tips are 0.02 apart.
func ClickLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	h.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.37}
	return h
}
