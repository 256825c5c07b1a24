package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand tracker implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to report (default: 2).
	MaxHands int

	// MinConfidence drops hands scored below it (0.0-1.0).
	MinConfidence float64

	// ScriptPath overrides the tracker service location. Empty means search
	// the default locations.
	ScriptPath string

	// IdleTimeout stops the tracker process after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:      2,
		MinConfidence: 0.5,
		IdleTimeout:   30 * time.Second,
	}
}
