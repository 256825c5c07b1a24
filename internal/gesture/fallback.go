package gesture

import (
	"image"

	"gocv.io/x/gocv"
)

// blurSize is the box filter applied before frame differencing. The motion
// threshold is calibrated against it.
const blurSize = 5

// MotionFallbackClassifier is used when no hand tracker is available. It
// reports Motion when consecutive frames differ enough, otherwise None.
type MotionFallbackClassifier struct {
	Threshold float64
}

// NewMotionFallbackClassifier creates a fallback classifier that fires when
// the mean luma difference exceeds threshold.
func NewMotionFallbackClassifier(threshold float64) *MotionFallbackClassifier {
	return &MotionFallbackClassifier{Threshold: threshold}
}

// Classify implements Classifier. Frames without an image yield None.
func (c *MotionFallbackClassifier) Classify(state *MotionState, frame Frame) (Label, error) {
	if frame.Image == nil || frame.Image.Empty() {
		return None, nil
	}

	blurred := lumaFrame(*frame.Image)
	defer blurred.Close()

	delta, ok := state.LumaDelta(blurred)
	if ok && delta > c.Threshold {
		return Motion, nil
	}
	return None, nil
}

// lumaFrame converts img to a single channel and smooths it with a
// blurSize x blurSize box filter. The caller closes the result.
func lumaFrame(img gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()

	if img.Channels() > 1 {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	} else {
		img.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.Blur(gray, &blurred, image.Pt(blurSize, blurSize))
	return blurred
}

// TrackerWithFallback classifies image frames with Primary and hands a frame
// to Fallback whenever Primary fails, so a crashed tracker degrades to motion
// detection instead of dropping input.
type TrackerWithFallback struct {
	Primary  Classifier
	Fallback Classifier
	// OnError, when set, is told about every primary failure.
	OnError func(error)
}

// Classify implements Classifier.
func (c *TrackerWithFallback) Classify(state *MotionState, frame Frame) (Label, error) {
	label, err := c.Primary.Classify(state, frame)
	if err == nil {
		return label, nil
	}
	if c.OnError != nil {
		c.OnError(err)
	}
	return c.Fallback.Classify(state, frame)
}
