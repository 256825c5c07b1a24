package gesture

import (
	"errors"
	"testing"

	"github.com/ayusman/gesturecast/internal/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// gocvPlaceholder stands in for a decoded frame when a mock detector ignores it.
var gocvPlaceholder gocv.Mat

func hands(h ...detector.HandLandmarks) Frame {
	return Frame{Hands: h}
}

func TestSwipe(t *testing.T) {
	c := NewLandmarkClassifier(DefaultThresholds(), nil)
	fist := detector.FistLandmarks()

	t.Run("right then left", func(t *testing.T) {
		state := NewMotionState()

		first, err := c.Classify(state, hands(fist))
		require.NoError(t, err)
		assert.Equal(t, Fist, first, "first frame has no previous wrist")

		label, _ := c.Classify(state, hands(fist.Shifted(0.10, 0)))
		assert.Equal(t, Next, label)

		label, _ = c.Classify(state, hands(fist))
		assert.Equal(t, Prev, label)
	})

	t.Run("small movement keeps pose", func(t *testing.T) {
		state := NewMotionState()
		_, _ = c.Classify(state, hands(fist))

		label, _ := c.Classify(state, hands(fist.Shifted(0.05, 0)))
		assert.Equal(t, Fist, label)
	})

	t.Run("swipe overrides click", func(t *testing.T) {
		state := NewMotionState()
		click := detector.ClickLandmarks()
		_, _ = c.Classify(state, hands(click))

		label, _ := c.Classify(state, hands(click.Shifted(-0.2, 0)))
		assert.Equal(t, Prev, label)
	})

	t.Run("wrist is tracked every frame", func(t *testing.T) {
		state := NewMotionState()
		_, _ = c.Classify(state, hands(fist))
		_, _ = c.Classify(state, hands(fist.Shifted(0.05, 0)))

		// 0.10 from the first frame but only 0.05 from the last.
		label, _ := c.Classify(state, hands(fist.Shifted(0.10, 0)))
		assert.Equal(t, Fist, label)
	})
}

func TestSwipeBoundary(t *testing.T) {
	state := NewMotionState()
	assert.Equal(t, Label(""), state.Swipe(0.25, 0.08))
	assert.Equal(t, Label(""), state.Swipe(0.25, 0.08))
	assert.Equal(t, Next, state.Swipe(0.5, 0.08))
	assert.Equal(t, Prev, state.Swipe(0.3, 0.08))
}

func TestZoom(t *testing.T) {
	c := NewLandmarkClassifier(DefaultThresholds(), nil)
	left := detector.FistLandmarks().Shifted(-0.2, 0)
	right := detector.FistLandmarks().Shifted(0.2, 0)

	t.Run("hands apart then together", func(t *testing.T) {
		state := NewMotionState()

		label, _ := c.Classify(state, hands(left, right))
		assert.Equal(t, Fist, label, "first two-hand frame only records distance")

		label, _ = c.Classify(state, hands(left, right.Shifted(0.05, 0)))
		assert.Equal(t, ZoomIn, label)

		label, _ = c.Classify(state, hands(left, right.Shifted(0.01, 0)))
		assert.Equal(t, ZoomOut, label)
	})

	t.Run("resets when a hand drops out", func(t *testing.T) {
		state := NewMotionState()
		_, _ = c.Classify(state, hands(left, right))
		_, _ = c.Classify(state, hands(left))

		label, _ := c.Classify(state, hands(left, right.Shifted(0.1, 0)))
		assert.Equal(t, Fist, label, "distance was reset so no zoom")
	})

	t.Run("resets on empty frame", func(t *testing.T) {
		state := NewMotionState()
		_, _ = c.Classify(state, hands(left, right))
		_, _ = c.Classify(state, Frame{})

		label, _ := c.Classify(state, hands(left, right.Shifted(-0.1, 0)))
		assert.Equal(t, Fist, label)
	})
}

func TestMotionStateReset(t *testing.T) {
	state := NewMotionState()
	state.Swipe(0.1, 0.08)
	state.Zoom(0.4, 0.02)

	state.Reset()

	assert.Equal(t, Label(""), state.Swipe(0.9, 0.08))
	assert.Equal(t, Label(""), state.Zoom(0.9, 0.02))
	state.Close()
}

func TestMotionFallbackClassifier(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	c := NewMotionFallbackClassifier(DefaultThresholds().Motion)

	black := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer white.Close()

	t.Run("first frame is none", func(t *testing.T) {
		state := NewMotionState()
		defer state.Close()

		label, err := c.Classify(state, Frame{Image: &black})
		require.NoError(t, err)
		assert.Equal(t, None, label)
	})

	t.Run("still frames are none", func(t *testing.T) {
		state := NewMotionState()
		defer state.Close()

		_, _ = c.Classify(state, Frame{Image: &black})
		label, _ := c.Classify(state, Frame{Image: &black})
		assert.Equal(t, None, label)
	})

	t.Run("large change is motion", func(t *testing.T) {
		state := NewMotionState()
		defer state.Close()

		_, _ = c.Classify(state, Frame{Image: &black})
		label, _ := c.Classify(state, Frame{Image: &white})
		assert.Equal(t, Motion, label)
	})

	t.Run("size change rebaselines", func(t *testing.T) {
		state := NewMotionState()
		defer state.Close()

		small := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 24, 32, gocv.MatTypeCV8UC3)
		defer small.Close()

		_, _ = c.Classify(state, Frame{Image: &black})
		label, _ := c.Classify(state, Frame{Image: &small})
		assert.Equal(t, None, label)
	})

	t.Run("no image is none", func(t *testing.T) {
		label, err := c.Classify(NewMotionState(), Frame{})
		require.NoError(t, err)
		assert.Equal(t, None, label)
	})
}

func TestLumaFrameUsesBoxBlur(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 11, 11, gocv.MatTypeCV8UC1)
	defer img.Close()
	img.SetUCharAt(5, 5, 255)

	out := lumaFrame(img)
	defer out.Close()

	// A 5x5 box spreads the spike evenly over 25 pixels (255/25 ~ 10); a
	// Gaussian would leave about 36 at the center.
	assert.InDelta(t, 10, int(out.GetUCharAt(5, 5)), 1)
	assert.InDelta(t, 10, int(out.GetUCharAt(3, 7)), 1)
	assert.Zero(t, out.GetUCharAt(0, 0))
}

type stubClassifier struct {
	label Label
	err   error
	calls int
}

func (s *stubClassifier) Classify(*MotionState, Frame) (Label, error) {
	s.calls++
	return s.label, s.err
}

func TestTrackerWithFallback(t *testing.T) {
	t.Run("primary result is used", func(t *testing.T) {
		primary := &stubClassifier{label: Fist}
		fallback := &stubClassifier{label: Motion}
		c := &TrackerWithFallback{Primary: primary, Fallback: fallback}

		label, err := c.Classify(NewMotionState(), Frame{})
		require.NoError(t, err)
		assert.Equal(t, Fist, label)
		assert.Zero(t, fallback.calls)
	})

	t.Run("primary failure falls back", func(t *testing.T) {
		primary := &stubClassifier{err: errors.New("tracker exited")}
		fallback := &stubClassifier{label: Motion}
		var reported []error
		c := &TrackerWithFallback{
			Primary:  primary,
			Fallback: fallback,
			OnError:  func(err error) { reported = append(reported, err) },
		}

		label, err := c.Classify(NewMotionState(), Frame{})
		require.NoError(t, err)
		assert.Equal(t, Motion, label)
		assert.Equal(t, 1, fallback.calls)
		require.Len(t, reported, 1)
		assert.EqualError(t, reported[0], "tracker exited")
	})
}
