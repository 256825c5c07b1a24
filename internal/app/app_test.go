package app

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/gesturecast/internal/action"
	"github.com/ayusman/gesturecast/internal/detector"
	"github.com/ayusman/gesturecast/internal/dispatch"
	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type recorder struct {
	mu     sync.Mutex
	events []dispatch.Event
}

func (r *recorder) Broadcast(e dispatch.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []dispatch.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.Event(nil), r.events...)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	app   *App
	out   *recorder
	clock *clock
}

func newFixture(t *testing.T, mutate func(*Config)) fixture {
	t.Helper()

	out := &recorder{}
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := Config{
		Thresholds:         gesture.DefaultThresholds(),
		ClassifierDebounce: 400 * time.Millisecond,
		DispatchDebounce:   600 * time.Millisecond,
		Broadcaster:        out,
		Now:                clk.now,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return fixture{app: a, out: out, clock: clk}
}

func points(hands ...detector.HandLandmarks) [][]detector.Point3D {
	out := make([][]detector.Point3D, len(hands))
	for i := range hands {
		out[i] = hands[i].PointSlice()
	}
	return out
}

func TestHandleLandmarks(t *testing.T) {
	t.Run("thumbs up dispatches gesture and action", func(t *testing.T) {
		f := newFixture(t, nil)
		f.app.Connect("A")

		events, err := f.app.HandleLandmarks("A", points(detector.ThumbsUpLandmarks()))
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, gesture.ThumbsUp, events[0].Gesture)
		assert.Equal(t, action.Select, events[1].Action)
		assert.Equal(t, "A", events[1].Source)
		assert.Equal(t, events, f.out.all())
	})

	t.Run("classifier gate suppresses repeats for 400ms", func(t *testing.T) {
		f := newFixture(t, nil)
		f.app.Connect("A")
		fist := points(detector.FistLandmarks())

		events, _ := f.app.HandleLandmarks("A", fist)
		assert.Len(t, events, 2)

		f.clock.advance(200 * time.Millisecond)
		events, _ = f.app.HandleLandmarks("A", fist)
		assert.Empty(t, events)

		f.clock.advance(200 * time.Millisecond)
		events, _ = f.app.HandleLandmarks("A", fist)
		assert.Len(t, events, 2)
	})

	t.Run("no hands broadcasts none without action", func(t *testing.T) {
		f := newFixture(t, nil)

		events, err := f.app.HandleLandmarks("A", nil)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, gesture.None, events[0].Gesture)
	})

	t.Run("short hand is rejected without side effects", func(t *testing.T) {
		f := newFixture(t, nil)
		bad := [][]detector.Point3D{detector.FistLandmarks().PointSlice()[:20]}

		events, err := f.app.HandleLandmarks("A", bad)
		assert.ErrorIs(t, err, detector.ErrInvalidHand)
		assert.Empty(t, events)
		assert.Empty(t, f.out.all())
		assert.Zero(t, f.app.Sessions())
	})

	t.Run("too many hands is rejected", func(t *testing.T) {
		f := newFixture(t, nil)
		fist := detector.FistLandmarks()

		_, err := f.app.HandleLandmarks("A", points(fist, fist, fist))
		assert.ErrorIs(t, err, detector.ErrInvalidHand)
	})

	t.Run("swipe is unmapped", func(t *testing.T) {
		f := newFixture(t, nil)
		fist := detector.FistLandmarks()

		f.app.HandleLandmarks("A", points(fist))
		events, err := f.app.HandleLandmarks("A", points(fist.Shifted(0.15, 0)))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, gesture.Next, events[0].Gesture)
	})

	t.Run("identities keep separate history", func(t *testing.T) {
		f := newFixture(t, nil)
		fist := detector.FistLandmarks()

		f.app.HandleLandmarks("A", points(fist))
		events, _ := f.app.HandleLandmarks("B", points(fist.Shifted(0.15, 0)))
		require.Len(t, events, 2)
		assert.Equal(t, gesture.Fist, events[0].Gesture, "B has no previous wrist")
	})

	t.Run("disabled drops input", func(t *testing.T) {
		f := newFixture(t, nil)
		f.app.SetEnabled(false)

		events, err := f.app.HandleLandmarks("A", points(detector.FistLandmarks()))
		assert.NoError(t, err)
		assert.Empty(t, events)

		f.app.SetEnabled(true)
		events, _ = f.app.HandleLandmarks("A", points(detector.FistLandmarks()))
		assert.Len(t, events, 2)
	})
}

func TestHandleLabel(t *testing.T) {
	t.Run("dispatch gate suppresses repeats for 600ms", func(t *testing.T) {
		f := newFixture(t, nil)
		f.app.Connect("A")

		events, err := f.app.HandleLabel("A", "thumbs_up")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, action.Select, events[1].Action)

		f.clock.advance(500 * time.Millisecond)
		events, err = f.app.HandleLabel("A", "thumbs_up")
		require.NoError(t, err)
		assert.Empty(t, events)

		f.clock.advance(100 * time.Millisecond)
		events, _ = f.app.HandleLabel("A", "thumbs_up")
		assert.Len(t, events, 2)
	})

	t.Run("unknown label", func(t *testing.T) {
		f := newFixture(t, nil)

		events, err := f.app.HandleLabel("A", "wave")
		assert.ErrorIs(t, err, gesture.ErrUnknownLabel)
		assert.Empty(t, events)
	})

	t.Run("rock alias maps to ice", func(t *testing.T) {
		f := newFixture(t, nil)

		events, err := f.app.HandleLabel("A", "rock")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, action.DropIce, events[1].Action)
	})
}

func TestConnectResetsState(t *testing.T) {
	f := newFixture(t, nil)
	fist := detector.FistLandmarks()

	f.app.Connect("A")
	f.app.HandleLandmarks("A", points(fist))
	f.app.HandleLabel("A", "fist")
	assert.Equal(t, 1, f.app.Sessions())

	// Reconnect: swipe history and both gates start over.
	f.app.Connect("A")
	events, _ := f.app.HandleLandmarks("A", points(fist.Shifted(0.15, 0)))
	require.Len(t, events, 2)
	assert.Equal(t, gesture.Fist, events[0].Gesture)

	events, _ = f.app.HandleLabel("A", "fist")
	assert.Len(t, events, 2)

	f.app.Disconnect("A")
	assert.Zero(t, f.app.Sessions())
}

func TestStoreBindings(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Bindings().Upsert(&store.Binding{Gesture: "next", Action: "next_slide", Enabled: true}))
	require.NoError(t, st.Bindings().Upsert(&store.Binding{Gesture: "fist", Action: "", Enabled: true}))
	require.NoError(t, st.Bindings().Upsert(&store.Binding{Gesture: "pinch", Action: "ignored", Enabled: false}))
	require.NoError(t, st.Bindings().Upsert(&store.Binding{Gesture: "wave", Action: "hello", Enabled: true}))

	f := newFixture(t, func(c *Config) { c.Store = st })

	m := f.app.Mapping()
	id, ok := m.Lookup(gesture.Next)
	assert.True(t, ok)
	assert.Equal(t, action.ID("next_slide"), id)
	_, ok = m.Lookup(gesture.Fist)
	assert.False(t, ok, "empty action unbinds")
	id, _ = m.Lookup(gesture.Pinch)
	assert.Equal(t, action.OpenCoke, id, "disabled binding is ignored")

	events, err := f.app.HandleLabel("A", "next")
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Events are written by the recorder goroutine.
	assert.Eventually(t, func() bool {
		n, err := st.Events().CountBySource("A")
		return err == nil && n == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnabledIsPersisted(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	first := newFixture(t, func(c *Config) { c.Store = st })
	assert.True(t, first.app.IsEnabled())
	first.app.SetEnabled(false)

	second := newFixture(t, func(c *Config) { c.Store = st })
	assert.False(t, second.app.IsEnabled())
}

func TestDebounceWindows(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, 400*time.Millisecond, f.app.gate.Window())
	assert.Equal(t, 600*time.Millisecond, f.app.dispatcher.Window())
}

func TestClose(t *testing.T) {
	mock := detector.NewMockDetector()
	f := newFixture(t, func(c *Config) { c.Detector = mock })

	f.app.Connect("A")
	require.NoError(t, f.app.Close())
	assert.Zero(t, f.app.Sessions())

	_, err := f.app.HandleLandmarks("A", points(detector.FistLandmarks()))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.app.HandleLabel("B", "fist")
	assert.ErrorIs(t, err, ErrClosed)

	f.app.Connect("C")
	assert.Zero(t, f.app.Sessions(), "no sessions after close")
	assert.Empty(t, f.out.all())

	assert.NoError(t, f.app.Close())
}

func TestHandleFrame(t *testing.T) {
	t.Run("empty payload", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.app.HandleFrame("A", nil)
		assert.ErrorIs(t, err, ErrUndecodableFrame)
	})

	if testing.Short() {
		t.Skip("skipping test that requires GoCV image codecs")
	}

	encode := func(t *testing.T, value float64) []byte {
		t.Helper()
		img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, value, value, 0), 48, 64, gocv.MatTypeCV8UC3)
		defer img.Close()
		buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
		require.NoError(t, err)
		defer buf.Close()
		return append([]byte(nil), buf.GetBytes()...)
	}

	t.Run("garbage bytes", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.app.HandleFrame("A", []byte("definitely not an image"))
		assert.ErrorIs(t, err, ErrUndecodableFrame)
	})

	t.Run("motion fallback without tracker", func(t *testing.T) {
		f := newFixture(t, nil)

		events, err := f.app.HandleFrame("A", encode(t, 0))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, gesture.None, events[0].Gesture)

		events, err = f.app.HandleFrame("A", encode(t, 255))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, gesture.Motion, events[0].Gesture)
	})

	t.Run("tracker classifies frames", func(t *testing.T) {
		mock := detector.NewMockDetector()
		mock.SetHands([]detector.HandLandmarks{detector.IceLandmarks()})
		f := newFixture(t, func(c *Config) { c.Detector = mock })

		events, err := f.app.HandleFrame("A", encode(t, 128))
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, gesture.Ice, events[0].Gesture)
		assert.Equal(t, action.DropIce, events[1].Action)
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("tracker failure falls back to motion", func(t *testing.T) {
		mock := detector.NewMockDetector()
		mock.SetError(errors.New("tracker crashed"))
		f := newFixture(t, func(c *Config) { c.Detector = mock })

		events, err := f.app.HandleFrame("A", encode(t, 0))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, gesture.None, events[0].Gesture)

		events, err = f.app.HandleFrame("A", encode(t, 255))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, gesture.Motion, events[0].Gesture)
		assert.Equal(t, 2, mock.Calls())
	})
}
