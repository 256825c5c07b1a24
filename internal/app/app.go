// Package app wires classification, debouncing and dispatch into per-connection handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/gesturecast/internal/action"
	"github.com/ayusman/gesturecast/internal/debounce"
	"github.com/ayusman/gesturecast/internal/detector"
	"github.com/ayusman/gesturecast/internal/dispatch"
	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/logging"
	"github.com/ayusman/gesturecast/internal/store"
	"github.com/sirupsen/logrus"
)

const settingEnabled = "input_enabled"

// ErrClosed is returned for input that arrives after Close.
var ErrClosed = errors.New("app closed")

// Config holds configuration options for the application.
type Config struct {
	Thresholds gesture.Thresholds

	// ClassifierDebounce gates labels produced from landmarks and frames.
	ClassifierDebounce time.Duration
	// DispatchDebounce gates labels sent pre-classified by clients.
	DispatchDebounce time.Duration

	// Detector is the hand tracker. When nil, image frames go to the motion
	// fallback instead.
	Detector detector.Detector

	// Broadcaster receives every dispatched event.
	Broadcaster dispatch.Broadcaster

	// Store is optional. It supplies binding overrides, records events and
	// remembers the enabled flag.
	Store *store.Store

	Logger *logrus.Logger
	Now    func() time.Time
}

// App handles input from connected identities and dispatches the gestures
// it recognizes.
type App struct {
	config     Config
	log        *logrus.Entry
	now        func() time.Time
	landmarks  *gesture.LandmarkClassifier
	frames     gesture.Classifier
	gate       *debounce.Filter
	dispatcher *dispatch.Dispatcher

	stopRecorder context.CancelFunc
	recorderDone chan struct{}

	mu      sync.RWMutex
	enabled bool
	closed  bool
	states  map[string]*gesture.MotionState
}

// New creates a new App. With a Store configured, binding overrides are
// loaded into the action table before any input is accepted.
func New(config Config) (*App, error) {
	if config.Logger == nil {
		config.Logger = logging.L()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Broadcaster == nil {
		config.Broadcaster = dispatch.Multi()
	}

	a := &App{
		config:    config,
		log:       config.Logger.WithField("component", "app"),
		now:       config.Now,
		landmarks: gesture.NewLandmarkClassifier(config.Thresholds, config.Detector),
		gate:      debounce.New(config.ClassifierDebounce),
		enabled:   true,
		states:    make(map[string]*gesture.MotionState),
	}

	motion := gesture.NewMotionFallbackClassifier(config.Thresholds.Motion)
	if config.Detector != nil {
		a.frames = &gesture.TrackerWithFallback{
			Primary:  a.landmarks,
			Fallback: motion,
			OnError: func(err error) {
				a.log.WithError(err).Warn("hand tracker failed, using motion fallback for this frame")
			},
		}
		a.log.Info("image frames use the hand tracker")
	} else {
		a.frames = motion
		a.log.Info("no hand tracker, image frames use the motion fallback")
	}

	mapping, err := a.loadBindings()
	if err != nil {
		return nil, fmt.Errorf("load bindings: %w", err)
	}

	opts := []dispatch.Option{
		dispatch.WithClock(config.Now),
		dispatch.WithLogger(config.Logger),
	}
	if config.Store != nil {
		rec := dispatch.NewQueuedRecorder(&eventRecorder{repo: config.Store.Events()}, dispatch.DefaultRecordQueue, config.Logger)
		ctx, cancel := context.WithCancel(context.Background())
		a.stopRecorder = cancel
		a.recorderDone = make(chan struct{})
		go func() {
			defer close(a.recorderDone)
			rec.Run(ctx)
		}()

		opts = append(opts, dispatch.WithRecorder(rec))
		a.enabled = a.loadEnabled()
	}
	a.dispatcher = dispatch.New(mapping, config.DispatchDebounce, config.Broadcaster, opts...)

	a.log.WithFields(logrus.Fields{
		"classifier_window": a.gate.Window(),
		"dispatch_window":   a.dispatcher.Window(),
	}).Info("debounce windows")

	return a, nil
}

// loadBindings applies enabled store bindings on top of the default table.
func (a *App) loadBindings() (*action.Mapping, error) {
	mapping := action.Default()
	if a.config.Store == nil {
		return mapping, nil
	}

	bindings, err := a.config.Store.Bindings().List()
	if err != nil {
		return nil, err
	}

	overrides := make(map[gesture.Label]action.ID)
	for _, b := range bindings {
		if !b.Enabled {
			continue
		}
		label, err := gesture.ParseLabel(b.Gesture)
		if err != nil {
			a.log.WithError(err).Warn("skipping binding")
			continue
		}
		overrides[label] = action.ID(b.Action)
	}

	a.log.WithField("overrides", len(overrides)).Info("loaded bindings from database")
	return mapping.With(overrides), nil
}

func (a *App) loadEnabled() bool {
	v, err := a.config.Store.Settings().Get(settingEnabled)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.log.WithError(err).Warn("read enabled setting")
		}
		return true
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return enabled
}

// SetEnabled pauses or resumes input handling. While paused, every inbound
// message is dropped.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(settingEnabled, strconv.FormatBool(enabled)); err != nil {
			a.log.WithError(err).Warn("persist enabled setting")
		}
	}
	a.log.WithField("enabled", enabled).Info("input toggled")
}

// IsEnabled returns whether input handling is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Mapping returns the effective action table.
func (a *App) Mapping() *action.Mapping {
	return a.dispatcher.Mapping()
}

// Connect starts a fresh session for identity, discarding any state left
// from a previous connection with the same identity.
func (a *App) Connect(identity string) {
	a.release(identity)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.states[identity] = gesture.NewMotionState()
	a.mu.Unlock()

	a.log.WithField("identity", identity).Debug("session started")
}

// Disconnect releases all per-identity state.
func (a *App) Disconnect(identity string) {
	a.release(identity)
	a.log.WithField("identity", identity).Debug("session ended")
}

func (a *App) release(identity string) {
	a.mu.Lock()
	state, ok := a.states[identity]
	delete(a.states, identity)
	a.mu.Unlock()

	if ok {
		state.Close()
	}
	a.gate.Forget(identity)
	a.dispatcher.Forget(identity)
}

// state returns the motion history for identity, creating it for callers
// that skipped Connect. After Close it returns ErrClosed.
func (a *App) state(identity string) (*gesture.MotionState, error) {
	a.mu.RLock()
	s, ok := a.states[identity]
	a.mu.RUnlock()
	if ok {
		return s, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}
	if s, ok = a.states[identity]; !ok {
		s = gesture.NewMotionState()
		a.states[identity] = s
	}
	return s, nil
}

// Sessions returns how many identities hold state.
func (a *App) Sessions() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.states)
}

// Close releases every session, flushes the event log and closes the hand
// tracker. Input handled afterwards fails with ErrClosed. Close is idempotent.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	states := a.states
	a.states = make(map[string]*gesture.MotionState)
	a.mu.Unlock()

	for id, s := range states {
		s.Close()
		a.gate.Forget(id)
		a.dispatcher.Forget(id)
	}

	if a.stopRecorder != nil {
		a.stopRecorder()
		<-a.recorderDone
	}

	if a.config.Detector != nil {
		if err := a.config.Detector.Close(); err != nil {
			return fmt.Errorf("close detector: %w", err)
		}
	}
	return nil
}
