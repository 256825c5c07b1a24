package dispatch

import (
	"fmt"
	"time"

	"github.com/ayusman/gesturecast/internal/action"
	"github.com/ayusman/gesturecast/internal/debounce"
	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Dispatcher maps gestures to actions and broadcasts the result. Labels that
// arrive pre-classified from clients pass through its own debounce gate.
type Dispatcher struct {
	mapping *action.Mapping
	gate    *debounce.Filter
	out     Broadcaster
	rec     Recorder
	log     *logrus.Entry
	now     func() time.Time
	newID   func() string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithRecorder persists every dispatched event. Record runs on the dispatch
// path; wrap anything that does I/O in a QueuedRecorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.rec = r }
}

// WithLogger sets the logger used for dropped input and recorder failures.
func WithLogger(l *logrus.Logger) Option {
	return func(d *Dispatcher) { d.log = l.WithField("component", "dispatch") }
}

// New creates a Dispatcher. window is the debounce applied by Receive.
func New(mapping *action.Mapping, window time.Duration, out Broadcaster, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mapping: mapping,
		gate:    debounce.New(window),
		out:     out,
		log:     logrus.StandardLogger().WithField("component", "dispatch"),
		now:     time.Now,
		newID:   func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch broadcasts a gesture event for label and, when the label is
// mapped, an action event attributed to identity. It returns the events in
// the order they were sent.
func (d *Dispatcher) Dispatch(identity string, label gesture.Label) []Event {
	now := d.now()
	events := []Event{{
		ID:      d.newID(),
		Kind:    KindGesture,
		Gesture: label,
		Source:  identity,
		Time:    now,
	}}

	if id, ok := d.mapping.Lookup(label); ok {
		events = append(events, Event{
			ID:      d.newID(),
			Kind:    KindAction,
			Gesture: label,
			Action:  id,
			Source:  identity,
			Time:    now,
		})
	} else {
		d.log.WithFields(logrus.Fields{"identity": identity, "gesture": label}).Debug("no action for gesture")
	}

	for _, e := range events {
		d.out.Broadcast(e)
		if d.rec != nil {
			if err := d.rec.Record(e); err != nil {
				d.log.WithError(err).WithField("event", e.ID).Warn("record event failed")
			}
		}
	}
	return events
}

// Receive handles a label sent by a client. Unknown labels return an error
// wrapping gesture.ErrUnknownLabel and emit nothing. A label repeated inside
// the debounce window returns no events.
func (d *Dispatcher) Receive(identity, raw string) ([]Event, error) {
	label, err := gesture.ParseLabel(raw)
	if err != nil {
		return nil, fmt.Errorf("receive from %s: %w", identity, err)
	}
	if !d.gate.ShouldEmit(identity, label, d.now()) {
		return nil, nil
	}
	return d.Dispatch(identity, label), nil
}

// Forget releases the debounce state of identity.
func (d *Dispatcher) Forget(identity string) {
	d.gate.Forget(identity)
}

// Mapping returns the action table in use.
func (d *Dispatcher) Mapping() *action.Mapping {
	return d.mapping
}

// Window returns the debounce window applied by Receive.
func (d *Dispatcher) Window() time.Duration {
	return d.gate.Window()
}

// Tracked returns how many identities hold debounce state.
func (d *Dispatcher) Tracked() int {
	return d.gate.Len()
}
