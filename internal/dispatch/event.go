// Package dispatch turns accepted gestures into events and fans them out.
package dispatch

import (
	"time"

	"github.com/ayusman/gesturecast/internal/action"
	"github.com/ayusman/gesturecast/internal/gesture"
)

// Kind distinguishes the two outbound event types.
type Kind string

const (
	KindGesture Kind = "gesture"
	KindAction  Kind = "action"
)

// Event is one outbound notification. Gesture is set on every event; Action
// only on KindAction.
type Event struct {
	ID      string        `json:"id"`
	Kind    Kind          `json:"kind"`
	Gesture gesture.Label `json:"gesture"`
	Action  action.ID     `json:"action,omitempty"`
	Source  string        `json:"source_identity"`
	Time    time.Time     `json:"time"`
}

// Broadcaster delivers events to consumers. Implementations must not block
// on slow consumers.
type Broadcaster interface {
	Broadcast(Event)
}

// BroadcasterFunc adapts a function to Broadcaster.
type BroadcasterFunc func(Event)

func (f BroadcasterFunc) Broadcast(e Event) { f(e) }

// Recorder persists dispatched events.
type Recorder interface {
	Record(Event) error
}

type multi []Broadcaster

func (m multi) Broadcast(e Event) {
	for _, b := range m {
		b.Broadcast(e)
	}
}

// Multi fans every event out to each non-nil broadcaster in order.
func Multi(bs ...Broadcaster) Broadcaster {
	out := make(multi, 0, len(bs))
	for _, b := range bs {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}
