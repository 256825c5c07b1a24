package app

import (
	"github.com/ayusman/gesturecast/internal/dispatch"
	"github.com/ayusman/gesturecast/internal/store"
)

// eventRecorder writes dispatched events to the store's event log.
type eventRecorder struct {
	repo *store.EventRepository
}

func (r *eventRecorder) Record(e dispatch.Event) error {
	return r.repo.Create(&store.Event{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Gesture:   string(e.Gesture),
		Action:    string(e.Action),
		Source:    e.Source,
		CreatedAt: e.Time,
	})
}
