package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/gesturecast/internal/store"
)

// MaxEventLimit bounds the limit query parameter.
const MaxEventLimit = 500

// EventHandler serves the recorded dispatch log.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates a new EventHandler with the given store.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

// Register mounts the handler on r.
func (h *EventHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/events", h.list).Methods(http.MethodGet)
}

type eventResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Gesture   string `json:"gesture"`
	Action    string `json:"action,omitempty"`
	Source    string `json:"source_identity"`
	CreatedAt string `json:"created_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

// list handles GET /api/events?limit=N, newest first.
func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > MaxEventLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(MaxEventLimit))
			return
		}
		limit = n
	}

	events, err := h.store.Events().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{
		Events: make([]eventResponse, 0, len(events)),
	}
	for _, e := range events {
		response.Events = append(response.Events, eventResponse{
			ID:        e.ID,
			Kind:      e.Kind,
			Gesture:   e.Gesture,
			Action:    e.Action,
			Source:    e.Source,
			CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
