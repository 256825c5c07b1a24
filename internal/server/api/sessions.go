package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Session describes one connected client.
type Session struct {
	Identity    string    `json:"identity"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// SessionLister reports the connected clients.
type SessionLister interface {
	Sessions() []Session
}

// SessionHandler serves the list of connected identities.
type SessionHandler struct {
	lister SessionLister
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(l SessionLister) *SessionHandler {
	return &SessionHandler{lister: l}
}

// Register mounts the handler on r.
func (h *SessionHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/sessions", h.list).Methods(http.MethodGet)
}

type listSessionsResponse struct {
	Sessions []Session `json:"sessions"`
	Count    int       `json:"count"`
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions := h.lister.Sessions()
	if sessions == nil {
		sessions = []Session{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions, Count: len(sessions)})
}
