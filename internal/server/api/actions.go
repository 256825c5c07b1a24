package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/gesturecast/internal/action"
)

// MappingSource exposes the action table in effect.
type MappingSource interface {
	Mapping() *action.Mapping
}

// ActionHandler serves the effective gesture-to-action table.
type ActionHandler struct {
	source MappingSource
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(source MappingSource) *ActionHandler {
	return &ActionHandler{source: source}
}

// Register mounts the handler on r.
func (h *ActionHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/actions", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/actions/{gesture}", h.get).Methods(http.MethodGet)
}

type listActionsResponse struct {
	Actions []action.Entry `json:"actions"`
}

// list handles GET /api/actions.
func (h *ActionHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listActionsResponse{Actions: h.source.Mapping().Entries()})
}

// get handles GET /api/actions/{gesture}. Aliases resolve to their canonical label.
func (h *ActionHandler) get(w http.ResponseWriter, r *http.Request) {
	label, ok := parseGesture(mux.Vars(r)["gesture"])
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown gesture")
		return
	}

	id, ok := h.source.Mapping().Lookup(label)
	if !ok {
		writeError(w, http.StatusNotFound, "No action bound to gesture")
		return
	}

	writeJSON(w, http.StatusOK, action.Entry{Gesture: label, Action: id})
}
