package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/store"
)

// BindingHandler manages stored binding overrides. Changes take effect the
// next time the server starts; the live action table is never mutated.
type BindingHandler struct {
	store    *store.Store
	validate *validator.Validate
}

// NewBindingHandler creates a new BindingHandler with the given store.
func NewBindingHandler(s *store.Store) *BindingHandler {
	return &BindingHandler{store: s, validate: validator.New()}
}

// Register mounts the handler on r.
func (h *BindingHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/bindings", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/bindings/{gesture}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/bindings/{gesture}", h.put).Methods(http.MethodPut)
	r.HandleFunc("/api/bindings/{gesture}", h.delete).Methods(http.MethodDelete)
}

type putBindingRequest struct {
	Action  string `json:"action" validate:"omitempty,max=64,printascii"`
	Enabled *bool  `json:"enabled"`
}

type bindingResponse struct {
	Gesture   string `json:"gesture"`
	Action    string `json:"action"`
	Enabled   bool   `json:"enabled"`
	UpdatedAt string `json:"updated_at"`
}

type listBindingsResponse struct {
	Bindings []bindingResponse `json:"bindings"`
}

func toBindingResponse(b *store.Binding) bindingResponse {
	return bindingResponse{
		Gesture:   b.Gesture,
		Action:    b.Action,
		Enabled:   b.Enabled,
		UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
	}
}

// list handles GET /api/bindings.
func (h *BindingHandler) list(w http.ResponseWriter, r *http.Request) {
	bindings, err := h.store.Bindings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bindings")
		return
	}

	response := listBindingsResponse{
		Bindings: make([]bindingResponse, 0, len(bindings)),
	}
	for _, b := range bindings {
		response.Bindings = append(response.Bindings, toBindingResponse(b))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/bindings/{gesture}.
func (h *BindingHandler) get(w http.ResponseWriter, r *http.Request) {
	label, ok := parseGesture(mux.Vars(r)["gesture"])
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown gesture")
		return
	}

	b, err := h.store.Bindings().Get(string(label))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get binding")
		return
	}

	writeJSON(w, http.StatusOK, toBindingResponse(b))
}

// put handles PUT /api/bindings/{gesture}. An empty action unbinds the gesture.
func (h *BindingHandler) put(w http.ResponseWriter, r *http.Request) {
	label, ok := parseGesture(mux.Vars(r)["gesture"])
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown gesture")
		return
	}

	var req putBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid action name")
		return
	}

	b := &store.Binding{
		Gesture: string(label),
		Action:  req.Action,
		Enabled: req.Enabled == nil || *req.Enabled,
	}
	if existing, err := h.store.Bindings().Get(b.Gesture); err == nil {
		b.CreatedAt = existing.CreatedAt
	}

	if err := h.store.Bindings().Upsert(b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save binding")
		return
	}

	writeJSON(w, http.StatusOK, toBindingResponse(b))
}

// delete handles DELETE /api/bindings/{gesture}.
func (h *BindingHandler) delete(w http.ResponseWriter, r *http.Request) {
	label, ok := parseGesture(mux.Vars(r)["gesture"])
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown gesture")
		return
	}

	if err := h.store.Bindings().Delete(string(label)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete binding")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseGesture(raw string) (gesture.Label, bool) {
	label, err := gesture.ParseLabel(raw)
	return label, err == nil
}
