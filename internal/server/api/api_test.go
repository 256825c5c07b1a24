package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/gesturecast/internal/action"
	"github.com/ayusman/gesturecast/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

type staticMapping struct{ m *action.Mapping }

func (s staticMapping) Mapping() *action.Mapping { return s.m }

type staticSessions []Session

func (s staticSessions) Sessions() []Session { return s }

func serve(t *testing.T, register func(*mux.Router), method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	r := mux.NewRouter()
	register(r)

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestActionHandler(t *testing.T) {
	h := NewActionHandler(staticMapping{action.Default()})

	t.Run("list", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodGet, "/api/actions", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response struct {
			Actions []struct {
				Gesture string `json:"gesture"`
				Action  string `json:"action"`
			} `json:"actions"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Actions) != 7 {
			t.Errorf("expected 7 actions, got %d", len(response.Actions))
		}
	})

	t.Run("get alias", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodGet, "/api/actions/victory", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var entry action.Entry
		json.NewDecoder(rec.Body).Decode(&entry)
		if entry.Action != action.RotateBottle {
			t.Errorf("action = %s, want %s", entry.Action, action.RotateBottle)
		}
	})

	t.Run("unmapped gesture", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodGet, "/api/actions/none", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("unknown gesture", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodGet, "/api/actions/moonwalk", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("read only", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodPost, "/api/actions", []byte(`{}`))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestBindingHandler(t *testing.T) {
	s := newTestStore(t)
	h := NewBindingHandler(s)

	t.Run("put creates", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodPut, "/api/bindings/rock", []byte(`{"action":"chill"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}

		b, err := s.Bindings().Get("ice")
		if err != nil {
			t.Fatalf("binding not stored under canonical name: %v", err)
		}
		if b.Action != "chill" || !b.Enabled {
			t.Errorf("got %+v", b)
		}
	})

	t.Run("put can disable", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodPut, "/api/bindings/ice", []byte(`{"action":"chill","enabled":false}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		b, _ := s.Bindings().Get("ice")
		if b.Enabled {
			t.Error("binding should be disabled")
		}
	})

	t.Run("put rejects bad json", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodPut, "/api/bindings/ice", []byte(`{`))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("put rejects long action", func(t *testing.T) {
		long := bytes.Repeat([]byte("a"), 65)
		rec := serve(t, h.Register, http.MethodPut, "/api/bindings/ice", []byte(`{"action":"`+string(long)+`"}`))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("put rejects unknown gesture", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodPut, "/api/bindings/wave", []byte(`{"action":"hi"}`))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("list and get", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodGet, "/api/bindings", nil)
		var response struct {
			Bindings []bindingResponse `json:"bindings"`
		}
		json.NewDecoder(rec.Body).Decode(&response)
		if len(response.Bindings) != 1 {
			t.Fatalf("expected 1 binding, got %d", len(response.Bindings))
		}

		rec = serve(t, h.Register, http.MethodGet, "/api/bindings/ice", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodDelete, "/api/bindings/ice", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}

		rec = serve(t, h.Register, http.MethodDelete, "/api/bindings/ice", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}

		rec = serve(t, h.Register, http.MethodGet, "/api/bindings/ice", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestEventHandler(t *testing.T) {
	s := newTestStore(t)
	h := NewEventHandler(s)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"01A", "01B", "01C"} {
		e := &store.Event{ID: id, Kind: "gesture", Gesture: "fist", Source: "a", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.Events().Create(e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	t.Run("limit", func(t *testing.T) {
		rec := serve(t, h.Register, http.MethodGet, "/api/events?limit=2", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response struct {
			Events []eventResponse `json:"events"`
		}
		json.NewDecoder(rec.Body).Decode(&response)
		if len(response.Events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(response.Events))
		}
		if response.Events[0].ID != "01C" {
			t.Errorf("newest event = %s, want 01C", response.Events[0].ID)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		for _, q := range []string{"0", "-1", "abc", "501"} {
			rec := serve(t, h.Register, http.MethodGet, "/api/events?limit="+q, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit=%s: expected status %d, got %d", q, http.StatusBadRequest, rec.Code)
			}
		}
	})
}

func TestSessionHandler(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		h := NewSessionHandler(staticSessions(nil))
		rec := serve(t, h.Register, http.MethodGet, "/api/sessions", nil)

		if got := rec.Body.String(); !bytes.Contains([]byte(got), []byte(`"sessions":[]`)) {
			t.Errorf("expected empty sessions array, got %s", got)
		}
	})

	t.Run("lists identities", func(t *testing.T) {
		h := NewSessionHandler(staticSessions{{Identity: "a"}, {Identity: "b"}})
		rec := serve(t, h.Register, http.MethodGet, "/api/sessions", nil)

		var response listSessionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Count != 2 || response.Sessions[1].Identity != "b" {
			t.Errorf("unexpected response: %+v", response)
		}
	})
}
