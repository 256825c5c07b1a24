package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/gesturecast/internal/detector"
	"github.com/ayusman/gesturecast/internal/dispatch"
	"github.com/ayusman/gesturecast/internal/logging"
	"github.com/ayusman/gesturecast/internal/server/api"
)

// ErrMalformedMessage is returned for inbound messages that cannot be decoded.
var ErrMalformedMessage = errors.New("malformed message")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Handler processes input from one identity. Calls for the same identity are
// never concurrent.
type Handler interface {
	Connect(identity string)
	Disconnect(identity string)
	HandleLandmarks(identity string, hands [][]detector.Point3D) ([]dispatch.Event, error)
	HandleFrame(identity string, data []byte) ([]dispatch.Event, error)
	HandleLabel(identity, raw string) ([]dispatch.Event, error)
}

// HubConfig limits what a single connection may send.
type HubConfig struct {
	MaxMessagesPerSecond float64
	Burst                int
	MaxMessageBytes      int64
	WriteTimeout         time.Duration
	Logger               *logrus.Logger
}

// Hub owns the websocket connections. It assigns each one an identity,
// feeds its messages to the Handler and fans dispatched events out to every
// client.
type Hub struct {
	config   HubConfig
	log      *logrus.Entry
	validate *validator.Validate

	handlerMu sync.RWMutex
	handler   Handler

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	limiter     *rate.Limiter
	remoteAddr  string
	connectedAt time.Time
}

// inbound is a text message from a client.
type inbound struct {
	Type    string               `json:"type" validate:"required,oneof=gesture landmarks"`
	Gesture string               `json:"gesture" validate:"required_if=Type gesture,max=64"`
	Hands   [][]detector.Point3D `json:"hands" validate:"max=2,dive,len=21"`
}

// envelope is every outbound message.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type actionData struct {
	Action         string `json:"action"`
	SourceIdentity string `json:"source_identity"`
}

type connectedData struct {
	Data     string `json:"data"`
	Identity string `json:"identity"`
}

// NewHub creates a Hub. Call SetHandler before serving connections.
func NewHub(config HubConfig) *Hub {
	if config.Logger == nil {
		config.Logger = logging.L()
	}
	if config.MaxMessagesPerSecond <= 0 {
		config.MaxMessagesPerSecond = 30
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxMessageBytes <= 0 {
		config.MaxMessageBytes = 2 << 20
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	return &Hub{
		config:   config,
		log:      config.Logger.WithField("component", "hub"),
		validate: validator.New(),
		clients:  make(map[string]*client),
	}
}

// SetHandler sets the input handler.
func (h *Hub) SetHandler(handler Handler) {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.handler = handler
}

func (h *Hub) currentHandler() Handler {
	h.handlerMu.RLock()
	defer h.handlerMu.RUnlock()
	return h.handler
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := h.currentHandler()
	if handler == nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		limiter:     rate.NewLimiter(rate.Limit(h.config.MaxMessagesPerSecond), h.config.Burst),
		remoteAddr:  r.RemoteAddr,
		connectedAt: time.Now(),
	}
	log := h.log.WithField("identity", c.id)

	handler.Connect(c.id)

	greeting, _ := json.Marshal(envelope{
		Event: "response",
		Data:  connectedData{Data: "Connected", Identity: c.id},
	})
	c.send <- greeting

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	log.WithField("remote", c.remoteAddr).Info("client connected")

	go h.writePump(c)
	h.readPump(c, handler, log)

	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()

	handler.Disconnect(c.id)
	log.Info("client disconnected")
}

func (h *Hub) readPump(c *client, handler Handler, log *logrus.Entry) {
	defer c.conn.Close()

	c.conn.SetReadLimit(h.config.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("read failed")
			}
			return
		}

		if !c.limiter.Allow() {
			log.Debug("rate limited, dropping message")
			continue
		}

		if err := h.handleMessage(c.id, kind, data, handler); err != nil {
			log.WithError(err).Warn("dropping message")
		}
	}
}

func (h *Hub) handleMessage(identity string, kind int, data []byte, handler Handler) error {
	switch kind {
	case websocket.BinaryMessage:
		_, err := handler.HandleFrame(identity, data)
		return err

	case websocket.TextMessage:
		msg, err := h.decode(data)
		if err != nil {
			return err
		}
		switch msg.Type {
		case "gesture":
			_, err = handler.HandleLabel(identity, msg.Gesture)
		case "landmarks":
			_, err = handler.HandleLandmarks(identity, msg.Hands)
		}
		return err
	}
	return nil
}

// decode parses a text message. A bare JSON string is shorthand for a
// gesture message.
func (h *Hub) decode(data []byte) (inbound, error) {
	var msg inbound

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var label string
		if err := json.Unmarshal(trimmed, &label); err != nil {
			return msg, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		msg.Type = "gesture"
		msg.Gesture = label
	} else if err := json.Unmarshal(trimmed, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if err := h.validate.Struct(msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return msg, nil
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast implements dispatch.Broadcaster. A client whose buffer is full
// misses the event rather than stalling the others.
func (h *Hub) Broadcast(e dispatch.Event) {
	msg, err := encodeEvent(e)
	if err != nil {
		h.log.WithError(err).Error("encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.WithField("identity", c.id).Warn("send buffer full, dropping event")
		}
	}
}

func encodeEvent(e dispatch.Event) ([]byte, error) {
	switch e.Kind {
	case dispatch.KindGesture:
		return json.Marshal(envelope{Event: "gesture", Data: e.Gesture})
	case dispatch.KindAction:
		return json.Marshal(envelope{
			Event: "action",
			Data:  actionData{Action: string(e.Action), SourceIdentity: e.Source},
		})
	}
	return nil, fmt.Errorf("unknown event kind %q", e.Kind)
}

// Sessions lists connected clients ordered by connection time.
func (h *Hub) Sessions() []api.Session {
	h.mu.RLock()
	out := make([]api.Session, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, api.Session{
			Identity:    c.id,
			RemoteAddr:  c.remoteAddr,
			ConnectedAt: c.connectedAt,
		})
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}
