package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/observability"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/push"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// PushHandler upgrades connections to the WebSocket push channel
type PushHandler struct {
	hub      *push.Hub
	upgrader websocket.Upgrader
	metrics  *observability.Metrics
}

// NewPushHandler creates a new push-channel handler. Origins are checked
// against allowedOrigins; "*" allows any.
func NewPushHandler(hub *push.Hub, allowedOrigins []string, metrics *observability.Metrics) *PushHandler {
	return &PushHandler{
		hub:     hub,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// Connect handles GET /ws. Initial topics may be passed as ?topics=a,b.
func (h *PushHandler) Connect(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("push upgrade failed")
		return
	}

	client := push.NewClient()
	h.hub.Register(client)
	observability.RecordPushConnection(r.Context(), h.metrics, 1)

	if raw := r.URL.Query().Get("topics"); raw != "" {
		h.hub.Subscribe(client, strings.Split(raw, ","))
	}

	log.Debug().Str("client_id", client.ID).Msg("push client connected")

	go h.writePump(client, conn)
	h.readPump(client, conn)
}

// readPump processes control messages until the connection drops
func (h *PushHandler) readPump(client *push.Client, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
		observability.RecordPushConnection(context.Background(), h.metrics, -1)
		log.Debug().Str("client_id", client.ID).Msg("push client disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg push.ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if ack := h.hub.ProcessMessage(client, msg); ack != nil {
			data, err := json.Marshal(ack)
			if err != nil {
				continue
			}
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// writePump writes queued events and keeps the connection alive with pings
func (h *PushHandler) writePump(client *push.Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
