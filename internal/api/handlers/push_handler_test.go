package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/patientcare/backend/internal/api/handlers"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/push"
)

func dialPush(t *testing.T, hub *push.Hub, query string) *websocket.Conn {
	t.Helper()
	handler := handlers.NewPushHandler(hub, []string{"http://portal.example"}, nil)
	server := httptest.NewServer(http.HandlerFunc(handler.Connect))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPushHandler_DeliversSubscribedEvents(t *testing.T) {
	hub := push.NewHub()
	conn := dialPush(t, hub, "?topics=patient:pat-1")

	require.Eventually(t, func() bool { return hub.TopicCount("patient:pat-1") == 1 }, time.Second, 10*time.Millisecond)

	event, err := entities.NewPortalEvent(entities.EventAppointmentCreated, "appt-1", "pat-1", "doc-1", map[string]string{"id": "appt-1"})
	require.NoError(t, err)
	hub.Broadcast(event.Topics, event)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got entities.PortalEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, entities.EventAppointmentCreated, got.Type)
	assert.Equal(t, "appt-1", got.AppointmentID)
}

func TestPushHandler_SubscribeAck(t *testing.T) {
	hub := push.NewHub()
	conn := dialPush(t, hub, "")

	require.NoError(t, conn.WriteJSON(push.ClientMessage{Action: "subscribe", Topics: []string{"staff", "bogus"}}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ack push.Ack
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "subscribed", ack.Type)
	assert.Equal(t, []string{"staff"}, ack.Topics)
	assert.Equal(t, 1, hub.TopicCount("staff"))
}

func TestPushHandler_UnregistersOnClose(t *testing.T) {
	hub := push.NewHub()
	conn := dialPush(t, hub, "?topics=staff")

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPushHandler_RejectsForeignOrigin(t *testing.T) {
	handler := handlers.NewPushHandler(push.NewHub(), []string{"http://portal.example"}, nil)
	server := httptest.NewServer(http.HandlerFunc(handler.Connect))
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
