package portalapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/patientcare/backend/internal/api/handlers"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/portalapi"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/push"
)

type chanSink chan *entities.PortalEvent

func (c chanSink) Emit(event *entities.PortalEvent) { c <- event }

func TestNewPushSubscriber_Endpoint(t *testing.T) {
	sub, err := portalapi.NewPushSubscriber("https://portal.example/", []string{"staff", "patient:p1"}, chanSink(nil))
	require.NoError(t, err)
	assert.Equal(t, "wss://portal.example/ws?topics=staff%2Cpatient%3Ap1", sub.Endpoint())

	_, err = portalapi.NewPushSubscriber("ftp://portal.example", nil, chanSink(nil))
	assert.Error(t, err)
}

func TestPushSubscriber_ForwardsEvents(t *testing.T) {
	hub := push.NewHub()
	handler := handlers.NewPushHandler(hub, []string{"*"}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", handler.Connect)
	server := httptest.NewServer(mux)
	defer server.Close()

	sink := make(chanSink, 4)
	sub, err := portalapi.NewPushSubscriber(server.URL, []string{"doctor:doc-1"}, sink)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	require.Eventually(t, func() bool { return hub.TopicCount("doctor:doc-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	event, err := entities.NewPortalEvent(entities.EventConsultationStarted, "appt-1", "pat-1", "doc-1", nil)
	require.NoError(t, err)
	hub.Broadcast(event.Topics, event)

	select {
	case got := <-sink:
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, entities.EventConsultationStarted, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not forwarded")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
