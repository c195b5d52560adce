package portalapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/pkg/retry"
)

// EventSink receives events read from the push channel
type EventSink interface {
	Emit(event *entities.PortalEvent)
}

// PushSubscriber keeps a WebSocket connection to /ws open and forwards every
// event to the sink, reconnecting with backoff when the connection drops
type PushSubscriber struct {
	endpoint string
	sink     EventSink
	dialer   *websocket.Dialer
	retry    retry.Config
}

// NewPushSubscriber builds a subscriber for baseURL (http or https)
func NewPushSubscriber(baseURL string, topics []string, sink EventSink) (*PushSubscriber, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/ws")
	if err != nil {
		return nil, err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported push scheme %q", parsed.Scheme)
	}
	if len(topics) > 0 {
		query := parsed.Query()
		query.Set("topics", strings.Join(topics, ","))
		parsed.RawQuery = query.Encode()
	}

	cfg := retry.DefaultConfig("push channel")
	cfg.MaxAttempts = math.MaxInt32
	cfg.MaxTotalTimeout = 0
	cfg.InitialDelay = 500 * time.Millisecond
	cfg.MaxDelay = 15 * time.Second

	return &PushSubscriber{
		endpoint: parsed.String(),
		sink:     sink,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		retry:    cfg,
	}, nil
}

// Endpoint returns the WebSocket URL the subscriber dials
func (s *PushSubscriber) Endpoint() string {
	return s.endpoint
}

// Run blocks until ctx is cancelled. Each dropped connection is redialled
// with exponential backoff; the backoff resets after a successful session.
func (s *PushSubscriber) Run(ctx context.Context) error {
	for {
		cfg := s.retry
		cfg.OnRetry = func(attempt int, err error, next time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next", next).Msg("push channel reconnecting")
		}

		var conn *websocket.Conn
		err := retry.Do(ctx, cfg, func(ctx context.Context) error {
			c, _, err := s.dialer.DialContext(ctx, s.endpoint, nil)
			if err != nil {
				return err
			}
			conn = c
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		log.Info().Str("endpoint", s.endpoint).Msg("push channel connected")
		s.readLoop(ctx, conn)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *PushSubscriber) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("push channel read failed")
			}
			return
		}

		var event entities.PortalEvent
		if err := json.Unmarshal(data, &event); err != nil || event.ID == "" {
			// acks and malformed frames are not events
			continue
		}
		s.sink.Emit(&event)
	}
}
