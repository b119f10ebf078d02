package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// EventType identifies a room lifecycle event.
type EventType string

const (
	EventTypePlayerJoined EventType = "PlayerJoined"
	EventTypePlayerLeft   EventType = "PlayerLeft"
	EventTypeGameStarted  EventType = "GameStarted"
	EventTypeGameFinished EventType = "GameFinished"
)

// RoomEvent is the envelope published for every room lifecycle change.
type RoomEvent struct {
	ID        uuid.UUID       `json:"event_id"`
	Type      EventType       `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewRoomEvent builds an envelope around a marshaled payload.
func NewRoomEvent(eventType EventType, payload any) (RoomEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return RoomEvent{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return RoomEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// Publisher delivers room lifecycle events to an external stream. Delivery is
// best-effort; the room never blocks on a slow or absent broker.
type Publisher interface {
	Publish(ctx context.Context, event RoomEvent) error
	Close() error
}

// NATSPublisher publishes room events to NATS subjects <prefix>.room.<type>.
type NATSPublisher struct {
	nc            *nats.Conn
	subjectPrefix string
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "arcade.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, subjectPrefix: cfg.SubjectPrefix}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event RoomEvent) error {
	subject := fmt.Sprintf("%s.room.%s", p.subjectPrefix, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", event.ID.String()).
		Msg("published room event")

	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func NewNopPublisher() *NopPublisher {
	return &NopPublisher{}
}

func (p *NopPublisher) Publish(ctx context.Context, event RoomEvent) error {
	return nil
}

func (p *NopPublisher) Close() error {
	return nil
}
