// Package events publishes domain events about screenings and tickets to a
// message broker. Publishing is best effort: callers log failures and
// carry on, the database stays the source of truth.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cinema-scheduler/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ScreeningCreated = "screening.created"
	ScreeningUpdated = "screening.updated"
	ScreeningDeleted = "screening.deleted"
	TicketCreated    = "ticket.created"
	TicketAttached   = "ticket.attached"
	TicketRetyped    = "ticket.type_changed"
	TicketDeleted    = "ticket.deleted"
)

type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload"`
}

func NewEvent(eventType, aggregateID string, payload any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

func (e Event) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", e.Type, err)
	}
	return data, nil
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// New picks the publisher named by cfg.Backend.
func New(cfg utils.EventsConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Backend {
	case "", "none", "log":
		return NewLogPublisher(log), nil
	case "amqp", "rabbitmq":
		return NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// LogPublisher only writes events to the log.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.With(zap.String("component", "events"))}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.log.Debug("Event",
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
		zap.String("aggregate_id", event.AggregateID),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
