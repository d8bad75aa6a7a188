package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/kmit-fdms/fdms/internal/models"
)

type Publisher interface {
	PublishProfileEvent(ctx context.Context, event *models.ProfileEvent) error
	Close() error
}

// RabbitPublisher sends profile lifecycle events to a topic exchange, using
// the event type as routing key.
type RabbitPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	log      *logrus.Logger
}

func NewRabbitPublisher(uri, exchange string, log *logrus.Logger) (*RabbitPublisher, error) {
	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.WithField("exchange", exchange).Info("event publisher initialized")
	return &RabbitPublisher{conn: conn, channel: channel, exchange: exchange, log: log}, nil
}

func (p *RabbitPublisher) PublishProfileEvent(ctx context.Context, event *models.ProfileEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		string(event.EventType),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			Headers: amqp091.Table{
				"event_type": string(event.EventType),
				"profile_id": event.ProfileID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"event_type": event.EventType,
		"profile_id": event.ProfileID,
	}).Debug("published profile event")
	return nil
}

func (p *RabbitPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.WithError(err).Warn("error closing RabbitMQ channel")
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}
	return nil
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishProfileEvent(context.Context, *models.ProfileEvent) error { return nil }
func (NoopPublisher) Close() error                                                     { return nil }

// RecordingPublisher keeps events in memory; tests use it to assert what was sent.
type RecordingPublisher struct {
	Events []models.ProfileEvent
}

func (r *RecordingPublisher) PublishProfileEvent(_ context.Context, event *models.ProfileEvent) error {
	r.Events = append(r.Events, *event)
	return nil
}

func (r *RecordingPublisher) Close() error { return nil }
