package service

import (
	"context"
	"fmt"
	"sync"

	"clinic-appointment-service/internal/domain/entity"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// EventPublisher announces appointment state changes. Publishing happens
// after commit and is best effort: callers log failures and move on.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.AppointmentEvent) error
	Close() error
}

type rabbitMQPublisher struct {
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
	log      *logrus.Logger
}

// NewRabbitMQPublisher declares a durable topic exchange; the event type is the routing key.
func NewRabbitMQPublisher(conn *amqp.Connection, exchange string, log *logrus.Logger) (EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &rabbitMQPublisher{
		channel:  ch,
		exchange: exchange,
		log:      log,
	}, nil
}

func (p *rabbitMQPublisher) Publish(ctx context.Context, event entity.AppointmentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.log.Debugf("Published %s for appointment %s", event.Type, event.AppointmentID)
	return nil
}

func (p *rabbitMQPublisher) Close() error {
	return p.channel.Close()
}

type logEventPublisher struct {
	log *logrus.Logger
}

// NewLogEventPublisher is used when no broker is configured.
func NewLogEventPublisher(log *logrus.Logger) EventPublisher {
	return &logEventPublisher{log: log}
}

func (p *logEventPublisher) Publish(ctx context.Context, event entity.AppointmentEvent) error {
	p.log.WithFields(logrus.Fields{
		"event":          event.Type,
		"appointment_id": event.AppointmentID,
		"doctor_id":      event.DoctorID,
		"patient_id":     event.PatientID,
		"state":          event.State,
	}).Info("Appointment event")
	return nil
}

func (p *logEventPublisher) Close() error {
	return nil
}
