package messaging

import (
	"fmt"

	"clinic-appointment-service/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// NewRabbitMQConnection dials the broker. A nil connection with a nil error
// means messaging is not configured.
func NewRabbitMQConnection(cfg config.MessagingConfig) (*amqp.Connection, error) {
	if cfg.RabbitMQURL == "" {
		logrus.Warn("RABBITMQ_URL is empty, appointment events will only be logged")
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	logrus.Info("Successfully connected to RabbitMQ")

	return conn, nil
}
