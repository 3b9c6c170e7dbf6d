package billing

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the durable queue billing consumes from.
const DefaultQueue = "billing_appointment_completed"

// AMQPTrigger publishes completed-appointment events to a durable RabbitMQ
// queue consumed by the billing worker.
type AMQPTrigger struct {
	ch    *amqp.Channel
	queue string
}

// NewAMQPTrigger opens a channel on conn and declares the durable queue.
func NewAMQPTrigger(conn *amqp.Connection, queue string) (*AMQPTrigger, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare billing queue: %w", err)
	}

	return &AMQPTrigger{ch: ch, queue: queue}, nil
}

func (t *AMQPTrigger) AppointmentCompleted(ctx context.Context, ev CompletedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal billing event: %w", err)
	}

	err = t.ch.PublishWithContext(ctx,
		"",      // default exchange
		t.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish billing event: %w", err)
	}

	return nil
}

func (t *AMQPTrigger) Close() error {
	return t.ch.Close()
}

// Consume attaches a consumer to the billing queue with manual acks.
func Consume(conn *amqp.Connection, queue string, prefetch int) (*amqp.Channel, <-chan amqp.Delivery, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("declare billing queue: %w", err)
	}

	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume billing queue: %w", err)
	}

	return ch, deliveries, nil
}
