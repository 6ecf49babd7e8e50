package queue

import (
	"context"
	"fmt"

	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeName = "checkout.events"

// One queue per outbox channel; the back office and the notification sender
// consume them.
var bindings = map[string]string{
	usecase.ChannelOrderConfirmed:  "order.confirmed.q",
	usecase.ChannelReconcileManual: "reconcile.manual.q",
}

type RabbitProducer struct {
	ch *amqp.Channel
}

// NewRabbitProducer sets up the exchange, queues, and bindings once at startup.
func NewRabbitProducer(ch *amqp.Channel) (*RabbitProducer, error) {
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	for routingKey, queueName := range bindings {
		q, err := ch.QueueDeclare(
			queueName,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
		}
		if err := ch.QueueBind(q.Name, routingKey, exchangeName, false, nil); err != nil {
			return nil, fmt.Errorf("bind queue %s: %w", queueName, err)
		}
	}

	// publisher confirms
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitProducer{ch: ch}, nil
}

// PublishEvent sends an already-serialized outbox payload under its channel's
// routing key.
func (p *RabbitProducer) PublishEvent(ctx context.Context, routingKey string, body []byte) error {
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Body:         body,
	}
	if err := p.ch.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
