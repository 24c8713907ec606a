package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
	"github.com/NgTrQuang/booking-vehicle/pkg/metrics"
	"github.com/NgTrQuang/booking-vehicle/pkg/rabbit"
)

const (
	TripExchange = "trip_topic"

	serviceName = "booking-vehicle"
)

// TripBroker publishes trip lifecycle events to the trip_topic exchange.
// Consumers are audit/analytics; publishing is best effort and must never
// block the trip state machine.
type TripBroker struct {
	client   *rabbit.RabbitMQ
	exchange string

	l logger.Logger
}

func NewTripBroker(ctx context.Context, client *rabbit.RabbitMQ, log logger.Logger) (*TripBroker, error) {
	b := &TripBroker{
		client:   client,
		exchange: TripExchange,
		l:        log,
	}

	if err := client.Channel.ExchangeDeclare(
		b.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %q: %w", b.exchange, err)
	}

	return b, nil
}

// PublishTripStatus publishes a status transition with routing key
// 'trip.status.<STATUS>'.
func (b *TripBroker) PublishTripStatus(ctx context.Context, msg models.TripStatusMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_trip_status")

	if err := b.client.EnsureConnection(ctx); err != nil {
		b.l.Error(ctx, "ensure connection failed", err)
		metrics.RecordRabbitMQPublish(serviceName, b.exchange, err)
		return wrap.Error(ctx, err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	key := fmt.Sprintf("trip.status.%s", msg.Status)

	err = retry(3, time.Second, func() error {
		return b.client.Channel.PublishWithContext(
			ctx,
			b.exchange, // exchange
			key,        // routing key
			false,      // mandatory
			false,      // immediate
			amqp091.Publishing{
				ContentType:   "application/json",
				CorrelationId: msg.CorrelationID,
				Body:          body,
				Timestamp:     time.Now(),
			},
		)
	})

	metrics.RecordRabbitMQPublish(serviceName, b.exchange, err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to publish trip status: %w", err))
	}

	return nil
}

func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for i := 0; i < n; i++ {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(sleep)
	}
	return err
}
