package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"movie_api/internal/models"
	"movie_api/internal/observability"
	"movie_api/internal/queue"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	maxRetries       = 3
	retryCountHeader = "x-retry-count"
)

func retryCount(msg *amqp.Delivery) int32 {
	if msg.Headers == nil {
		return 0
	}
	switch count := msg.Headers[retryCountHeader].(type) {
	case int32:
		return count
	case int64:
		return int32(count)
	case int:
		return int32(count)
	default:
		return 0
	}
}

func republishWithRetry(ctx context.Context, ch queue.Channel, msg *amqp.Delivery, retryCount int32) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Create new headers with incremented retry count
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retryCountHeader] = retryCount

	return ch.PublishWithContext(
		ctx,
		"",             // exchange
		msg.RoutingKey, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Body:         msg.Body,
			Headers:      headers,
		},
	)
}

// Worker consumes favorite events from one AMQP channel.
type Worker struct {
	id        int
	ch        queue.Channel
	processor *Processor
	metrics   *observability.Metrics
}

func NewWorker(id int, ch queue.Channel, processor *Processor, metrics *observability.Metrics) *Worker {
	return &Worker{
		id:        id,
		ch:        ch,
		processor: processor,
		metrics:   metrics,
	}
}

// StartWorker consumes the favorite events queue until ctx is cancelled or
// the delivery channel closes.
func StartWorker(ctx context.Context, conn *amqp.Connection, processor *Processor, metrics *observability.Metrics, id int) error {
	ch, err := queue.CreateChannel(conn)
	if err != nil {
		return fmt.Errorf("worker %d: %w", id, err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("worker %d failed to set QoS: %w", id, err)
	}

	if _, err := queue.DeclareQueue(ch, queue.FavoriteEventsQueue); err != nil {
		return fmt.Errorf("worker %d: %w", id, err)
	}

	msgs, err := ch.Consume(
		queue.FavoriteEventsQueue,
		fmt.Sprintf("favorite-worker-%d", id),
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("worker %d failed to start consuming messages: %w", id, err)
	}

	logrus.Infof("Worker %d started", id)
	w := NewWorker(id, ch, processor, metrics)

	for {
		select {
		case <-ctx.Done():
			logrus.Infof("Worker %d stopping", id)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("worker %d: delivery channel closed", id)
			}
			w.handleDelivery(ctx, msg)
		}
	}
}

// handleDelivery processes one message and settles it: ack on success,
// republish with an incremented retry count on a transient failure, and
// drop on a permanent failure or after maxRetries.
func (w *Worker) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	w.metrics.MessageConsumed(queue.FavoriteEventsQueue)

	var event models.FavoriteEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		logrus.WithError(err).Error("invalid favorite event payload")
		w.metrics.FavoriteEventProcessed("unknown", "failed", 0)
		_ = msg.Nack(false, false)
		return
	}

	count := retryCount(&msg)
	action := string(event.Action)

	logrus.WithFields(logrus.Fields{
		"worker":   w.id,
		"movie_id": event.MovieID,
		"action":   action,
		"retry":    count,
	}).Debug("Processing favorite event")

	startTime := time.Now()
	err := w.processor.Process(ctx, event, w.id)
	if err == nil {
		w.metrics.FavoriteEventProcessed(action, "success", time.Since(startTime).Seconds())
		_ = msg.Ack(false)
		return
	}

	if errors.Is(err, ErrPermanent) {
		logrus.WithError(err).Warn("Dropping favorite event")
		w.metrics.FavoriteEventProcessed(action, "failed", 0)
		_ = msg.Nack(false, false)
		return
	}

	logrus.WithError(err).Error("Failed to apply favorite event")

	if count >= maxRetries {
		logrus.Errorf("Worker %d: favorite event dropped after %d retries", w.id, count)
		w.metrics.FavoriteEventProcessed(action, "failed", 0)
		_ = msg.Nack(false, false)
		return
	}

	logrus.Infof("Worker %d: requeuing favorite event (retry %d/%d)", w.id, count+1, maxRetries)

	if err := republishWithRetry(ctx, w.ch, &msg, count+1); err != nil {
		logrus.WithError(err).Error("Failed to republish message")
		w.metrics.FavoriteEventProcessed(action, "failed", 0)
		_ = msg.Nack(false, false)
		return
	}

	w.metrics.MessagePublished(queue.FavoriteEventsQueue)
	w.metrics.FavoriteEventProcessed(action, "retried", 0)
	_ = msg.Ack(false)
}
