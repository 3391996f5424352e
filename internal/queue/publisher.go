package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"movie_api/internal/models"
	"movie_api/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// FavoritePublisher sends favorite events on a single shared channel.
// amqp channels are not safe for concurrent publishing, so sends are serialized.
type FavoritePublisher struct {
	mu      sync.Mutex
	ch      Channel
	queue   string
	metrics *observability.Metrics
	timeout time.Duration
}

// NewFavoritePublisher opens a channel on conn and declares the favorite events queue.
func NewFavoritePublisher(conn *amqp.Connection, metrics *observability.Metrics) (*FavoritePublisher, error) {
	ch, err := CreateChannel(conn)
	if err != nil {
		return nil, err
	}

	if _, err := DeclareQueue(ch, FavoriteEventsQueue); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return newFavoritePublisher(ch, metrics), nil
}

func newFavoritePublisher(ch Channel, metrics *observability.Metrics) *FavoritePublisher {
	return &FavoritePublisher{
		ch:      ch,
		queue:   FavoriteEventsQueue,
		metrics: metrics,
		timeout: 5 * time.Second,
	}
}

func (p *FavoritePublisher) PublishFavoriteEvent(ctx context.Context, event models.FavoriteEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode favorite event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish favorite event: %w", err)
	}

	p.metrics.MessagePublished(p.queue)
	return nil
}

func (p *FavoritePublisher) Close() error {
	return p.ch.Close()
}
