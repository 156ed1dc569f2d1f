package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// headered events expose routing metadata as AMQP headers so consumers can
// filter without decoding the body.
type headered interface {
	Headers() map[string]any
}

// RabbitPublisher publishes persistent JSON events on a topic exchange with
// publisher confirms: Publish returns only once the broker took the message.
type RabbitPublisher struct {
	conn *amqp.Connection

	mu sync.Mutex // confirms are matched in publish order
	ch *amqp.Channel
}

func NewRabbit(url, exchange string) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbit dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbit channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch}, nil
}

func (p *RabbitPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	// closing the connection closes the channel with it
	return p.conn.Close()
}

func (p *RabbitPublisher) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	if p == nil || p.ch == nil {
		return nil
	}
	msg, err := publishing(key, event, reqID, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	dc, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	ok, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", key, err)
	}
	if !ok {
		return errors.New("broker nacked " + key)
	}
	return nil
}

func publishing(key string, event any, reqID string, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", key, err)
	}
	headers := amqp.Table{"X-Request-ID": reqID}
	if h, ok := event.(headered); ok {
		for k, v := range h.Headers() {
			headers[k] = v
		}
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Type:         key,
		Headers:      headers,
		Body:         body,
	}, nil
}
