package queue

import (
	"context"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/metrics"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }

// Fire publishes in the background, detached from the request context, and
// only logs failures. Votes are already committed when this runs.
func Fire(p Publisher, exchange, key string, event any, reqID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, exchange, key, event, reqID); err != nil {
			metrics.EventsPublished.WithLabelValues(key, "error").Inc()
			log.L().Warn("publish event", zap.String("key", key), zap.String("request_id", reqID), zap.Error(err))
			return
		}
		metrics.EventsPublished.WithLabelValues(key, "ok").Inc()
	}()
}
