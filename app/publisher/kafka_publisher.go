package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/factory"
)

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	topic  string
	retry  RetryConfig
	logger logrus.FieldLogger
}

func NewKafkaPublisher(brokers []string, topic string, retry RetryConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	return newKafkaPublisher(writer, topic, retry)
}

func newKafkaPublisher(writer messageWriter, topic string, retry RetryConfig) *KafkaPublisher {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 5
	}
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = 100 * time.Millisecond
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = 10 * time.Second
	}
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		retry:  retry,
		logger: factory.NewModuleLogger("notification-publisher"),
	}
}

// Publish writes the notification keyed by recipient so one recipient's
// notifications stay ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, notification Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(notification.RecipientRef),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(notification.Type)},
		},
	}

	return p.publishWithRetry(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) publishWithRetry(ctx context.Context, msg kafka.Message) error {
	var lastErr error

	for attempt := 0; attempt < p.retry.MaxAttempts; attempt++ {
		err := p.writer.WriteMessages(ctx, msg)
		if err == nil {
			if attempt > 0 {
				p.logger.WithFields(logrus.Fields{"topic": p.topic, "attempts": attempt + 1}).Info("Notification published after retry")
			}
			return nil
		}

		lastErr = err
		if attempt == p.retry.MaxAttempts-1 {
			break
		}

		delay := p.backoff(attempt)
		p.logger.WithError(err).WithFields(logrus.Fields{
			"topic":   p.topic,
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).Warn("Notification publish failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	return fmt.Errorf("publish to topic %q failed after %d attempts: %w", p.topic, p.retry.MaxAttempts, lastErr)
}

func (p *KafkaPublisher) backoff(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * p.retry.BaseDelay
	if delay > p.retry.MaxDelay {
		delay = p.retry.MaxDelay
	}

	if p.retry.Jitter {
		jitter := time.Duration(rand.Float64() * float64(delay) * 0.3)
		delay = delay + jitter - time.Duration(float64(delay)*0.15)
	}

	return delay
}
