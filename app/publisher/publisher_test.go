package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	messages []kafka.Message
	calls    int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.failures > 0 {
		w.failures--
		return errors.New("broker not available")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestKafkaPublisherPublishEncodesNotification(t *testing.T) {
	writer := &fakeWriter{}
	p := newKafkaPublisher(writer, "notifications", fastRetry())

	err := p.Publish(context.Background(), Notification{
		Type:         NotificationKYCVerified,
		RecipientRef: "org-1",
		TemplateData: map[string]interface{}{"organizer_id": "org-1"},
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "org-1", string(msg.Key))
	var decoded Notification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, NotificationKYCVerified, decoded.Type)
	assert.Equal(t, "org-1", decoded.TemplateData["organizer_id"])
}

func TestKafkaPublisherRetriesTransientFailures(t *testing.T) {
	writer := &fakeWriter{failures: 2}
	p := newKafkaPublisher(writer, "notifications", fastRetry())

	require.NoError(t, p.Publish(context.Background(), Notification{Type: NotificationRefundProcessed}))
	assert.Equal(t, 3, writer.calls)
}

func TestKafkaPublisherGivesUpAfterMaxAttempts(t *testing.T) {
	writer := &fakeWriter{failures: 10}
	p := newKafkaPublisher(writer, "notifications", fastRetry())

	err := p.Publish(context.Background(), Notification{Type: NotificationRefundProcessed})
	require.Error(t, err)
	assert.Equal(t, 3, writer.calls)
}

func TestKafkaPublisherStopsOnContextCancel(t *testing.T) {
	writer := &fakeWriter{failures: 10}
	p := newKafkaPublisher(writer, "notifications", RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, Notification{Type: NotificationRefundProcessed})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKafkaPublisherBackoffIsCapped(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{}, "notifications", RetryConfig{MaxAttempts: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second})

	assert.Equal(t, 100*time.Millisecond, p.backoff(0))
	assert.Equal(t, 400*time.Millisecond, p.backoff(2))
	assert.Equal(t, time.Second, p.backoff(8))
}

type recordingPublisher struct {
	mu    sync.Mutex
	items []Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, n)
	return nil
}

func TestDispatcherDeliversQueuedNotificationsOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 10)
	d.Start(context.Background())

	d.Notify(context.Background(), Notification{Type: NotificationKYCVerified})
	d.Notify(context.Background(), Notification{Type: NotificationConnectActivated})
	d.Close()

	require.Len(t, pub.items, 2)
	assert.Equal(t, NotificationKYCVerified, pub.items[0].Type)

	d.Notify(context.Background(), Notification{Type: NotificationRefundProcessed})
	assert.Len(t, pub.items, 2, "notifications after close are dropped")
	d.Close()
}
