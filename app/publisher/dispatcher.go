package publisher

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/factory"
)

type Publisher interface {
	Publish(ctx context.Context, notification Notification) error
}

// Dispatcher hands notifications to a background worker so callers never
// wait on the broker. Notifications that do not fit in the queue are dropped
// and logged.
type Dispatcher struct {
	publisher Publisher
	queue     chan Notification
	logger    logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(publisher Publisher, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		publisher: publisher,
		queue:     make(chan Notification, buffer),
		logger:    factory.NewModuleLogger("notification-dispatcher"),
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for notification := range d.queue {
			if err := d.publisher.Publish(ctx, notification); err != nil {
				d.logger.WithError(err).WithFields(logrus.Fields{
					"type":      notification.Type,
					"recipient": notification.RecipientRef,
				}).Error("Notification dispatch failed")
			}
		}
	}()
}

func (d *Dispatcher) Notify(_ context.Context, notification Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WithField("type", notification.Type).Warn("Dispatcher closed, notification dropped")
		return
	}

	select {
	case d.queue <- notification:
	default:
		d.logger.WithField("type", notification.Type).Warn("Notification queue full, notification dropped")
	}
}

// Close stops accepting notifications and waits for queued ones to be published.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
