// Package notify forwards audit events to an operator-configured HTTP
// endpoint. Delivery is asynchronous and best-effort: a slow or failing
// receiver never blocks the request that produced the event.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/fjmerc/arcana/internal/audit"
	"github.com/fjmerc/arcana/internal/models"
)

// maxRetries is how many delivery attempts each event gets.
const maxRetries = 3

// MetricsRecorder is an interface for recording delivery metrics
type MetricsRecorder interface {
	RecordEvent(eventType string)
	RecordDelivery(eventType, status string)
	RecordDeliveryDuration(eventType string, duration time.Duration)
	RecordRetry(eventType string)
	RecordDroppedEvent()
	SetQueueSize(size int)
}

// Dispatcher handles asynchronous event delivery. It satisfies audit.Sink so
// it can be teed alongside the database audit logger.
type Dispatcher struct {
	client       *Client
	eventChan    chan models.AuditEvent
	workerCount  int
	shutdown     chan struct{}
	wg           sync.WaitGroup
	metrics      MetricsRecorder
	shutdownOnce sync.Once
}

// NewDispatcher creates a dispatcher that delivers through client.
func NewDispatcher(client *Client, workerCount, bufferSize int, metrics MetricsRecorder) *Dispatcher {
	return &Dispatcher{
		client:      client,
		eventChan:   make(chan models.AuditEvent, bufferSize),
		workerCount: workerCount,
		shutdown:    make(chan struct{}),
		metrics:     metrics,
	}
}

// Start starts the delivery workers
func (d *Dispatcher) Start() {
	slog.Info("starting audit webhook dispatcher", "workers", d.workerCount)

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Shutdown gracefully shuts down the dispatcher. Queued events are delivered
// before it returns; safe to call more than once.
func (d *Dispatcher) Shutdown() {
	d.shutdownOnce.Do(func() {
		slog.Info("shutting down audit webhook dispatcher")

		// Closing shutdown first stops Record from enqueueing, which makes
		// closing the event channel safe
		close(d.shutdown)
		close(d.eventChan)
	})

	d.wg.Wait()
}

// Record enqueues an event for delivery. It never blocks: when the queue is
// full or the dispatcher is shutting down, the event is dropped and counted.
func (d *Dispatcher) Record(_ context.Context, event models.AuditEvent) {
	select {
	case <-d.shutdown:
		slog.Warn("audit webhook dispatcher shutting down, dropping event", "event", event.Event)
		d.metrics.RecordDroppedEvent()
		return
	default:
	}

	select {
	case d.eventChan <- event:
		d.metrics.RecordEvent(event.Event)
		d.metrics.SetQueueSize(len(d.eventChan))
	default:
		slog.Warn("audit webhook queue full, dropping event", "event", event.Event)
		d.metrics.RecordDroppedEvent()
	}
}

// worker delivers events from the channel
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	slog.Debug("audit webhook worker started", "worker_id", id)

	for event := range d.eventChan {
		d.deliver(event)
		d.metrics.SetQueueSize(len(d.eventChan))
	}

	slog.Debug("audit webhook worker stopped", "worker_id", id)
}

// deliver attempts delivery with exponential backoff between retries.
func (d *Dispatcher) deliver(event models.AuditEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal audit event", "error", err, "event", event.Event)
		return
	}

	for attempt := 0; ; attempt++ {
		startTime := time.Now()
		result := d.client.Deliver(context.Background(), payload)
		d.metrics.RecordDeliveryDuration(event.Event, time.Since(startTime))

		if result.Success {
			d.metrics.RecordDelivery(event.Event, "success")
			return
		}

		if !ShouldRetry(attempt+1, maxRetries) {
			d.metrics.RecordDelivery(event.Event, "failed")
			slog.Error("audit webhook delivery failed after max retries",
				"event", event.Event,
				"attempts", attempt+1,
				"response_code", result.ResponseCode,
				"error", result.Error,
			)
			return
		}

		d.metrics.RecordRetry(event.Event)

		select {
		case <-d.shutdown:
			// Shutting down, retry immediately instead of sleeping
		case <-time.After(RetryDelay(attempt)):
		}
	}
}

// QueueSize returns the current size of the event queue
func (d *Dispatcher) QueueSize() int {
	return len(d.eventChan)
}

var _ audit.Sink = (*Dispatcher)(nil)
