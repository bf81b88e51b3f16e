// Package audit records the outcome of security-relevant and ledger-relevant
// decisions. Recording is strictly fire-and-forget: a failed or slow audit
// write must never block or roll back the decision it describes.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjmerc/arcana/internal/models"
	"github.com/fjmerc/arcana/internal/repository"
)

// Sink accepts structured audit events. Implementations must not block the
// caller and must swallow their own failures.
type Sink interface {
	Record(ctx context.Context, event models.AuditEvent)
}

// writeTimeout bounds each background audit write.
const writeTimeout = 5 * time.Second

// Logger persists events through an AuditRepository and mirrors failures to
// slog. Writes happen on a background goroutine with their own context, so
// cancellation of the originating request does not lose the record.
type Logger struct {
	repo repository.AuditRepository

	// wg lets Close wait for in-flight writes during shutdown.
	wg sync.WaitGroup
}

// NewLogger creates an audit logger backed by repo.
func NewLogger(repo repository.AuditRepository) *Logger {
	return &Logger{repo: repo}
}

// Record writes the event asynchronously. It never fails and never blocks
// beyond spawning the write.
func (l *Logger) Record(_ context.Context, event models.AuditEvent) {
	if event.Level == "" {
		event.Level = models.AuditLevelInfo
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		// Use a background context: the request context may already be
		// cancelled by the time the write runs.
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := l.repo.Insert(ctx, &event); err != nil {
			slog.Error("failed to record audit event",
				"error", err,
				"event", event.Event,
				"user_id", event.UserID,
			)
		}
	}()
}

// Close waits for in-flight audit writes to finish.
func (l *Logger) Close() {
	l.wg.Wait()
}

// NopSink discards all events. Used in tests and when auditing is disabled.
type NopSink struct{}

func (NopSink) Record(context.Context, models.AuditEvent) {}

// Tee fans each event out to every given sink. Sinks receive the event in
// order; each is responsible for its own non-blocking behavior.
func Tee(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Record(ctx context.Context, event models.AuditEvent) {
	for _, s := range m {
		s.Record(ctx, event)
	}
}

// Ensure implementations satisfy Sink.
var (
	_ Sink = (*Logger)(nil)
	_ Sink = NopSink{}
	_ Sink = multiSink{}
)
