// Package alarm delivers finding batches to every configured notification
// channel. Delivery failures never leave this package.
package alarm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/health-checker/internal/application/dto"
	"github.com/dreschagin/health-checker/internal/application/port"
	"github.com/dreschagin/health-checker/internal/domain/event"
	"github.com/dreschagin/health-checker/internal/infrastructure/metrics"
	"github.com/dreschagin/health-checker/pkg/logger"
)

// DefaultChannelTimeout bounds a single channel delivery.
const DefaultChannelTimeout = 10 * time.Second

// Alarm implements port.Notifier.
type Alarm struct {
	channels       []port.NotificationChannel
	channelTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *logger.Logger

	now   func() time.Time
	newID func() string
}

// Option configures an Alarm.
type Option func(*Alarm)

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Alarm) { a.now = now }
}

// WithIDs overrides report id generation.
func WithIDs(newID func() string) Option {
	return func(a *Alarm) { a.newID = newID }
}

// WithMetrics records delivery results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Alarm) { a.metrics = m }
}

// New creates an Alarm. A zero channelTimeout uses DefaultChannelTimeout.
func New(channels []port.NotificationChannel, channelTimeout time.Duration, log *logger.Logger, opts ...Option) *Alarm {
	if channelTimeout <= 0 {
		channelTimeout = DefaultChannelTimeout
	}

	a := &Alarm{
		channels:       channels,
		channelTimeout: channelTimeout,
		logger:         log,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Notify builds one report from findings and hands it to each channel in
// turn. It returns once every channel succeeded, failed or timed out.
func (a *Alarm) Notify(ctx context.Context, findings []event.Finding) {
	report := dto.NewReportDTO(a.newID(), a.now(), findings)

	if len(a.channels) == 0 {
		a.logger.Info("No notification channels configured",
			"report_id", report.ID,
			"events", report.Summary.Total,
			"overall_status", report.Summary.OverallStatus,
		)
		return
	}

	for _, ch := range a.channels {
		a.deliver(ctx, ch, report)
	}
}

func (a *Alarm) deliver(ctx context.Context, ch port.NotificationChannel, report *dto.ReportDTO) {
	deliverCtx, cancel := context.WithTimeout(ctx, a.channelTimeout)
	defer cancel()

	err := a.safeDeliver(deliverCtx, ch, report)
	a.metrics.Notification(ch.Name(), err)

	if err == nil {
		a.logger.Info("Report delivered",
			"channel", ch.Name(),
			"report_id", report.ID,
			"events", report.Summary.Total,
		)
		return
	}

	a.logger.Error("Could not deliver report", err, "channel", ch.Name(), "report_id", report.ID)

	payload, marshalErr := json.Marshal(report)
	if marshalErr != nil {
		a.logger.Error("Could not encode undelivered report", marshalErr, "report_id", report.ID)
		return
	}
	a.logger.Info("Undelivered report", "channel", ch.Name(), "payload", string(payload))
}

// safeDeliver turns a channel panic into an error
func (a *Alarm) safeDeliver(ctx context.Context, ch port.NotificationChannel, report *dto.ReportDTO) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()

	return ch.Deliver(ctx, report)
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("channel panicked: %v", e.value)
}
