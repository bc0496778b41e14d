package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/event"
	"github.com/dreschagin/health-checker/internal/domain/valueobject"
	"github.com/dreschagin/health-checker/internal/infrastructure/metrics"
	"github.com/dreschagin/health-checker/pkg/logger"
)

const (
	DefaultInterval     = 300 * time.Second
	DefaultSweepEvery   = 10
	DefaultDrainTimeout = 10 * time.Second
)

// ErrDrainTimeout is returned when the consumer did not finish the stream in time.
var ErrDrainTimeout = errors.New("timed out waiting for event bus to drain")

// Prober classifies one service endpoint.
type Prober interface {
	EvaluateService(ctx context.Context, endpoint string) (valueobject.Severity, string, time.Duration)
}

// Sink is the producer side of the event bus.
type Sink interface {
	Send(ctx context.Context, ev event.Event) error
	Release()
	Drained() <-chan struct{}
}

// Config controls the polling cadence.
type Config struct {
	Interval     time.Duration
	SweepEvery   int
	DrainTimeout time.Duration
}

// ServiceChecker probes a fixed list of services on a timer and emits one
// Heartbeat per service, plus a CheckAll every SweepEvery iterations.
type ServiceChecker struct {
	services []entity.Service
	prober   Prober
	sink     Sink
	cfg      Config
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewServiceChecker(services []entity.Service, prober Prober, sink Sink, cfg Config, m *metrics.Metrics, log *logger.Logger) *ServiceChecker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = DefaultSweepEvery
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}

	return &ServiceChecker{
		services: append([]entity.Service(nil), services...),
		prober:   prober,
		sink:     sink,
		cfg:      cfg,
		metrics:  m,
		logger:   log.With("component", "service_checker"),
	}
}

// Run blocks until ctx is cancelled. Cancellation is observed only between
// iterations; a running iteration always completes. On return the producer
// handle has been released and the consumer has drained the bus, or
// ErrDrainTimeout is reported.
func (c *ServiceChecker) Run(ctx context.Context) error {
	c.logger.Info("Service checker started",
		"services", len(c.services),
		"interval", c.cfg.Interval,
		"sweep_every", c.cfg.SweepEvery,
	)

	timer := time.NewTimer(c.cfg.Interval)
	defer timer.Stop()

	for iteration := 1; ; iteration++ {
		select {
		case <-ctx.Done():
			return c.shutdown()
		case <-timer.C:
		}

		if err := c.iterate(context.WithoutCancel(ctx), iteration); err != nil {
			c.logger.Error("Service check iteration aborted", err, "iteration", iteration)
			return c.shutdown()
		}

		timer.Reset(c.cfg.Interval)
	}
}

func (c *ServiceChecker) iterate(ctx context.Context, iteration int) error {
	for _, svc := range c.services {
		severity, msg, latency := c.prober.EvaluateService(ctx, svc.API)
		c.metrics.Probe(svc.Name, severity.String(), latency)

		c.logger.Debug("Service probed",
			"service", svc.Name,
			"severity", severity,
			"latency", latency,
		)

		observed := svc.Observed(latency, time.Now(), msg)
		if err := c.sink.Send(ctx, event.Heartbeat{Finding: event.NewServiceFinding(observed, severity)}); err != nil {
			return fmt.Errorf("failed to send heartbeat for %s: %w", svc.Name, err)
		}
	}

	if iteration%c.cfg.SweepEvery == 0 {
		if err := c.sink.Send(ctx, event.CheckAll{}); err != nil {
			return fmt.Errorf("failed to send sweep trigger: %w", err)
		}
		c.logger.Info("Sweep requested", "iteration", iteration)
	}

	return nil
}

func (c *ServiceChecker) shutdown() error {
	c.logger.Info("Service checker stopping, waiting for event bus to drain")
	c.sink.Release()

	timer := time.NewTimer(c.cfg.DrainTimeout)
	defer timer.Stop()

	select {
	case <-c.sink.Drained():
		c.logger.Info("Service checker stopped")
		return nil
	case <-timer.C:
		return ErrDrainTimeout
	}
}
