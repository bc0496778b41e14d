// Package aggregator owns the canonical health table. It is the single
// consumer of the event bus: every read and write of the table happens on the
// goroutine running Run.
package aggregator

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dreschagin/health-checker/internal/application/bus"
	"github.com/dreschagin/health-checker/internal/application/port"
	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/event"
	"github.com/dreschagin/health-checker/internal/domain/service"
	"github.com/dreschagin/health-checker/internal/domain/valueobject"
	"github.com/dreschagin/health-checker/internal/infrastructure/metrics"
	"github.com/dreschagin/health-checker/pkg/logger"
)

// Source определяет потребительскую сторону шины событий
type Source interface {
	Receive(ctx context.Context) (event.Event, error)
	MarkDrained()
	Len() int
}

// Classifier оценивает сохраненный снимок узла во время обхода
type Classifier interface {
	EvaluateNode(node *entity.Node, now time.Time) (valueobject.Severity, string)
}

// Aggregator обрабатывает события строго по одному, без внутренней конкурентности
type Aggregator struct {
	nodes    map[string]*entity.Node
	services map[string]*entity.Service

	doctor   Classifier
	notifier port.Notifier
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time
}

// Option настраивает Aggregator
type Option func(*Aggregator)

// WithClock подменяет источник времени для обхода CheckAll
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithMetrics включает метрики обработки событий
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// New создает агрегатор с пустой таблицей
func New(doctor Classifier, notifier port.Notifier, log *logger.Logger, opts ...Option) *Aggregator {
	if doctor == nil {
		doctor = service.NewDoctor(service.DefaultProbeTimeout)
	}

	a := &Aggregator{
		nodes:    make(map[string]*entity.Node),
		services: make(map[string]*entity.Service),
		doctor:   doctor,
		notifier: notifier,
		logger:   log.With("component", "aggregator"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Run читает события, пока шина не сообщит о конце потока.
// Отмена ctx означает жесткую остановку после истечения grace period.
func (a *Aggregator) Run(ctx context.Context, source Source) error {
	a.logger.Info("Aggregator started")

	for {
		ev, err := source.Receive(ctx)
		if errors.Is(err, bus.ErrClosed) {
			source.MarkDrained()
			a.logger.Info("Event stream closed, aggregator stopped",
				"nodes", len(a.nodes),
				"services", len(a.services),
			)
			return nil
		}
		if err != nil {
			a.logger.Warn("Aggregator interrupted before end of stream", "error", err, "pending", source.Len())
			return err
		}

		a.metrics.ObserveBusDepth(source.Len())
		a.Handle(ctx, ev)
	}
}

// Handle применяет одно событие к таблице. Вызывается только из Run и тестов.
func (a *Aggregator) Handle(ctx context.Context, ev event.Event) {
	switch e := ev.(type) {
	case event.Heartbeat:
		a.handleHeartbeat(ctx, e.Finding)
	case event.Offline:
		a.handleOffline(e.Target)
	case event.CheckAll:
		a.handleCheckAll(ctx)
	default:
		a.logger.Warn("Unknown event dropped")
		a.metrics.Malformed()
		return
	}

	a.metrics.EventProcessed(string(ev.Kind()))
	a.metrics.Tracked(len(a.nodes), len(a.services))
}

func (a *Aggregator) handleHeartbeat(ctx context.Context, finding event.Finding) {
	switch t := finding.Target.(type) {
	case event.NodeTarget:
		if t.Node == nil {
			a.malformed(t)
			return
		}
		a.nodes[t.Name] = t.Node.Clone()
	case event.ServiceTarget:
		if t.Service == nil {
			a.malformed(t)
			return
		}
		a.services[t.Name] = t.Service.Clone()
	default:
		a.logger.Warn("Heartbeat without target dropped")
		a.metrics.Malformed()
		return
	}

	a.logger.Debug("Heartbeat stored",
		"kind", finding.Target.Kind(),
		"id", finding.Target.ID(),
		"severity", finding.Severity,
	)

	if finding.Severity == valueobject.Red {
		a.notifier.Notify(ctx, []event.Finding{finding})
	}
}

func (a *Aggregator) malformed(target event.Target) {
	a.logger.Warn("Malformed heartbeat: no snapshot attached",
		"kind", target.Kind(),
		"id", target.ID(),
	)
	a.metrics.Malformed()
}

func (a *Aggregator) handleOffline(target event.Target) {
	var removed bool

	switch t := target.(type) {
	case event.NodeTarget:
		_, removed = a.nodes[t.Name]
		delete(a.nodes, t.Name)
	case event.ServiceTarget:
		_, removed = a.services[t.Name]
		delete(a.services, t.Name)
	default:
		a.logger.Warn("Offline without target dropped")
		a.metrics.Malformed()
		return
	}

	if !removed {
		// продюсер и агрегатор разошлись в состоянии
		a.logger.Error("Offline for unknown target", nil,
			"kind", target.Kind(),
			"id", target.ID(),
		)
		a.metrics.OfflineAnomaly()
		return
	}

	a.logger.Info("Target removed", "kind", target.Kind(), "id", target.ID())
}

// handleCheckAll переоценивает все узлы относительно текущего времени.
// Сервисы не проверяются: их состояние приходит только через Heartbeat.
func (a *Aggregator) handleCheckAll(ctx context.Context) {
	ids := make([]string, 0, len(a.nodes))
	for id := range a.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	findings := make([]event.Finding, 0, len(ids))
	for _, id := range ids {
		snapshot := a.nodes[id].Clone()
		severity, msg := a.doctor.EvaluateNode(snapshot, a.now())
		snapshot.StatusMsg = msg
		findings = append(findings, event.NewNodeFinding(snapshot, severity))
	}

	a.logger.Info("Sweep completed",
		"nodes", len(findings),
		"overall_status", overall(findings),
	)

	// полный пакет отправляется всегда, даже если все зеленые
	a.notifier.Notify(ctx, findings)
}

func overall(findings []event.Finding) valueobject.Severity {
	severity := valueobject.Green
	for _, f := range findings {
		severity = severity.Max(f.Severity)
	}
	return severity
}

// Nodes возвращает копию таблицы узлов. Не потокобезопасно: только для тестов
// и вызовов с той же горутины, что и Run.
func (a *Aggregator) Nodes() map[string]*entity.Node {
	out := make(map[string]*entity.Node, len(a.nodes))
	for id, n := range a.nodes {
		out[id] = n.Clone()
	}
	return out
}

// Services возвращает копию таблицы сервисов с теми же ограничениями, что и Nodes.
func (a *Aggregator) Services() map[string]*entity.Service {
	out := make(map[string]*entity.Service, len(a.services))
	for name, s := range a.services {
		out[name] = s.Clone()
	}
	return out
}
