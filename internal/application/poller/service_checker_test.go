package poller

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/health-checker/internal/application/aggregator"
	"github.com/dreschagin/health-checker/internal/application/bus"
	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/event"
	"github.com/dreschagin/health-checker/internal/domain/service"
	"github.com/dreschagin/health-checker/internal/domain/valueobject"
	"github.com/dreschagin/health-checker/pkg/logger"
)

type recordingSink struct {
	mu       sync.Mutex
	events   []event.Event
	sent     chan event.Event
	released int
	drained  chan struct{}
	sendErr  error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		sent:    make(chan event.Event, 100),
		drained: make(chan struct{}),
	}
}

func (s *recordingSink) Send(_ context.Context, ev event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.events = append(s.events, ev)
	s.sent <- ev
	return nil
}

func (s *recordingSink) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	if s.released == 1 {
		close(s.drained)
	}
}

func (s *recordingSink) Drained() <-chan struct{} { return s.drained }

type stubProber struct {
	results map[string]valueobject.Severity
}

func (p *stubProber) EvaluateService(_ context.Context, endpoint string) (valueobject.Severity, string, time.Duration) {
	return p.results[endpoint], "stub", 5 * time.Millisecond
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(&bytes.Buffer{}, "error")
}

func waitFor(t *testing.T, sink *recordingSink, n int) []event.Event {
	t.Helper()
	out := make([]event.Event, 0, n)
	deadline := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev := <-sink.sent:
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("received %d events, want %d", len(out), n)
		}
	}
	return out
}

func TestServiceChecker_EmitsHeartbeatsAndSweeps(t *testing.T) {
	services := []entity.Service{
		entity.NewService("api", "http://api"),
		entity.NewService("db", "http://db"),
	}
	prober := &stubProber{results: map[string]valueobject.Severity{
		"http://api": valueobject.Green,
		"http://db":  valueobject.Red,
	}}
	sink := newRecordingSink()
	checker := NewServiceChecker(services, prober, sink, Config{Interval: 5 * time.Millisecond, SweepEvery: 2}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- checker.Run(ctx) }()

	// two iterations: 2 heartbeats, 2 heartbeats, sweep
	events := waitFor(t, sink, 5)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i, want := range []event.Kind{event.KindHeartbeat, event.KindHeartbeat, event.KindHeartbeat, event.KindHeartbeat, event.KindCheckAll} {
		if events[i].Kind() != want {
			t.Fatalf("event %d kind = %s, want %s", i, events[i].Kind(), want)
		}
	}

	hb := events[1].(event.Heartbeat)
	target, ok := hb.Finding.Target.(event.ServiceTarget)
	if !ok || target.Name != "db" || hb.Finding.Severity != valueobject.Red {
		t.Fatalf("unexpected heartbeat: %+v", hb.Finding)
	}
	if target.Service.LatencyMS != 5 || target.Service.LastUpdated == 0 || target.Service.StatusMsg != "stub" {
		t.Fatalf("service snapshot not observed: %+v", target.Service)
	}

	if sink.released != 1 {
		t.Fatalf("producer released %d times, want 1", sink.released)
	}
}

func TestServiceChecker_StopsOnSendFailure(t *testing.T) {
	sink := newRecordingSink()
	sink.sendErr = bus.ErrReleased
	checker := NewServiceChecker([]entity.Service{entity.NewService("api", "http://api")}, &stubProber{}, sink,
		Config{Interval: time.Millisecond}, nil, testLogger())

	if err := checker.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sink.released != 1 {
		t.Fatalf("producer must be released after a send failure")
	}
}

type neverDrained struct{ *recordingSink }

func (s *neverDrained) Drained() <-chan struct{} { return make(chan struct{}) }

func TestServiceChecker_DrainTimeout(t *testing.T) {
	sink := &neverDrained{recordingSink: newRecordingSink()}
	checker := NewServiceChecker(nil, &stubProber{}, sink, Config{DrainTimeout: 10 * time.Millisecond}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := checker.Run(ctx); !errors.Is(err, ErrDrainTimeout) {
		t.Fatalf("Run() error = %v, want ErrDrainTimeout", err)
	}
}

type discardNotifier struct {
	mu      sync.Mutex
	batches int
}

func (n *discardNotifier) Notify(context.Context, []event.Finding) {
	n.mu.Lock()
	n.batches++
	n.mu.Unlock()
}

// Shutdown issued while a probe is in flight: the probe completes, its
// heartbeat reaches the aggregator and the aggregator sees end of stream.
func TestServiceChecker_ShutdownDrainsInFlightIteration(t *testing.T) {
	probing := make(chan struct{})
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(probing) })
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b := bus.New(1)
	producer, err := b.Producer()
	if err != nil {
		t.Fatalf("Producer() error = %v", err)
	}

	agg := aggregator.New(service.NewDoctor(time.Second), &discardNotifier{}, testLogger())
	aggDone := make(chan error, 1)
	go func() { aggDone <- agg.Run(context.Background(), b) }()

	checker := NewServiceChecker([]entity.Service{entity.NewService("api", server.URL)}, service.NewDoctor(time.Second), producer,
		Config{Interval: time.Millisecond, DrainTimeout: 2 * time.Second}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	checkerDone := make(chan error, 1)
	go func() { checkerDone <- checker.Run(ctx) }()

	<-probing
	cancel()

	if err := <-checkerDone; err != nil {
		t.Fatalf("checker Run() error = %v", err)
	}
	if err := <-aggDone; err != nil {
		t.Fatalf("aggregator Run() error = %v", err)
	}

	// Services() is safe here: Run has returned
	stored := agg.Services()["api"]
	if stored == nil || stored.StatusMsg != "success" {
		t.Fatalf("in-flight heartbeat lost: %+v", stored)
	}
	if stored.LatencyMS < 100 {
		t.Fatalf("latency = %dms, want >= 100ms", stored.LatencyMS)
	}
}
