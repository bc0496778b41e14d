package alarm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dreschagin/health-checker/internal/application/dto"
	"github.com/dreschagin/health-checker/internal/application/port"
	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/event"
	"github.com/dreschagin/health-checker/internal/domain/valueobject"
	"github.com/dreschagin/health-checker/internal/infrastructure/metrics"
	"github.com/dreschagin/health-checker/pkg/logger"
)

type recordingChannel struct {
	name    string
	err     error
	panics  bool
	block   bool
	reports []*dto.ReportDTO
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Deliver(ctx context.Context, report *dto.ReportDTO) error {
	if c.panics {
		panic("smtp exploded")
	}
	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	c.reports = append(c.reports, report)
	return c.err
}

var fixedTime = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newTestAlarm(buf *bytes.Buffer, m *metrics.Metrics, channels ...port.NotificationChannel) *Alarm {
	return New(channels, 50*time.Millisecond, logger.NewWithWriter(buf, "debug"),
		WithClock(func() time.Time { return fixedTime }),
		WithIDs(func() string { return "report-1" }),
		WithMetrics(m),
	)
}

func redFinding() event.Finding {
	return event.NewNodeFinding(&entity.Node{ID: "n1", DiskPer: 95, StatusMsg: "Error: disk > 90% (95%)"}, valueobject.Red)
}

func TestAlarm_DeliversToEveryChannel(t *testing.T) {
	var buf bytes.Buffer
	first := &recordingChannel{name: "first"}
	second := &recordingChannel{name: "second"}

	newTestAlarm(&buf, nil, first, second).Notify(context.Background(), []event.Finding{redFinding()})

	for _, ch := range []*recordingChannel{first, second} {
		if len(ch.reports) != 1 {
			t.Fatalf("channel %s got %d reports, want 1", ch.name, len(ch.reports))
		}
		report := ch.reports[0]
		if report.ID != "report-1" || !report.UpdateTime.Equal(fixedTime) {
			t.Fatalf("unexpected report header: %+v", report)
		}
		if report.Summary.RedCount != 1 || report.Events[0].ID != "n1" {
			t.Fatalf("unexpected report body: %+v", report)
		}
	}
}

func TestAlarm_FailureIsContainedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	m := metrics.New(prometheus.NewRegistry())
	failing := &recordingChannel{name: "smtp", err: errors.New("connection refused")}
	panicking := &recordingChannel{name: "hub", panics: true}
	slow := &recordingChannel{name: "slow", block: true}
	healthy := &recordingChannel{name: "archive"}

	newTestAlarm(&buf, m, failing, panicking, slow, healthy).Notify(context.Background(), []event.Finding{redFinding()})

	if len(healthy.reports) != 1 {
		t.Fatalf("healthy channel must still receive the report")
	}

	out := buf.String()
	for _, want := range []string{
		"Could not deliver report | channel=smtp",
		"channel panicked: smtp exploded",
		"context deadline exceeded",
		"Undelivered report | channel=smtp payload=",
		`"id":"report-1"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("smtp", "error")); got != 1 {
		t.Fatalf("smtp error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("archive", "ok")); got != 1 {
		t.Fatalf("archive ok count = %v, want 1", got)
	}
}

func TestAlarm_NoChannels(t *testing.T) {
	var buf bytes.Buffer
	newTestAlarm(&buf, nil).Notify(context.Background(), nil)

	if !strings.Contains(buf.String(), "No notification channels configured") {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}

type fakePublisher struct {
	subject string
	event   interface{}
	err     error
}

func (p *fakePublisher) PublishEvent(_ context.Context, subject string, ev interface{}) error {
	p.subject = subject
	p.event = ev
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func TestBrokerChannel_SubjectBySeverity(t *testing.T) {
	pub := &fakePublisher{}
	ch := NewBrokerChannel(pub, "health.reports")
	report := dto.NewReportDTO("r1", fixedTime, []event.Finding{redFinding()})

	if err := ch.Deliver(context.Background(), report); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if pub.subject != "health.reports.red" {
		t.Fatalf("subject = %s, want health.reports.red", pub.subject)
	}
	if pub.event != report {
		t.Fatalf("published payload is not the report")
	}

	pub.err = errors.New("nats down")
	if err := ch.Deliver(context.Background(), report); err == nil || !strings.Contains(err.Error(), "nats down") {
		t.Fatalf("Deliver() error = %v, want wrapped publisher error", err)
	}
}

type putCall struct {
	key         string
	contentType string
	body        []byte
}

type fakeStorage struct {
	calls []putCall
	err   error
}

func (s *fakeStorage) PutObject(_ context.Context, key, contentType string, body []byte) (string, error) {
	s.calls = append(s.calls, putCall{key: key, contentType: contentType, body: body})
	if s.err != nil {
		return "", s.err
	}
	return "https://example.com/" + key, nil
}

func TestArchiveChannel_ObjectKey(t *testing.T) {
	storage := &fakeStorage{}
	ch := NewArchiveChannel(storage, "/reports/")
	report := dto.NewReportDTO("r1", fixedTime, []event.Finding{redFinding()})

	if err := ch.Deliver(context.Background(), report); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(storage.calls) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(storage.calls))
	}

	call := storage.calls[0]
	if call.key != "reports/2026/10/14/20261014T120000Z_r1.json" {
		t.Fatalf("unexpected key: %s", call.key)
	}
	if call.contentType != "application/json" || !bytes.Contains(call.body, []byte(`"id":"r1"`)) {
		t.Fatalf("unexpected upload: %s %s", call.contentType, call.body)
	}

	storage.err = errors.New("boom")
	if err := ch.Deliver(context.Background(), report); err == nil || !strings.Contains(err.Error(), "failed to upload") {
		t.Fatalf("Deliver() error = %v", err)
	}
}
