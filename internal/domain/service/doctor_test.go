package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/valueobject"
)

var testNow = time.Unix(1_700_000_000, 0)

func freshNode(disk, mem float64) *entity.Node {
	return &entity.Node{ID: "n1", DiskPer: disk, MemStatusPer: mem, LastUpdated: testNow.Unix()}
}

func TestEvaluateNode_Rules(t *testing.T) {
	tests := []struct {
		name         string
		node         *entity.Node
		wantSeverity valueobject.Severity
		wantContains []string
	}{
		{name: "all clear", node: freshNode(10, 10), wantSeverity: valueobject.Green, wantContains: []string{HealthyMessage}},
		{name: "disk warn", node: freshNode(70, 10), wantSeverity: valueobject.Yellow, wantContains: []string{"disk > 70%"}},
		{name: "disk critical", node: freshNode(95, 10), wantSeverity: valueobject.Red, wantContains: []string{"disk > 90%"}},
		{name: "mem critical", node: freshNode(10, 90), wantSeverity: valueobject.Red, wantContains: []string{"mem > 90%"}},
		{
			name:         "disk and mem warn stay yellow",
			node:         freshNode(75, 80),
			wantSeverity: valueobject.Yellow,
			wantContains: []string{"disk > 70%", "mem > 70%"},
		},
		{
			name:         "stale warn",
			node:         &entity.Node{ID: "n1", LastUpdated: testNow.Add(-601 * time.Second).Unix()},
			wantSeverity: valueobject.Yellow,
			wantContains: []string{"hasn't updated"},
		},
		{
			name:         "stale critical",
			node:         &entity.Node{ID: "n1", LastUpdated: testNow.Add(-1201 * time.Second).Unix()},
			wantSeverity: valueobject.Red,
			wantContains: []string{"Error: node hasn't updated"},
		},
		{
			name:         "exactly 600s is not stale",
			node:         &entity.Node{ID: "n1", LastUpdated: testNow.Add(-600 * time.Second).Unix()},
			wantSeverity: valueobject.Green,
			wantContains: []string{HealthyMessage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := EvaluateNode(tt.node, testNow)
			if got != tt.wantSeverity {
				t.Fatalf("EvaluateNode() severity = %s, want %s (msg %q)", got, tt.wantSeverity, msg)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(msg, want) {
					t.Errorf("message %q does not contain %q", msg, want)
				}
			}
		})
	}
}

func TestEvaluateNode_GreenBelowThresholds(t *testing.T) {
	for disk := 0.0; disk < UsageWarnPercent; disk += 7 {
		for mem := 0.0; mem < UsageWarnPercent; mem += 9 {
			for age := 0; age < 600; age += 97 {
				node := &entity.Node{ID: "n", DiskPer: disk, MemStatusPer: mem, LastUpdated: testNow.Unix() - int64(age)}
				if got, _ := EvaluateNode(node, testNow); got != valueobject.Green {
					t.Fatalf("disk=%v mem=%v age=%d: got %s, want green", disk, mem, age, got)
				}
			}
		}
	}
}

func TestEvaluateNode_IsMaxOfRules(t *testing.T) {
	disks := []float64{0, 69, 70, 89, 90, 100}
	mems := []float64{0, 70, 95}
	ages := []time.Duration{0, 601 * time.Second, 1201 * time.Second}

	for _, disk := range disks {
		for _, mem := range mems {
			for _, age := range ages {
				node := &entity.Node{ID: "n", DiskPer: disk, MemStatusPer: mem, LastUpdated: testNow.Add(-age).Unix()}

				want := valueobject.Green
				for _, r := range nodeRules {
					level, _ := r(node, testNow)
					want = want.Max(level)
				}

				got, _ := EvaluateNode(node, testNow)
				if got != want {
					t.Fatalf("disk=%v mem=%v age=%v: got %s, want %s", disk, mem, age, got, want)
				}
			}
		}
	}
}

func TestEvaluateNode_MonotonicInDisk(t *testing.T) {
	base := freshNode(10, 10)
	baseSeverity, _ := EvaluateNode(base, testNow)

	raised := base.Clone()
	raised.DiskPer = 95
	raisedSeverity, _ := EvaluateNode(raised, testNow)

	if raisedSeverity < baseSeverity {
		t.Fatalf("raising disk lowered severity: %s -> %s", baseSeverity, raisedSeverity)
	}
	if raisedSeverity != valueobject.Red {
		t.Fatalf("expected red, got %s", raisedSeverity)
	}
}

func TestEvaluateNode_Pure(t *testing.T) {
	node := &entity.Node{ID: "n", DiskPer: 75, MemStatusPer: 91, LastUpdated: testNow.Add(-700 * time.Second).Unix()}
	snapshot := *node

	s1, m1 := EvaluateNode(node, testNow)
	s2, m2 := EvaluateNode(node, testNow)

	if s1 != s2 || m1 != m2 {
		t.Fatalf("EvaluateNode() not deterministic: (%s,%q) vs (%s,%q)", s1, m1, s2, m2)
	}
	if *node != snapshot {
		t.Fatalf("EvaluateNode() mutated its input")
	}
}

func TestEvaluateService(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	unavailable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unavailable.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	doctor := NewDoctor(200 * time.Millisecond)

	tests := []struct {
		name         string
		endpoint     string
		wantSeverity valueobject.Severity
		wantContains string
	}{
		{name: "success", endpoint: ok.URL, wantSeverity: valueobject.Green, wantContains: "success"},
		{name: "non-success status", endpoint: unavailable.URL, wantSeverity: valueobject.Yellow, wantContains: "503"},
		{name: "timeout", endpoint: slow.URL, wantSeverity: valueobject.Red, wantContains: "get fail"},
		{name: "connection refused", endpoint: closedURL, wantSeverity: valueobject.Red, wantContains: "get fail"},
		{name: "invalid endpoint", endpoint: "://bad", wantSeverity: valueobject.Red, wantContains: "invalid endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			started := time.Now()
			got, msg, _ := doctor.EvaluateService(context.Background(), tt.endpoint)
			if got != tt.wantSeverity {
				t.Fatalf("EvaluateService() = %s (%q), want %s", got, msg, tt.wantSeverity)
			}
			if !strings.Contains(msg, tt.wantContains) {
				t.Fatalf("message %q does not contain %q", msg, tt.wantContains)
			}
			if time.Since(started) > time.Second {
				t.Fatalf("probe did not enforce its own timeout")
			}
		})
	}
}

func TestNewDoctor_DefaultTimeout(t *testing.T) {
	if got := NewDoctor(0).ProbeTimeout(); got != DefaultProbeTimeout {
		t.Fatalf("ProbeTimeout() = %v, want %v", got, DefaultProbeTimeout)
	}
}
