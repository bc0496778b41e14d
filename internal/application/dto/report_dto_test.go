package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/event"
	"github.com/dreschagin/health-checker/internal/domain/valueobject"
)

func TestNewReportDTO_Summary(t *testing.T) {
	findings := []event.Finding{
		event.NewNodeFinding(&entity.Node{ID: "n1", StatusMsg: "disk > 90%"}, valueobject.Red),
		event.NewNodeFinding(&entity.Node{ID: "n2"}, valueobject.Green),
		event.NewServiceFinding(&entity.Service{Name: "api", StatusMsg: "unexpected status code 503"}, valueobject.Yellow),
	}

	report := NewReportDTO("r1", time.Unix(0, 0), findings)

	if report.Summary.Total != 3 || report.Summary.RedCount != 1 || report.Summary.YellowCount != 1 || report.Summary.GreenCount != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if report.Summary.OverallStatus != "red" {
		t.Fatalf("OverallStatus = %s, want red", report.Summary.OverallStatus)
	}
	if report.Events[0].Kind != event.TargetNode || report.Events[0].Message != "disk > 90%" {
		t.Fatalf("unexpected first event: %+v", report.Events[0])
	}
	if report.Events[2].Kind != event.TargetService || report.Events[2].Service == nil {
		t.Fatalf("unexpected service event: %+v", report.Events[2])
	}
}

func TestNewReportDTO_EmptyIsGreen(t *testing.T) {
	report := NewReportDTO("r2", time.Now(), nil)

	if report.Summary.OverallStatus != "green" || report.Summary.Total != 0 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"events":[]`) {
		t.Fatalf("expected empty events array, got %s", data)
	}
}

func TestUpsertNodeRequest_ToEntity(t *testing.T) {
	var req UpsertNodeRequest
	body := `{"system_hostname":"web-1","system_ip":"10.0.0.5","disk_per":42,"mem_status_per":12,"load_15":0.5}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	node := req.ToEntity()
	if node.ID != "web-1" || node.SystemIP != "10.0.0.5" || node.DiskPer != 42 || node.Load15 != 0.5 {
		t.Fatalf("unexpected node: %+v", node)
	}
	if node.LastUpdated != 0 {
		t.Fatalf("ToEntity() must not stamp time")
	}
}
