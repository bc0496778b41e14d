package dto

import (
	"time"

	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/event"
	"github.com/dreschagin/health-checker/internal/domain/valueobject"
)

// FindingDTO представляет одну находку в отчете
type FindingDTO struct {
	Kind     event.TargetKind     `json:"kind"`
	ID       string               `json:"id"`
	Severity valueobject.Severity `json:"severity"`
	Message  string               `json:"message,omitempty"`
	Node     *entity.Node         `json:"node,omitempty"`
	Service  *entity.Service      `json:"service,omitempty"`
}

// ReportSummaryDTO содержит сводную информацию по отчету
type ReportSummaryDTO struct {
	Total         int    `json:"total"`
	GreenCount    int    `json:"green_count"`
	YellowCount   int    `json:"yellow_count"`
	RedCount      int    `json:"red_count"`
	OverallStatus string `json:"overall_status"` // "green", "yellow", "red"
}

// ReportDTO представляет тело уведомления, одинаковое для всех каналов доставки
type ReportDTO struct {
	ID         string           `json:"id"`
	UpdateTime time.Time        `json:"update_time"`
	Summary    ReportSummaryDTO `json:"summary"`
	Events     []FindingDTO     `json:"events"`
}

// FromFinding конвертирует находку в DTO
func FromFinding(f event.Finding) FindingDTO {
	out := FindingDTO{
		Severity: f.Severity,
		Message:  f.Message(),
	}

	switch t := f.Target.(type) {
	case event.NodeTarget:
		out.Kind = event.TargetNode
		out.ID = t.Name
		out.Node = t.Node.Clone()
	case event.ServiceTarget:
		out.Kind = event.TargetService
		out.ID = t.Name
		out.Service = t.Service.Clone()
	}

	return out
}

// NewReportDTO собирает отчет из пакета находок
func NewReportDTO(id string, at time.Time, findings []event.Finding) *ReportDTO {
	report := &ReportDTO{
		ID:         id,
		UpdateTime: at.UTC(),
		Events:     make([]FindingDTO, 0, len(findings)),
	}

	overall := valueobject.Green
	for _, f := range findings {
		report.Events = append(report.Events, FromFinding(f))
		overall = overall.Max(f.Severity)

		switch f.Severity {
		case valueobject.Green:
			report.Summary.GreenCount++
		case valueobject.Yellow:
			report.Summary.YellowCount++
		case valueobject.Red:
			report.Summary.RedCount++
		}
	}

	report.Summary.Total = len(findings)
	report.Summary.OverallStatus = overall.String()

	return report
}
