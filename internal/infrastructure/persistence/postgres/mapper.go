package postgres

import (
	"encoding/json"
	"time"

	"github.com/dreschagin/health-checker/internal/application/dto"
)

// ReportDBModel представляет отчет в БД
type ReportDBModel struct {
	ID            string
	UpdateTime    time.Time
	OverallStatus string
	Total         int
	RedCount      int
	YellowCount   int
	GreenCount    int
	Payload       []byte // JSON
}

// FindingDBModel представляет строку report_findings
type FindingDBModel struct {
	ReportID   string
	TargetKind string
	TargetID   string
	Severity   string
	Message    string
}

// ToDBModel конвертирует отчет в модели БД
func ToDBModel(report *dto.ReportDTO) (*ReportDBModel, []FindingDBModel, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, nil, err
	}

	model := &ReportDBModel{
		ID:            report.ID,
		UpdateTime:    report.UpdateTime.UTC(),
		OverallStatus: report.Summary.OverallStatus,
		Total:         report.Summary.Total,
		RedCount:      report.Summary.RedCount,
		YellowCount:   report.Summary.YellowCount,
		GreenCount:    report.Summary.GreenCount,
		Payload:       payload,
	}

	findings := make([]FindingDBModel, 0, len(report.Events))
	for _, ev := range report.Events {
		findings = append(findings, FindingDBModel{
			ReportID:   report.ID,
			TargetKind: string(ev.Kind),
			TargetID:   ev.ID,
			Severity:   ev.Severity.String(),
			Message:    ev.Message,
		})
	}

	return model, findings, nil
}

// ToDTO восстанавливает отчет из сохраненного payload
func ToDTO(model *ReportDBModel) (*dto.ReportDTO, error) {
	var report dto.ReportDTO
	if err := json.Unmarshal(model.Payload, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ScanReportRow сканирует строку БД в ReportDBModel
func ScanReportRow(row interface {
	Scan(dest ...interface{}) error
}) (*ReportDBModel, error) {
	var model ReportDBModel

	err := row.Scan(
		&model.ID,
		&model.UpdateTime,
		&model.OverallStatus,
		&model.Total,
		&model.RedCount,
		&model.YellowCount,
		&model.GreenCount,
		&model.Payload,
	)
	if err != nil {
		return nil, err
	}

	return &model, nil
}
