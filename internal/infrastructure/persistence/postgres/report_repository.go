package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/dreschagin/health-checker/internal/application/dto"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	update_time    TIMESTAMPTZ NOT NULL,
	overall_status TEXT NOT NULL,
	total          INTEGER NOT NULL,
	red_count      INTEGER NOT NULL,
	yellow_count   INTEGER NOT NULL,
	green_count    INTEGER NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_reports_update_time ON reports (update_time DESC);
CREATE TABLE IF NOT EXISTS report_findings (
	report_id   TEXT NOT NULL REFERENCES reports (id) ON DELETE CASCADE,
	target_kind TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	severity    TEXT NOT NULL,
	message     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_report_findings_target ON report_findings (target_kind, target_id);
`

// ReportRepository архивирует отчеты в PostgreSQL.
// Реализует port.NotificationChannel, поэтому подключается к Alarm как обычный канал.
type ReportRepository struct {
	db *sql.DB
}

// Open открывает соединение по DSN и проверяет его
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// NewReportRepository создает новый PostgreSQL repository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Migrate создает таблицы, если их нет
func (r *ReportRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate reports schema: %w", err)
	}
	return nil
}

func (r *ReportRepository) Name() string {
	return "postgres"
}

func (r *ReportRepository) Deliver(ctx context.Context, report *dto.ReportDTO) error {
	return r.Save(ctx, report)
}

// Save сохраняет отчет и его находки одной транзакцией
func (r *ReportRepository) Save(ctx context.Context, report *dto.ReportDTO) error {
	model, findings, err := ToDBModel(report)
	if err != nil {
		return fmt.Errorf("failed to convert to DB model: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, update_time, overall_status, total, red_count, yellow_count, green_count, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		model.ID,
		model.UpdateTime,
		model.OverallStatus,
		model.Total,
		model.RedCount,
		model.YellowCount,
		model.GreenCount,
		model.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	if len(findings) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO report_findings (report_id, target_kind, target_id, severity, message)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, f := range findings {
			if _, err := stmt.ExecContext(ctx, f.ReportID, f.TargetKind, f.TargetID, f.Severity, f.Message); err != nil {
				return fmt.Errorf("failed to insert finding: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindRecent возвращает последние отчеты, новые первыми
func (r *ReportRepository) FindRecent(ctx context.Context, limit int) ([]*dto.ReportDTO, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, update_time, overall_status, total, red_count, yellow_count, green_count, payload
		FROM reports
		ORDER BY update_time DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*dto.ReportDTO, 0)
	for rows.Next() {
		model, err := ScanReportRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report, err := ToDTO(model)
		if err != nil {
			return nil, fmt.Errorf("failed to decode report %s: %w", model.ID, err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, nil
}
