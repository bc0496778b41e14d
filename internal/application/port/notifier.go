package port

import (
	"context"

	"github.com/dreschagin/health-checker/internal/application/dto"
	"github.com/dreschagin/health-checker/internal/domain/event"
)

// Notifier принимает пакет находок и пытается доставить его (Port).
// Никогда не возвращает ошибку: сбои доставки обрабатываются внутри.
type Notifier interface {
	Notify(ctx context.Context, findings []event.Finding)
}

// NotificationChannel определяет один способ доставки отчета (почта, брокер, архив...)
type NotificationChannel interface {
	// Name используется в логах и метриках
	Name() string

	// Deliver доставляет отчет, возвращая ошибку при сбое
	Deliver(ctx context.Context, report *dto.ReportDTO) error
}
