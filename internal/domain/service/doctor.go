package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/valueobject"
)

const (
	// Пороги использования ресурсов, %
	UsageWarnPercent     = 70.0
	UsageCriticalPercent = 90.0

	// Пороги устаревания снимка
	StaleWarnAfter     = 600 * time.Second
	StaleCriticalAfter = 1200 * time.Second

	// DefaultProbeTimeout ограничивает одну проверку сервиса
	DefaultProbeTimeout = 2 * time.Second

	// HealthyMessage возвращается, если ни одно правило не сработало
	HealthyMessage = "it looks good"
)

// Doctor классифицирует снимки узлов и результаты проверки сервисов (Domain Service)
type Doctor struct {
	client       *http.Client
	probeTimeout time.Duration
}

// NewDoctor создает Doctor с таймаутом проверки сервисов
func NewDoctor(probeTimeout time.Duration) *Doctor {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	return &Doctor{
		client:       &http.Client{Timeout: probeTimeout},
		probeTimeout: probeTimeout,
	}
}

// ProbeTimeout возвращает таймаут одной проверки
func (d *Doctor) ProbeTimeout() time.Duration {
	return d.probeTimeout
}

// rule описывает одно независимое правило оценки узла
type rule func(node *entity.Node, now time.Time) (valueobject.Severity, string)

var nodeRules = []rule{diskRule, memoryRule, stalenessRule}

// EvaluateNode оценивает снимок узла относительно now.
// Чистая функция: итоговый уровень равен максимуму уровней всех правил.
func (d *Doctor) EvaluateNode(node *entity.Node, now time.Time) (valueobject.Severity, string) {
	return EvaluateNode(node, now)
}

// EvaluateNode работает как Doctor.EvaluateNode, без получателя
func EvaluateNode(node *entity.Node, now time.Time) (valueobject.Severity, string) {
	severity := valueobject.Green
	var lines []string

	for _, r := range nodeRules {
		level, line := r(node, now)
		if level == valueobject.Green {
			continue
		}
		severity = severity.Max(level)
		lines = append(lines, line)
	}

	if severity == valueobject.Green {
		return valueobject.Green, HealthyMessage
	}

	return severity, strings.Join(lines, "\n")
}

func diskRule(node *entity.Node, _ time.Time) (valueobject.Severity, string) {
	return usageRule("disk", node.DiskPer)
}

func memoryRule(node *entity.Node, _ time.Time) (valueobject.Severity, string) {
	return usageRule("mem", node.MemStatusPer)
}

func usageRule(resource string, percent float64) (valueobject.Severity, string) {
	switch {
	case percent >= UsageCriticalPercent:
		return valueobject.Red, fmt.Sprintf("Error: %s > 90%% (%.0f%%)", resource, percent)
	case percent >= UsageWarnPercent:
		return valueobject.Yellow, fmt.Sprintf("Warn: %s > 70%% (%.0f%%)", resource, percent)
	default:
		return valueobject.Green, ""
	}
}

func stalenessRule(node *entity.Node, now time.Time) (valueobject.Severity, string) {
	age := node.Age(now)
	switch {
	case age > StaleCriticalAfter:
		return valueobject.Red, fmt.Sprintf("Error: node hasn't updated for %s", age.Truncate(time.Second))
	case age > StaleWarnAfter:
		return valueobject.Yellow, fmt.Sprintf("Warn: node hasn't updated for %s", age.Truncate(time.Second))
	default:
		return valueobject.Green, ""
	}
}

// EvaluateService выполняет GET к endpoint с собственным таймаутом.
// Ошибки сети не возвращаются как error: это валидный результат Red.
func (d *Doctor) EvaluateService(ctx context.Context, endpoint string) (valueobject.Severity, string, time.Duration) {
	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return valueobject.Red, fmt.Sprintf("invalid endpoint: %v", err), 0
	}

	resp, err := d.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return valueobject.Red, fmt.Sprintf("get fail: %v", err), latency
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return valueobject.Green, "success", latency
	}

	return valueobject.Yellow, fmt.Sprintf("unexpected status code %d", resp.StatusCode), latency
}
