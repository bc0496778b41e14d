package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Severity представляет трехуровневую оценку здоровья (Value Object)
// Порядок значим: Green < Yellow < Red
type Severity int

const (
	Green Severity = iota
	Yellow
	Red
)

// ParseSeverity разбирает строковое представление уровня
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green":
		return Green, nil
	case "yellow":
		return Yellow, nil
	case "red":
		return Red, nil
	default:
		return Green, fmt.Errorf("invalid severity %q", s)
	}
}

// SeverityFromLevel переводит целочисленный уровень правил в Severity.
// 0 -> Green, 1 -> Yellow, 2 и выше -> Red.
func SeverityFromLevel(level int) Severity {
	switch {
	case level <= 0:
		return Green
	case level == 1:
		return Yellow
	default:
		return Red
	}
}

// Validate проверяет, что значение входит в шкалу
func (s Severity) Validate() error {
	switch s {
	case Green, Yellow, Red:
		return nil
	default:
		return errors.New("invalid severity")
	}
}

// Max возвращает более тяжелый из двух уровней
func (s Severity) Max(other Severity) Severity {
	if other > s {
		return other
	}
	return s
}

// AtLeast сообщает, не ниже ли уровень заданного порога
func (s Severity) AtLeast(threshold Severity) bool {
	return s >= threshold
}

// String возвращает строковое представление уровня
func (s Severity) String() string {
	switch s {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MaxSeverity сворачивает набор уровней через max. Пустой набор дает Green.
func MaxSeverity(levels ...Severity) Severity {
	result := Green
	for _, level := range levels {
		result = result.Max(level)
	}
	return result
}

// AllSeverities возвращает все уровни по возрастанию
func AllSeverities() []Severity {
	return []Severity{Green, Yellow, Red}
}
