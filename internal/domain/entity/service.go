package entity

import "time"

// Service описывает отслеживаемый внешний сервис.
// Name и API задаются статической конфигурацией, Latency и LastUpdated заменяются при каждой проверке.
type Service struct {
	Name        string `json:"name"`
	API         string `json:"api"`
	LatencyMS   int64  `json:"latency_ms"`
	LastUpdated int64  `json:"last_updated"`
	StatusMsg   string `json:"status_msg,omitempty"`
}

// NewService создает дескриптор из конфигурации
func NewService(name, api string) Service {
	return Service{Name: name, API: api}
}

// Observed возвращает копию дескриптора с результатами очередной проверки
func (s Service) Observed(latency time.Duration, at time.Time, msg string) *Service {
	observed := s
	observed.LatencyMS = latency.Milliseconds()
	observed.LastUpdated = at.Unix()
	observed.StatusMsg = msg
	return &observed
}

// Clone возвращает независимую копию
func (s *Service) Clone() *Service {
	if s == nil {
		return nil
	}
	copied := *s
	return &copied
}
