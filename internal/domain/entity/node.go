package entity

import (
	"errors"
	"strings"
	"time"
)

// Node представляет снимок состояния узла, присланный агентом.
// Снимок заменяется целиком при каждом новом отчете (без частичного слияния).
type Node struct {
	ID             string  `json:"id"`
	TimeDay        string  `json:"time_day"`
	SystemIP       string  `json:"system_ip"`
	Load1          float64 `json:"load_1"`
	Load5          float64 `json:"load_5"`
	Load15         float64 `json:"load_15"`
	MemStatusTotal string  `json:"mem_status_total"`
	MemStatusUse   string  `json:"mem_status_use"`
	MemStatusPer   float64 `json:"mem_status_per"`
	MemStatus      string  `json:"mem_status"`
	DiskF          string  `json:"disk_f"`
	DiskTotal      string  `json:"disk_total"`
	DiskFree       string  `json:"disk_free"`
	DiskPer        float64 `json:"disk_per"`
	DiskF60        string  `json:"disk_f_60"`
	DiskPer60      string  `json:"disk_per_60"`
	DiskStatus     string  `json:"disk_status"`

	// LastUpdated выставляется сервером (epoch seconds)
	LastUpdated int64 `json:"last_updated"`

	// StatusMsg заполняется классификатором
	StatusMsg string `json:"status_msg,omitempty"`
}

// ErrEmptyNodeID возвращается для снимка без hostname
var ErrEmptyNodeID = errors.New("node id cannot be empty")

// Validate проверяет минимальные требования к снимку
func (n *Node) Validate() error {
	if n == nil {
		return errors.New("node cannot be nil")
	}
	if strings.TrimSpace(n.ID) == "" {
		return ErrEmptyNodeID
	}
	return nil
}

// Touch проставляет серверное время получения снимка
func (n *Node) Touch(now time.Time) {
	n.LastUpdated = now.Unix()
}

// LastUpdatedAt возвращает время последнего обновления
func (n *Node) LastUpdatedAt() time.Time {
	return time.Unix(n.LastUpdated, 0)
}

// Age возвращает "возраст" снимка относительно now. Снимок из будущего имеет нулевой возраст.
func (n *Node) Age(now time.Time) time.Duration {
	age := now.Sub(n.LastUpdatedAt())
	if age < 0 {
		return 0
	}
	return age
}

// Clone возвращает независимую копию снимка
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	copied := *n
	return &copied
}
