package dto

import (
	"github.com/dreschagin/health-checker/internal/domain/entity"
)

// UpsertNodeRequest представляет JSON, присылаемый скриптом отчета на узле
type UpsertNodeRequest struct {
	SystemHostname string  `json:"system_hostname"`
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
}

// ToEntity конвертирует запрос в снимок узла (без серверной отметки времени)
func (r *UpsertNodeRequest) ToEntity() *entity.Node {
	return &entity.Node{
		ID:             r.SystemHostname,
		TimeDay:        r.TimeDay,
		SystemIP:       r.SystemIP,
		Load1:          r.Load1,
		Load5:          r.Load5,
		Load15:         r.Load15,
		MemStatusTotal: r.MemStatusTotal,
		MemStatusUse:   r.MemStatusUse,
		MemStatusPer:   r.MemStatusPer,
		MemStatus:      r.MemStatus,
		DiskF:          r.DiskF,
		DiskTotal:      r.DiskTotal,
		DiskFree:       r.DiskFree,
		DiskPer:        r.DiskPer,
		DiskF60:        r.DiskF60,
		DiskPer60:      r.DiskPer60,
		DiskStatus:     r.DiskStatus,
	}
}
