package model

import "time"

// JobStatus — состояние фоновой задачи.
type JobStatus string

const (
	StatusQueued  JobStatus = "queued"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
)

// Источники запуска обновления каталога.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// EnrichJob — задача обогащения одного файла после загрузки.
type EnrichJob struct {
	ID       string    `gorm:"primaryKey;type:uuid" json:"id"`
	FileName string    `gorm:"not null;index" json:"filename"`
	Status   JobStatus `gorm:"not null;default:queued" json:"status"`
	Updated  int       `gorm:"not null;default:0" json:"updated"` // сколько строк получили новую цену
	Error    string    `json:"error,omitempty"`

	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RefreshRun — один запуск загрузки справочника цен и полного обогащения.
type RefreshRun struct {
	ID      int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Trigger string    `gorm:"not null" json:"trigger"`
	Status  JobStatus `gorm:"not null;index" json:"status"`

	DatasetURI  string `json:"dataset_uri,omitempty"`
	Bytes       int64  `json:"bytes"`
	Cards       int    `json:"cards"`
	Files       int    `json:"files"`
	FailedFiles int    `json:"failed_files"`
	Updated     int    `json:"updated"`
	Error       string `json:"error,omitempty"`

	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
