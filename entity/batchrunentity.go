package entity

import (
	"time"

	"gorm.io/gorm"
)

const (
	BatchKindMonthlyGeneration = "monthly_generation"
	BatchKindOverdueSweep      = "overdue_sweep"
	BatchKindBulkReadings      = "bulk_readings"

	BatchStatusPending    = "pending"
	BatchStatusInProgress = "in_progress"
	BatchStatusSuccess    = "success"
	BatchStatusFailed     = "failed"
)

// BatchRunEntity is the audit row for one execution of a batch trigger.
type BatchRunEntity struct {
	ID         int64      `gorm:"primaryKey;autoIncrement"`
	Kind       string     `gorm:"column:kind;type:varchar(30);not null;index"`
	Status     string     `gorm:"column:status;type:varchar(20);default:'pending'"` // pending, in_progress, success, failed
	Total      int        `gorm:"column:total;not null;default:0"`
	Succeeded  int        `gorm:"column:succeeded;not null;default:0"`
	Failed     int        `gorm:"column:failed;not null;default:0"`
	StartedAt  *time.Time `gorm:"column:started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
	ErrorMsg   *string    `gorm:"column:error_message"`
	CreatedAt  int64      `json:"created_at" gorm:"autoCreateTime:milli;column:created_at;comment:'Created at'"`
	UpdatedAt  int64      `json:"updated_at" gorm:"autoUpdateTime:milli;column:updated_at;comment:'Updated at'"`
}

func (BatchRunEntity) TableName() string {
	return "batch_runs"
}

func (c *BatchRunEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UnixMilli())
	return nil
}
