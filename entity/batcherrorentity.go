package entity

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// BatchErrorEntity isolates one failed item of a batch run; the rest of the
// batch proceeds.
type BatchErrorEntity struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	RunID     int64           `gorm:"not null;index;column:run_id"`
	RoomId    string          `gorm:"column:room_id;type:char(36);index"`
	Data      json.RawMessage `gorm:"type:json"`
	Error     string          `gorm:"type:text"`
	Resolved  bool            `gorm:"default:false"`
	CreatedAt int64           `gorm:"autoCreateTime:milli;column:created_at"`
	UpdatedAt int64           `gorm:"autoUpdateTime:milli;column:updated_at"`
}

func (BatchErrorEntity) TableName() string {
	return "batch_errors"
}

func (c *BatchErrorEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UnixMilli())
	return nil
}
