package entity

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/plugin/soft_delete"
)

const (
	ReadingStatusDraft     = "draft"
	ReadingStatusConfirmed = "confirmed"
	ReadingStatusBilled    = "billed"
)

// MeterQuantity is one independently metered quantity on a reading.
// Unit price is copied from the building at creation time and never follows
// later rate changes.
type MeterQuantity struct {
	PreviousIndex float64 `json:"previous_index" gorm:"column:previous_index;type:decimal(18,3);not null;default:0"`
	CurrentIndex  float64 `json:"current_index" gorm:"column:current_index;type:decimal(18,3);not null;default:0"`
	UnitPrice     float64 `json:"unit_price" gorm:"column:unit_price;type:decimal(18,3);not null;default:0"`
	Consumption   float64 `json:"consumption" gorm:"column:consumption;type:decimal(18,3);not null;default:0"`
	Amount        float64 `json:"amount" gorm:"column:amount;type:decimal(18,3);not null;default:0"`
}

// Recompute derives consumption and amount from the indices.
func (q *MeterQuantity) Recompute() {
	q.Consumption = q.CurrentIndex - q.PreviousIndex
	q.Amount = q.Consumption * q.UnitPrice
}

// MeterReadingEntity records the utility indices of one room for one billing
// period. The unique index over (room, month, year, deleted_at) holds because
// soft-deleted rows carry a non-zero deleted_at flag while live rows are 0.
type MeterReadingEntity struct {
	Id          string                `json:"id" gorm:"column:id;type:char(36);primaryKey;comment:'id'"` // UUID stored as CHAR(36)
	RoomId      string                `json:"room_id" gorm:"column:room_id;type:char(36);not null;index:idx_room_period,unique;comment:'Room'"`
	Month       int                   `json:"month" gorm:"column:month;not null;index:idx_room_period,unique;comment:'Billing month 1-12'"`
	Year        int                   `json:"year" gorm:"column:year;not null;index:idx_room_period,unique;comment:'Billing year'"`
	Electric    MeterQuantity         `json:"electric" gorm:"embedded;embeddedPrefix:electric_"`
	Water       MeterQuantity         `json:"water" gorm:"embedded;embeddedPrefix:water_"`
	Status      string                `json:"status" gorm:"column:status;type:varchar(20);not null;default:'draft';comment:'draft, confirmed, billed'"`
	InvoiceId   *string               `json:"invoice_id" gorm:"column:invoice_id;type:char(36);index;comment:'Billing invoice back-reference'"`
	Note        string                `json:"note" gorm:"column:note;type:text;comment:'Free-text note'"`
	CreatedBy   string                `json:"created_by" gorm:"column:created_by;type:char(36);comment:'Creating actor'"`
	ConfirmedAt *time.Time            `json:"confirmed_at" gorm:"column:confirmed_at;comment:'Confirmation time'"`
	ConfirmedBy *string               `json:"confirmed_by" gorm:"column:confirmed_by;type:char(36);comment:'Confirming actor'"`
	CreatedAt   int64                 `json:"created_at" gorm:"autoCreateTime:milli;column:created_at;comment:'Created at'"`
	UpdatedAt   int64                 `json:"updated_at" gorm:"autoUpdateTime:milli;column:updated_at;comment:'Updated at'"`
	DeletedAt   soft_delete.DeletedAt `json:"-" gorm:"column:deleted_at;softDelete:milli;index:idx_room_period,unique"`
}

func (MeterReadingEntity) TableName() string {
	return "meter_readings"
}

func (c *MeterReadingEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UnixMilli())
	return nil
}
