package entity

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

const (
	PaymentLogStatusApplied   = "applied"
	PaymentLogStatusDuplicate = "duplicate"
	PaymentLogStatusFailed    = "failed"
	PaymentLogStatusRejected  = "rejected"
)

// PaymentLogEntity records every gateway callback attempt, successful or not.
type PaymentLogEntity struct {
	Id            string          `json:"id" gorm:"column:id;type:char(36);primaryKey;comment:'id'"`
	Gateway       string          `json:"gateway" gorm:"column:gateway;type:varchar(30);not null;comment:'Gateway name'"`
	InvoiceId     *string         `json:"invoice_id" gorm:"column:invoice_id;type:char(36);index;comment:'Target invoice if resolvable'"`
	Amount        float64         `json:"amount" gorm:"column:amount;type:decimal(18,3);not null;default:0"`
	ResultCode    int             `json:"result_code" gorm:"column:result_code;not null;default:0;comment:'Gateway result code'"`
	ExternalTxnId string          `json:"external_txn_id" gorm:"column:external_txn_id;type:varchar(100);index;comment:'Gateway transaction id'"`
	Status        string          `json:"status" gorm:"column:status;type:varchar(20);not null;comment:'applied, duplicate, failed, rejected'"`
	RawPayload    json.RawMessage `json:"raw_payload" gorm:"column:raw_payload;type:json"`
	CreatedAt     int64           `json:"created_at" gorm:"autoCreateTime:milli;column:created_at;comment:'Created at'"`
	UpdatedAt     int64           `json:"updated_at" gorm:"autoUpdateTime:milli;column:updated_at;comment:'Updated at'"`
}

func (PaymentLogEntity) TableName() string {
	return "payment_logs"
}

func (c *PaymentLogEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UnixMilli())
	return nil
}
