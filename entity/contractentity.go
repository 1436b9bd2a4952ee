package entity

import (
	"time"

	"gorm.io/gorm"
)

// ContractStatusExecuted is the only status under which a contract makes a
// room billable.
const ContractStatusExecuted = "signed_by_all"

type ContractEntity struct {
	Id         string     `json:"id" gorm:"column:id;type:char(36);primaryKey;comment:'id'"`
	RoomId     string     `json:"room_id" gorm:"column:room_id;type:char(36);not null;index;comment:'Leased room'"`
	TenantId   string     `json:"tenant_id" gorm:"column:tenant_id;type:char(36);not null;comment:'Tenant'"`
	TenantName string     `json:"tenant_name" gorm:"column:tenant_name;type:varchar(150);comment:'Tenant display name'"`
	Email      string     `json:"email" gorm:"column:email;type:varchar(150);comment:'Tenant billing email'"`
	Status     string     `json:"status" gorm:"column:status;type:varchar(30);not null;comment:'Contract status'"`
	RentPrice  float64    `json:"rent_price" gorm:"column:rent_price;type:decimal(18,3);not null;comment:'Monthly rent'"`
	StartDate  time.Time  `json:"start_date" gorm:"column:start_date;type:date;not null;comment:'Lease start'"`
	EndDate    *time.Time `json:"end_date" gorm:"column:end_date;type:date;comment:'Lease end, NULL means open-ended'"`
	CreatedAt  int64      `json:"created_at" gorm:"autoCreateTime:milli;column:created_at;comment:'Created at'"`
	UpdatedAt  int64      `json:"updated_at" gorm:"autoUpdateTime:milli;column:updated_at;comment:'Updated at'"`
}

func (ContractEntity) TableName() string {
	return "contracts"
}

func (c *ContractEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UnixMilli())
	return nil
}
