package entity

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/plugin/soft_delete"
)

type RoomEntity struct {
	Id                    string                `json:"id" gorm:"column:id;type:char(36);primaryKey;comment:'id'"` // UUID stored as CHAR(36)
	BuildingId            string                `json:"building_id" gorm:"column:building_id;type:char(36);not null;index;comment:'Owning building'"`
	Name                  string                `json:"name" gorm:"column:name;type:varchar(100);not null;comment:'Room name'"`
	BaselineElectricIndex float64               `json:"baseline_electric_index" gorm:"column:baseline_electric_index;type:decimal(18,3);not null;default:0;comment:'Last confirmed electric index'"`
	BaselineWaterIndex    float64               `json:"baseline_water_index" gorm:"column:baseline_water_index;type:decimal(18,3);not null;default:0;comment:'Last confirmed water index'"`
	CreatedAt             int64                 `json:"created_at" gorm:"autoCreateTime:milli;column:created_at;comment:'Created at'"`
	UpdatedAt             int64                 `json:"updated_at" gorm:"autoUpdateTime:milli;column:updated_at;comment:'Updated at'"`
	DeletedAt             soft_delete.DeletedAt `json:"-" gorm:"column:deleted_at;softDelete:milli"`
}

func (RoomEntity) TableName() string {
	return "rooms"
}

func (c *RoomEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UnixMilli())
	return nil
}
