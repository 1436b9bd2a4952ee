package entity

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/plugin/soft_delete"
)

const (
	BuildingStatusActive   = "active"
	BuildingStatusInactive = "inactive"
)

type BuildingEntity struct {
	Id                string                `json:"id" gorm:"column:id;type:char(36);primaryKey;comment:'id'"`
	LandlordId        string                `json:"landlord_id" gorm:"column:landlord_id;type:char(36);not null;index;comment:'Owning landlord'"`
	Name              string                `json:"name" gorm:"column:name;type:varchar(150);not null;comment:'Building name'"`
	Status            string                `json:"status" gorm:"column:status;type:varchar(20);not null;default:'active';comment:'active, inactive'"`
	ElectricUnitPrice float64               `json:"electric_unit_price" gorm:"column:electric_unit_price;type:decimal(18,3);not null;default:0;comment:'Current electric rate per unit'"`
	WaterUnitPrice    float64               `json:"water_unit_price" gorm:"column:water_unit_price;type:decimal(18,3);not null;default:0;comment:'Current water rate per unit'"`
	CreatedAt         int64                 `json:"created_at" gorm:"autoCreateTime:milli;column:created_at;comment:'Created at'"`
	UpdatedAt         int64                 `json:"updated_at" gorm:"autoUpdateTime:milli;column:updated_at;comment:'Updated at'"`
	DeletedAt         soft_delete.DeletedAt `json:"-" gorm:"column:deleted_at;softDelete:milli"`
}

func (BuildingEntity) TableName() string {
	return "buildings"
}

func (c *BuildingEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UnixMilli())
	return nil
}
