package mysql

import (
	"fmt"
	"log"
	"os"
	"time"

	"rental/billing/config/toml"
	"rental/billing/entity"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _db *gorm.DB

func init() {
	username := toml.GetConfig().Mysql.User     // this is for db username connection
	password := toml.GetConfig().Mysql.Password // this is for db password connection
	host := toml.GetConfig().Mysql.Host         // this is for db host connection
	port := toml.GetConfig().Mysql.Port         // this is for db port connection
	dbname := toml.GetConfig().Mysql.DbName     // this is for db name connection
	timeout := "10s"                            // if connection time > 10s, then timeout

	// dsn == Data Source Name
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8&parseTime=True&loc=UTC&timeout=%s", username, password, host, port, dbname, timeout)
	var err error

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // Output logs to terminal
		logger.Config{
			SlowThreshold:             time.Second, // SQL queries slower than 1s are considered "slow"
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	_db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: newLogger,
		// map driver duplicate-key errors onto gorm.ErrDuplicatedKey so the
		// services can surface uniqueness races as ConflictError
		TranslateError: true,
	})

	if err != nil {
		fmt.Println(err)
	}

	sqlDB, _ := _db.DB() // initialise a DB object
	if err := _db.AutoMigrate(
		&entity.BuildingEntity{},
		&entity.RoomEntity{},
		&entity.ContractEntity{},
		&entity.MeterReadingEntity{},
		&entity.InvoiceEntity{},
		&entity.InvoiceItemEntity{},
		&entity.InvoiceCounterEntity{},
		&entity.PaymentLogEntity{},
		&entity.BatchRunEntity{},
		&entity.BatchErrorEntity{},
	); err != nil {
		fmt.Println("Migration failed:", err)
	}

	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(20)
}

func GetDB() *gorm.DB {
	return _db
}
