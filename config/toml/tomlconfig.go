package toml

import (
	"fmt"

	"github.com/spf13/viper"
)

type TomlConfig struct {
	AppName     string
	Environment string
	Log         LogConfig
	Mysql       MysqlConfig
	Redis       RedisConfig
	Billing     BillingConfig
	Gateway     GatewayConfig
	Notifier    NotifierConfig
	Cron        CronConfig
	Process     ProcessConfig
}

type LogConfig struct {
	Path  string
	Level string
}

type MysqlConfig struct {
	Host     string
	User     string
	Password string
	DbName   string
	Port     int64
}

type RedisConfig struct {
	Urls     []string
	Password string
}

// BillingConfig carries the invoicing policy knobs.
type BillingConfig struct {
	Currency      string // e.g. "VND"
	InvoicePrefix string // invoice number prefix, e.g. "INV"
	DueDay        int    // due day in the month following the billing period
	MinYear       int    // readings/invoices before this year are rejected
}

// GatewayConfig holds the payment gateway credentials used to verify
// callback signatures.
type GatewayConfig struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	IpnUrl      string
	RedirectUrl string
}

type NotifierConfig struct {
	SendgridApiKey string
	FromEmail      string
	FromName       string
}

type CronConfig struct {
	MonthlyGenerationSpec string // e.g. "0 2 1 * *"
	OverdueSweepSpec      string // e.g. "0 1 * * *"
}

type ProcessConfig struct {
	Numworkers   int
	Jobqueuesize int
	Maxretries   int
}

var c TomlConfig // c is type TomlConfig

func init() {
	//viper is used as a configuration solution for Go Applications
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		fmt.Println(err)
	}
	viper.Unmarshal(&c) // from low level format to object (json) structure
}

func GetConfig() TomlConfig {
	return c
}
