package entity

import (
	"time"

	"gorm.io/gorm"
)

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
	InvoiceStatusReplaced  = "replaced" // reserved for correction flows

	EmailStatusNone   = "none"
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// ActiveTokenValue marks a non-cancelled invoice. Cancellation nulls the
// token so the unique index over (landlord, room, period, active_token)
// stops counting the row. MySQL and SQLite both exempt NULLs from unique
// indexes, which is exactly the semantics the generation race needs.
const ActiveTokenValue = "active"

type InvoiceEntity struct {
	Id             string              `json:"id" gorm:"column:id;type:char(36);primaryKey;comment:'id'"`
	InvoiceNo      string              `json:"invoice_no" gorm:"column:invoice_no;type:varchar(50);not null;uniqueIndex;comment:'Sequential invoice number'"`
	LandlordId     string              `json:"landlord_id" gorm:"column:landlord_id;type:char(36);not null;index:idx_periodic_invoice,unique;comment:'Landlord'"`
	TenantId       string              `json:"tenant_id" gorm:"column:tenant_id;type:char(36);not null;comment:'Tenant'"`
	BuildingId     string              `json:"building_id" gorm:"column:building_id;type:char(36);not null;comment:'Building'"`
	RoomId         string              `json:"room_id" gorm:"column:room_id;type:char(36);not null;index:idx_periodic_invoice,unique;comment:'Room'"`
	ContractId     string              `json:"contract_id" gorm:"column:contract_id;type:char(36);not null;comment:'Contract snapshot used for generation'"`
	Month          int                 `json:"month" gorm:"column:month;not null;index:idx_periodic_invoice,unique;comment:'Billing month 1-12'"`
	Year           int                 `json:"year" gorm:"column:year;not null;index:idx_periodic_invoice,unique;comment:'Billing year'"`
	ActiveToken    *string             `json:"-" gorm:"column:active_token;type:varchar(10);index:idx_periodic_invoice,unique;comment:'active while not cancelled, NULL after'"`
	Items          []InvoiceItemEntity `json:"items" gorm:"foreignKey:InvoiceId;references:Id"`
	Subtotal       float64             `json:"subtotal" gorm:"column:subtotal;type:decimal(18,3);not null;default:0"`
	DiscountAmount float64             `json:"discount_amount" gorm:"column:discount_amount;type:decimal(18,3);not null;default:0"`
	LateFee        float64             `json:"late_fee" gorm:"column:late_fee;type:decimal(18,3);not null;default:0"`
	TotalAmount    float64             `json:"total_amount" gorm:"column:total_amount;type:decimal(18,3);not null;default:0"`
	PaidAmount     float64             `json:"paid_amount" gorm:"column:paid_amount;type:decimal(18,3);not null;default:0"`
	Currency       string              `json:"currency" gorm:"column:currency;type:varchar(10);not null;default:'VND'"`
	Status         string              `json:"status" gorm:"column:status;type:varchar(20);not null;default:'draft';index;comment:'draft, sent, paid, overdue, cancelled, replaced'"`
	DueDate        time.Time           `json:"due_date" gorm:"column:due_date;not null;index"`
	IssuedAt       time.Time           `json:"issued_at" gorm:"column:issued_at;not null"`
	PaidAt         *time.Time          `json:"paid_at" gorm:"column:paid_at"`
	PaymentMethod  string              `json:"payment_method" gorm:"column:payment_method;type:varchar(30);comment:'cash, transfer, gateway'"`
	PaymentRef     string              `json:"payment_ref" gorm:"column:payment_ref;type:varchar(100);comment:'External payment reference'"`
	Note           string              `json:"note" gorm:"column:note;type:text"`
	InternalNote   string              `json:"internal_note" gorm:"column:internal_note;type:text"`
	EmailStatus    string              `json:"email_status" gorm:"column:email_status;type:varchar(20);not null;default:'none';comment:'none, sent, failed'"`
	EmailSentAt    *time.Time          `json:"email_sent_at" gorm:"column:email_sent_at"`
	EmailLastError string              `json:"email_last_error" gorm:"column:email_last_error;type:text"`
	CreatedBy      string              `json:"created_by" gorm:"column:created_by;type:char(36);comment:'Creating actor'"`
	CreatedAt      int64               `json:"created_at" gorm:"autoCreateTime:milli;column:created_at;comment:'Created at'"`
	UpdatedAt      int64               `json:"updated_at" gorm:"autoUpdateTime:milli;column:updated_at;comment:'Updated at'"`
}

func (InvoiceEntity) TableName() string {
	return "invoices"
}

func (c *InvoiceEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UnixMilli())
	return nil
}

const (
	ItemTypeRent     = "rent"
	ItemTypeElectric = "electric"
	ItemTypeWater    = "water"
	ItemTypeService  = "service"
	ItemTypeOther    = "other"
)

// InvoiceItemEntity is owned by its invoice; it has no independent lifecycle.
// MeterReadingId is a weak back-reference, the reading outlives billing.
type InvoiceItemEntity struct {
	Id             string  `json:"id" gorm:"column:id;type:char(36);primaryKey;comment:'id'"`
	InvoiceId      string  `json:"invoice_id" gorm:"column:invoice_id;type:char(36);not null;index;comment:'Owning invoice'"`
	Type           string  `json:"type" gorm:"column:type;type:varchar(20);not null;comment:'rent, electric, water, service, other'"`
	Label          string  `json:"label" gorm:"column:label;type:varchar(200);not null"`
	Quantity       float64 `json:"quantity" gorm:"column:quantity;type:decimal(18,3);not null;default:1"`
	UnitPrice      float64 `json:"unit_price" gorm:"column:unit_price;type:decimal(18,3);not null;default:0"`
	Amount         float64 `json:"amount" gorm:"column:amount;type:decimal(18,3);not null;default:0"`
	MeterReadingId *string `json:"meter_reading_id" gorm:"column:meter_reading_id;type:char(36);comment:'Source reading back-reference'"`
	SortOrder      int     `json:"sort_order" gorm:"column:sort_order;not null;default:0"`
	CreatedAt      int64   `json:"created_at" gorm:"autoCreateTime:milli;column:created_at;comment:'Created at'"`
	UpdatedAt      int64   `json:"updated_at" gorm:"autoUpdateTime:milli;column:updated_at;comment:'Updated at'"`
}

func (InvoiceItemEntity) TableName() string {
	return "invoice_items"
}

// InvoiceCounterEntity allocates sequential invoice numbers per landlord and
// period. Rows are locked FOR UPDATE inside the generation transaction, so a
// sequence value is never handed out twice.
type InvoiceCounterEntity struct {
	Id         int64  `gorm:"primaryKey;autoIncrement"`
	LandlordId string `gorm:"column:landlord_id;type:char(36);not null;index:idx_counter_scope,unique"`
	Month      int    `gorm:"column:month;not null;index:idx_counter_scope,unique"`
	Year       int    `gorm:"column:year;not null;index:idx_counter_scope,unique"`
	LastSeq    int64  `gorm:"column:last_seq;not null;default:0"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli;column:created_at"`
	UpdatedAt  int64  `gorm:"autoUpdateTime:milli;column:updated_at"`
}

func (InvoiceCounterEntity) TableName() string {
	return "invoice_counters"
}
