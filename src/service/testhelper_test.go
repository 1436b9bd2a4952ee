package service

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"rental/billing/config/log"
	"rental/billing/entity"
	"rental/billing/src/tools"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	log.Logger = zap.NewNop()
	os.Exit(m.Run())
}

var testDbSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", atomic.AddInt64(&testDbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps the shared in-memory database alive and
	// serializes concurrent statements
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
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
	))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

type fixture struct {
	LandlordId string
	Building   entity.BuildingEntity
	Room       entity.RoomEntity
	Contract   entity.ContractEntity
}

// seedRental provisions one landlord/building/room under an open-ended
// executed lease: baselines 100/50, rates 3500/15000, rent 3,000,000.
func seedRental(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{LandlordId: tools.NewUuid()}

	f.Building = entity.BuildingEntity{
		Id:                tools.NewUuid(),
		LandlordId:        f.LandlordId,
		Name:              "Block A",
		Status:            entity.BuildingStatusActive,
		ElectricUnitPrice: 3500,
		WaterUnitPrice:    15000,
	}
	require.NoError(t, db.Create(&f.Building).Error)

	f.Room = entity.RoomEntity{
		Id:                    tools.NewUuid(),
		BuildingId:            f.Building.Id,
		Name:                  "101",
		BaselineElectricIndex: 100,
		BaselineWaterIndex:    50,
	}
	require.NoError(t, db.Create(&f.Room).Error)

	f.Contract = entity.ContractEntity{
		Id:         tools.NewUuid(),
		RoomId:     f.Room.Id,
		TenantId:   tools.NewUuid(),
		TenantName: "Tran Thi B",
		Email:      "tenant@example.com",
		Status:     entity.ContractStatusExecuted,
		RentPrice:  3000000,
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&f.Contract).Error)
	return f
}

func managerOf(f fixture) ActorContext {
	return ActorContext{ActorId: "staff-1", BuildingScope: []string{f.Building.Id}}
}

func addRoom(t *testing.T, db *gorm.DB, f fixture, name string) entity.RoomEntity {
	t.Helper()
	room := entity.RoomEntity{
		Id:         tools.NewUuid(),
		BuildingId: f.Building.Id,
		Name:       name,
	}
	require.NoError(t, db.Create(&room).Error)
	return room
}

// silenceEmail swallows the best-effort dispatch so invoice tests don't
// exercise the notifier.
func silenceEmail(t *testing.T) {
	t.Helper()
	prev := IInvoiceService.EnqueueEmail
	IInvoiceService.EnqueueEmail = func(string) bool { return true }
	t.Cleanup(func() { IInvoiceService.EnqueueEmail = prev })
}

type fakeSeenCache struct {
	seen map[string]bool
}

func (c *fakeSeenCache) SeenOnce(key string, _ time.Duration) (bool, error) {
	if c.seen == nil {
		c.seen = map[string]bool{}
	}
	if c.seen[key] {
		return true, nil
	}
	c.seen[key] = true
	return false, nil
}

func useFakeCache(t *testing.T) *fakeSeenCache {
	t.Helper()
	cache := &fakeSeenCache{}
	prev := IPaymentService.Cache
	IPaymentService.Cache = cache
	t.Cleanup(func() { IPaymentService.Cache = prev })
	return cache
}

type fakeSender struct {
	sent []string
	fail bool
}

func (s *fakeSender) Send(toEmail, _, _, _, _ string) error {
	if s.fail {
		return fmt.Errorf("smtp unreachable")
	}
	s.sent = append(s.sent, toEmail)
	return nil
}

func useFakeSender(t *testing.T, fail bool) *fakeSender {
	t.Helper()
	sender := &fakeSender{fail: fail}
	prevSender := INotifierService.Sender
	prevEnqueue := IInvoiceService.EnqueueEmail
	INotifierService.Sender = sender
	IInvoiceService.EnqueueEmail = nil // dispatch synchronously
	t.Cleanup(func() {
		INotifierService.Sender = prevSender
		IInvoiceService.EnqueueEmail = prevEnqueue
	})
	return sender
}

// makeInvoice inserts an invoice row directly for lifecycle tests.
func makeInvoice(t *testing.T, db *gorm.DB, f fixture, roomId string, month int, status string, dueDate time.Time) entity.InvoiceEntity {
	t.Helper()
	token := entity.ActiveTokenValue
	var tokenPtr *string
	if status != entity.InvoiceStatusCancelled {
		tokenPtr = &token
	}
	invoice := entity.InvoiceEntity{
		Id:          tools.NewUuid(),
		InvoiceNo:   "INV-" + tools.NewUuid()[:13],
		LandlordId:  f.LandlordId,
		TenantId:    f.Contract.TenantId,
		BuildingId:  f.Building.Id,
		RoomId:      roomId,
		ContractId:  f.Contract.Id,
		Month:       month,
		Year:        2025,
		ActiveToken: tokenPtr,
		Items: []entity.InvoiceItemEntity{{
			Id:        tools.NewUuid(),
			Type:      entity.ItemTypeRent,
			Label:     "Room rent 03/2025",
			Quantity:  1,
			UnitPrice: 3000000,
			Amount:    3000000,
		}},
		Subtotal:    3000000,
		TotalAmount: 3000000,
		Currency:    "VND",
		Status:      status,
		DueDate:     dueDate,
		IssuedAt:    time.Now().UTC(),
		EmailStatus: entity.EmailStatusNone,
	}
	for i := range invoice.Items {
		invoice.Items[i].InvoiceId = invoice.Id
	}
	require.NoError(t, db.Create(&invoice).Error)
	return invoice
}
