package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	breaker "rental/billing/config/circuitbreaker"
	"rental/billing/config/log"
	"rental/billing/entity"
	"rental/billing/src/apperror"
	"rental/billing/src/tools"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceServiceImpl struct {
	// EnqueueEmail hands the invoice id to the dispatch worker pool. Wired in
	// main; when nil the dispatch runs synchronously. Either way a dispatch
	// failure is recorded on the invoice and never fails generation.
	EnqueueEmail func(invoiceId string) bool
}

type GenerateInput struct {
	RoomId      string     `json:"room_id" binding:"required"`
	Month       int        `json:"month" binding:"required"`
	Year        int        `json:"year" binding:"required"`
	IncludeRent bool       `json:"include_rent"`
	DueDate     *time.Time `json:"due_date"`
}

// Generate builds the periodic invoice for a room: rent from the active
// contract plus one line item per confirmed unbilled reading quantity. The
// invoice, its number allocation, and the billed-marking of the consumed
// readings commit in one transaction.
func (s *InvoiceServiceImpl) Generate(db *gorm.DB, actor ActorContext, in GenerateInput) (entity.InvoiceEntity, error) {
	if err := ValidatePeriod(in.Month, in.Year); err != nil {
		return entity.InvoiceEntity{}, err
	}

	room, building, err := resolveRoomAndBuilding(db, in.RoomId)
	if err != nil {
		return entity.InvoiceEntity{}, err
	}
	if !actor.CanManage(building.Id) {
		return entity.InvoiceEntity{}, apperror.NewState("actor has no authority over building " + building.Id)
	}

	// any non-cancelled invoice for the room/period blocks generation,
	// including an already-paid one
	var existing entity.InvoiceEntity
	err = db.Where("landlord_id = ? AND room_id = ? AND month = ? AND year = ?",
		building.LandlordId, room.Id, in.Month, in.Year).
		Where("status <> ?", entity.InvoiceStatusCancelled).
		First(&existing).Error
	if err == nil {
		return entity.InvoiceEntity{}, apperror.NewConflict(
			fmt.Sprintf("invoice already exists for room %s period %02d/%d", room.Id, in.Month, in.Year), existing.Id)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.InvoiceEntity{}, err
	}

	contract, err := IContractService.FindActiveContract(db, in.RoomId, in.Month, in.Year)
	if err != nil {
		return entity.InvoiceEntity{}, err
	}

	readings, err := IMeterReadingService.ConfirmedUnbilled(db, in.RoomId, in.Month, in.Year)
	if err != nil {
		return entity.InvoiceEntity{}, err
	}

	items, readingIds := buildLineItems(contract, readings, in.IncludeRent, in.Month, in.Year)
	if len(items) == 0 {
		return entity.InvoiceEntity{}, apperror.NewValidation("items",
			"nothing to bill: rent not requested and no confirmed readings for the period")
	}

	cfg := BillingConfig()
	now := time.Now().UTC()
	dueDate := DefaultDueDate(in.Month, in.Year)
	if in.DueDate != nil {
		dueDate = *in.DueDate
	}

	token := entity.ActiveTokenValue
	invoice := entity.InvoiceEntity{
		Id:          tools.NewUuid(),
		LandlordId:  building.LandlordId,
		TenantId:    contract.TenantId,
		BuildingId:  building.Id,
		RoomId:      room.Id,
		ContractId:  contract.Id,
		Month:       in.Month,
		Year:        in.Year,
		ActiveToken: &token,
		Items:       items,
		Currency:    cfg.Currency,
		Status:      entity.InvoiceStatusDraft,
		DueDate:     dueDate,
		IssuedAt:    now,
		EmailStatus: entity.EmailStatusNone,
		CreatedBy:   actor.ActorId,
	}
	recomputeTotals(&invoice)

	err = db.Transaction(func(tx *gorm.DB) error {
		seq, err := nextInvoiceSeq(tx, building.LandlordId, in.Month, in.Year)
		if err != nil {
			return err
		}
		invoice.InvoiceNo = FormatInvoiceNo(cfg.InvoicePrefix, building.LandlordId, in.Month, in.Year, seq)

		for i := range invoice.Items {
			invoice.Items[i].InvoiceId = invoice.Id
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		return IMeterReadingService.MarkBilled(tx, readingIds, invoice.Id)
	})
	if err != nil {
		if apperror.IsDuplicateKey(err) {
			// lost the race against a concurrent generation for the same slot
			return entity.InvoiceEntity{}, apperror.NewConflict(
				fmt.Sprintf("invoice already exists for room %s period %02d/%d", room.Id, in.Month, in.Year),
				s.lookupConflictingId(db, building.LandlordId, room.Id, in.Month, in.Year))
		}
		return entity.InvoiceEntity{}, err
	}

	s.dispatchEmail(db, invoice.Id)
	return invoice, nil
}

// GenerateForAllRentedRooms is the monthly trigger: every room with an active
// contract in the period gets an invoice. Rooms fail independently; rooms
// already invoiced are skipped via the uniqueness invariant, so re-running a
// crashed sweep is a no-op for completed rooms.
func (s *InvoiceServiceImpl) GenerateForAllRentedRooms(db *gorm.DB, actor ActorContext, month, year int) (BulkResult, error) {
	if err := ValidatePeriod(month, year); err != nil {
		return BulkResult{}, err
	}
	periodStart, periodEnd := PeriodRange(month, year)

	var roomIds []string
	err := db.Model(&entity.ContractEntity{}).
		Distinct("room_id").
		Where("status = ?", entity.ContractStatusExecuted).
		Where("start_date <= ?", periodEnd).
		Where("end_date IS NULL OR end_date >= ?", periodStart).
		Pluck("room_id", &roomIds).Error
	if err != nil {
		return BulkResult{}, err
	}

	run, err := IBatchRunService.Begin(db, entity.BatchKindMonthlyGeneration)
	if err != nil {
		return BulkResult{}, err
	}

	result := BulkResult{RunId: run.ID, Total: len(roomIds)}
	for _, roomId := range roomIds {
		in := GenerateInput{RoomId: roomId, Month: month, Year: year, IncludeRent: true}
		var invoice entity.InvoiceEntity
		genErr := breaker.DBWithCircuitBreaker(db, func(d *gorm.DB) error {
			var e error
			invoice, e = s.Generate(d, actor, in)
			return e
		})
		if genErr != nil {
			var conflict *apperror.ConflictError
			if errors.As(genErr, &conflict) {
				// already invoiced, safe skip on re-run
				result.Succeeded++
				result.Items = append(result.Items, BulkItemResult{RoomId: roomId, ReadingId: ""})
				continue
			}
			result.Failed++
			result.Items = append(result.Items, BulkItemResult{RoomId: roomId, Error: genErr.Error()})
			payload, _ := json.Marshal(in)
			IBatchRunService.RecordError(db, run.ID, roomId, payload, genErr)
			log.Logger.Warn("monthly generation failed for room",
				zap.String("room_id", roomId), zap.Error(genErr))
			continue
		}
		result.Succeeded++
		result.Items = append(result.Items, BulkItemResult{RoomId: roomId, ReadingId: invoice.Id})
	}
	IBatchRunService.Finish(db, run, result.Total, result.Succeeded, result.Failed)
	return result, nil
}

func (s *InvoiceServiceImpl) Get(db *gorm.DB, id string) (entity.InvoiceEntity, error) {
	var invoice entity.InvoiceEntity
	err := db.Preload("Items", func(d *gorm.DB) *gorm.DB { return d.Order("sort_order ASC") }).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.InvoiceEntity{}, apperror.NewNotFound("invoice", id)
		}
		return entity.InvoiceEntity{}, err
	}
	return invoice, nil
}

func (s *InvoiceServiceImpl) dispatchEmail(db *gorm.DB, invoiceId string) {
	if s.EnqueueEmail != nil {
		if !s.EnqueueEmail(invoiceId) {
			log.Logger.Warn("email dispatch queue full", zap.String("invoice_id", invoiceId))
		}
		return
	}
	if err := INotifierService.DispatchInvoice(db, invoiceId); err != nil {
		log.Logger.Warn("invoice email dispatch failed", zap.String("invoice_id", invoiceId), zap.Error(err))
	}
}

func (s *InvoiceServiceImpl) lookupConflictingId(db *gorm.DB, landlordId, roomId string, month, year int) string {
	var existing entity.InvoiceEntity
	err := db.Where("landlord_id = ? AND room_id = ? AND month = ? AND year = ?", landlordId, roomId, month, year).
		Where("status <> ?", entity.InvoiceStatusCancelled).
		First(&existing).Error
	if err != nil {
		return ""
	}
	return existing.Id
}

func buildLineItems(contract entity.ContractEntity, readings []entity.MeterReadingEntity, includeRent bool, month, year int) ([]entity.InvoiceItemEntity, []string) {
	var items []entity.InvoiceItemEntity
	var readingIds []string
	order := 0

	if includeRent {
		items = append(items, entity.InvoiceItemEntity{
			Id:        tools.NewUuid(),
			Type:      entity.ItemTypeRent,
			Label:     fmt.Sprintf("Room rent %02d/%d", month, year),
			Quantity:  1,
			UnitPrice: contract.RentPrice,
			Amount:    contract.RentPrice,
			SortOrder: order,
		})
		order++
	}

	for _, reading := range readings {
		readingId := reading.Id
		consumed := false
		if reading.Electric.UnitPrice > 0 || reading.Electric.Consumption > 0 {
			items = append(items, entity.InvoiceItemEntity{
				Id:   tools.NewUuid(),
				Type: entity.ItemTypeElectric,
				Label: fmt.Sprintf("Electricity %02d/%d (%.0f -> %.0f)", month, year,
					reading.Electric.PreviousIndex, reading.Electric.CurrentIndex),
				Quantity:       reading.Electric.Consumption,
				UnitPrice:      reading.Electric.UnitPrice,
				Amount:         reading.Electric.Amount,
				MeterReadingId: &readingId,
				SortOrder:      order,
			})
			order++
			consumed = true
		}
		if reading.Water.UnitPrice > 0 || reading.Water.Consumption > 0 {
			items = append(items, entity.InvoiceItemEntity{
				Id:   tools.NewUuid(),
				Type: entity.ItemTypeWater,
				Label: fmt.Sprintf("Water %02d/%d (%.0f -> %.0f)", month, year,
					reading.Water.PreviousIndex, reading.Water.CurrentIndex),
				Quantity:       reading.Water.Consumption,
				UnitPrice:      reading.Water.UnitPrice,
				Amount:         reading.Water.Amount,
				MeterReadingId: &readingId,
				SortOrder:      order,
			})
			order++
			consumed = true
		}
		if consumed {
			readingIds = append(readingIds, reading.Id)
		}
	}
	return items, readingIds
}

// recomputeTotals enforces subtotal = sum of items and
// total = max(0, subtotal - discount + late fee).
func recomputeTotals(invoice *entity.InvoiceEntity) {
	subtotal := 0.0
	for _, item := range invoice.Items {
		subtotal += item.Amount
	}
	invoice.Subtotal = subtotal
	total := subtotal - invoice.DiscountAmount + invoice.LateFee
	if total < 0 {
		total = 0
	}
	invoice.TotalAmount = total
}

// nextInvoiceSeq locks the counter row for the landlord/period and hands out
// the next sequence value. Numbers are never reused: the counter only grows,
// even when a numbered invoice is later cancelled.
func nextInvoiceSeq(tx *gorm.DB, landlordId string, month, year int) (int64, error) {
	var counter entity.InvoiceCounterEntity
	err := lockForUpdate(tx).
		Where("landlord_id = ? AND month = ? AND year = ?", landlordId, month, year).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		counter = entity.InvoiceCounterEntity{LandlordId: landlordId, Month: month, Year: year}
		if err := tx.Create(&counter).Error; err != nil {
			if !apperror.IsDuplicateKey(err) {
				return 0, err
			}
			// concurrent creator won, lock the row it inserted
			if err := lockForUpdate(tx).
				Where("landlord_id = ? AND month = ? AND year = ?", landlordId, month, year).
				First(&counter).Error; err != nil {
				return 0, err
			}
		}
	} else if err != nil {
		return 0, err
	}

	counter.LastSeq++
	if err := tx.Model(&counter).Update("last_seq", counter.LastSeq).Error; err != nil {
		return 0, err
	}
	return counter.LastSeq, nil
}

// lockForUpdate row-locks on engines that support it; sqlite serializes
// writers anyway and rejects the FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// FormatInvoiceNo renders "INV202501-AB12CD34-0007": prefix, period,
// landlord short id, zero-padded sequence.
func FormatInvoiceNo(prefix, landlordId string, month, year int, seq int64) string {
	short := strings.ReplaceAll(landlordId, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s%d%02d-%s-%04d", prefix, year, month, strings.ToUpper(short), seq)
}
