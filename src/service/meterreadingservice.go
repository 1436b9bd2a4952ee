package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rental/billing/config/log"
	"rental/billing/entity"
	"rental/billing/src/apperror"
	"rental/billing/src/tools"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MeterReadingServiceImpl struct{}

type CreateReadingInput struct {
	RoomId               string  `json:"room_id" binding:"required"`
	Month                int     `json:"month" binding:"required"`
	Year                 int     `json:"year" binding:"required"`
	ElectricCurrentIndex float64 `json:"electric_current_index"`
	WaterCurrentIndex    float64 `json:"water_current_index"`
	Note                 string  `json:"note"`
}

type UpdateReadingInput struct {
	ElectricPreviousIndex *float64 `json:"electric_previous_index"`
	ElectricCurrentIndex  *float64 `json:"electric_current_index"`
	ElectricUnitPrice     *float64 `json:"electric_unit_price"`
	WaterPreviousIndex    *float64 `json:"water_previous_index"`
	WaterCurrentIndex     *float64 `json:"water_current_index"`
	WaterUnitPrice        *float64 `json:"water_unit_price"`
	Note                  *string  `json:"note"`
	Status                *string  `json:"status"`
}

// touchesLockedFields reports whether the patch tries to change anything
// beyond the free-text note once the reading is locked.
func (in UpdateReadingInput) touchesLockedFields() bool {
	return in.ElectricPreviousIndex != nil || in.ElectricCurrentIndex != nil ||
		in.ElectricUnitPrice != nil || in.WaterPreviousIndex != nil ||
		in.WaterCurrentIndex != nil || in.WaterUnitPrice != nil
}

// CreateReading records a draft reading for a room and period. Previous
// indices seed from the room's latest reading, falling back to the room's
// stored baseline for a first-ever reading. Unit prices are copied from the
// building's current rates and frozen on the row.
func (s *MeterReadingServiceImpl) CreateReading(db *gorm.DB, actor ActorContext, in CreateReadingInput) (entity.MeterReadingEntity, error) {
	if err := ValidatePeriod(in.Month, in.Year); err != nil {
		return entity.MeterReadingEntity{}, err
	}

	room, building, err := resolveRoomAndBuilding(db, in.RoomId)
	if err != nil {
		return entity.MeterReadingEntity{}, err
	}
	if !actor.CanManage(building.Id) {
		return entity.MeterReadingEntity{}, apperror.NewState("actor has no authority over building " + building.Id)
	}
	if building.Status != entity.BuildingStatusActive {
		return entity.MeterReadingEntity{}, apperror.NewState("building " + building.Id + " is not in an active operational state")
	}

	var existing entity.MeterReadingEntity
	err = db.Where("room_id = ? AND month = ? AND year = ?", in.RoomId, in.Month, in.Year).First(&existing).Error
	if err == nil {
		return entity.MeterReadingEntity{}, apperror.NewConflict(
			fmt.Sprintf("reading already exists for room %s period %02d/%d", in.RoomId, in.Month, in.Year), existing.Id)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.MeterReadingEntity{}, err
	}

	prevElectric, prevWater, err := s.seedPreviousIndices(db, room, in.Month, in.Year)
	if err != nil {
		return entity.MeterReadingEntity{}, err
	}

	reading := entity.MeterReadingEntity{
		Id:     tools.NewUuid(),
		RoomId: in.RoomId,
		Month:  in.Month,
		Year:   in.Year,
		Electric: entity.MeterQuantity{
			PreviousIndex: prevElectric,
			CurrentIndex:  in.ElectricCurrentIndex,
			UnitPrice:     building.ElectricUnitPrice,
		},
		Water: entity.MeterQuantity{
			PreviousIndex: prevWater,
			CurrentIndex:  in.WaterCurrentIndex,
			UnitPrice:     building.WaterUnitPrice,
		},
		Status:    entity.ReadingStatusDraft,
		Note:      in.Note,
		CreatedBy: actor.ActorId,
	}
	reading.Electric.Recompute()
	reading.Water.Recompute()

	if err := validateQuantities(&reading); err != nil {
		return entity.MeterReadingEntity{}, err
	}

	if err := db.Create(&reading).Error; err != nil {
		if apperror.IsDuplicateKey(err) {
			// concurrent create slipped past the existence check
			return entity.MeterReadingEntity{}, apperror.NewConflict(
				fmt.Sprintf("reading already exists for room %s period %02d/%d", in.RoomId, in.Month, in.Year), "")
		}
		return entity.MeterReadingEntity{}, err
	}
	return reading, nil
}

type BulkItemResult struct {
	RoomId    string `json:"room_id"`
	ReadingId string `json:"reading_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type BulkResult struct {
	RunId     int64            `json:"run_id"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Items     []BulkItemResult `json:"items"`
}

// CreateReadingsBulk creates each reading independently; one item's failure
// is recorded and does not abort the rest. The whole batch succeeds if at
// least one item did.
func (s *MeterReadingServiceImpl) CreateReadingsBulk(db *gorm.DB, actor ActorContext, items []CreateReadingInput) (BulkResult, error) {
	if len(items) == 0 {
		return BulkResult{}, apperror.NewValidation("items", "empty batch")
	}

	run, err := IBatchRunService.Begin(db, entity.BatchKindBulkReadings)
	if err != nil {
		return BulkResult{}, err
	}

	result := BulkResult{RunId: run.ID, Total: len(items)}
	for _, item := range items {
		reading, itemErr := s.CreateReading(db, actor, item)
		if itemErr != nil {
			result.Failed++
			result.Items = append(result.Items, BulkItemResult{RoomId: item.RoomId, Error: itemErr.Error()})
			payload, _ := json.Marshal(item)
			IBatchRunService.RecordError(db, run.ID, item.RoomId, payload, itemErr)
			log.Logger.Warn("bulk reading item failed",
				zap.String("room_id", item.RoomId), zap.Error(itemErr))
			continue
		}
		result.Succeeded++
		result.Items = append(result.Items, BulkItemResult{RoomId: item.RoomId, ReadingId: reading.Id})
	}
	IBatchRunService.Finish(db, run, result.Total, result.Succeeded, result.Failed)
	return result, nil
}

// UpdateReading applies a patch under the lifecycle lock: once a reading is
// confirmed, billed, or linked to an invoice only the note may change. Draft
// readings accept index/price edits with recomputation, previousIndex edits
// being subject to the first-reading rule.
func (s *MeterReadingServiceImpl) UpdateReading(db *gorm.DB, actor ActorContext, id string, in UpdateReadingInput) (entity.MeterReadingEntity, error) {
	reading, err := s.getReading(db, id)
	if err != nil {
		return entity.MeterReadingEntity{}, err
	}
	if err := s.checkAuthority(db, actor, reading.RoomId); err != nil {
		return entity.MeterReadingEntity{}, err
	}

	locked := reading.Status != entity.ReadingStatusDraft || reading.InvoiceId != nil
	if locked {
		if in.touchesLockedFields() {
			return entity.MeterReadingEntity{}, apperror.NewState(
				"reading " + id + " is " + reading.Status + ", only the note may change")
		}
		if in.Status != nil && *in.Status != reading.Status {
			return entity.MeterReadingEntity{}, apperror.NewState(
				"reading " + id + " status cannot change through update")
		}
		if in.Note != nil {
			reading.Note = *in.Note
			if err := db.Model(&reading).Update("note", reading.Note).Error; err != nil {
				return entity.MeterReadingEntity{}, err
			}
		}
		return reading, nil
	}

	if in.ElectricPreviousIndex != nil || in.WaterPreviousIndex != nil {
		first, err := s.isFirstReading(db, reading)
		if err != nil {
			return entity.MeterReadingEntity{}, err
		}
		if !first {
			if in.ElectricPreviousIndex != nil && *in.ElectricPreviousIndex < reading.Electric.PreviousIndex {
				return entity.MeterReadingEntity{}, apperror.NewState(
					"previous electric index of a non-first reading may only increase")
			}
			if in.WaterPreviousIndex != nil && *in.WaterPreviousIndex < reading.Water.PreviousIndex {
				return entity.MeterReadingEntity{}, apperror.NewState(
					"previous water index of a non-first reading may only increase")
			}
		}
	}

	applyQuantityPatch(&reading.Electric, in.ElectricPreviousIndex, in.ElectricCurrentIndex, in.ElectricUnitPrice)
	applyQuantityPatch(&reading.Water, in.WaterPreviousIndex, in.WaterCurrentIndex, in.WaterUnitPrice)
	if in.Note != nil {
		reading.Note = *in.Note
	}
	if in.Status != nil && *in.Status != reading.Status {
		return entity.MeterReadingEntity{}, apperror.NewState("use confirm to change a reading's status")
	}

	if err := validateQuantities(&reading); err != nil {
		return entity.MeterReadingEntity{}, err
	}
	if err := db.Save(&reading).Error; err != nil {
		return entity.MeterReadingEntity{}, err
	}
	return reading, nil
}

// Confirm locks the indices and advances the room's stored baselines. The
// baseline never regresses: two confirmations racing in the wrong order
// cannot move it backwards.
func (s *MeterReadingServiceImpl) Confirm(db *gorm.DB, actor ActorContext, id string) (entity.MeterReadingEntity, error) {
	reading, err := s.getReading(db, id)
	if err != nil {
		return entity.MeterReadingEntity{}, err
	}
	if err := s.checkAuthority(db, actor, reading.RoomId); err != nil {
		return entity.MeterReadingEntity{}, err
	}
	if reading.Status != entity.ReadingStatusDraft {
		return entity.MeterReadingEntity{}, apperror.NewState(
			"only draft readings can be confirmed, reading " + id + " is " + reading.Status)
	}
	if err := validateQuantities(&reading); err != nil {
		return entity.MeterReadingEntity{}, err
	}

	now := time.Now().UTC()
	actorId := actor.ActorId
	err = db.Transaction(func(tx *gorm.DB) error {
		reading.Status = entity.ReadingStatusConfirmed
		reading.ConfirmedAt = &now
		reading.ConfirmedBy = &actorId
		if err := tx.Save(&reading).Error; err != nil {
			return err
		}

		var room entity.RoomEntity
		if err := tx.First(&room, "id = ?", reading.RoomId).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if reading.Electric.CurrentIndex > room.BaselineElectricIndex {
			updates["baseline_electric_index"] = reading.Electric.CurrentIndex
		}
		if reading.Water.CurrentIndex > room.BaselineWaterIndex {
			updates["baseline_water_index"] = reading.Water.CurrentIndex
		}
		if len(updates) > 0 {
			if err := tx.Model(&room).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return entity.MeterReadingEntity{}, err
	}
	return reading, nil
}

// MarkBilled transitions readings to billed and links them to the invoice.
// Invoked only by invoice generation inside the same transaction that
// persists the invoice.
func (s *MeterReadingServiceImpl) MarkBilled(tx *gorm.DB, ids []string, invoiceId string) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&entity.MeterReadingEntity{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     entity.ReadingStatusBilled,
			"invoice_id": invoiceId,
		}).Error
}

func (s *MeterReadingServiceImpl) SoftDelete(db *gorm.DB, actor ActorContext, id string) error {
	reading, err := s.getReading(db, id)
	if err != nil {
		return err
	}
	if err := s.checkAuthority(db, actor, reading.RoomId); err != nil {
		return err
	}
	if reading.Status == entity.ReadingStatusBilled {
		return apperror.NewState("billed reading " + id + " cannot be deleted")
	}
	return db.Delete(&reading).Error
}

// ConfirmedUnbilled returns the readings invoice generation may consume for a
// room and period.
func (s *MeterReadingServiceImpl) ConfirmedUnbilled(db *gorm.DB, roomId string, month, year int) ([]entity.MeterReadingEntity, error) {
	var readings []entity.MeterReadingEntity
	err := db.
		Where("room_id = ? AND month = ? AND year = ?", roomId, month, year).
		Where("status = ? AND invoice_id IS NULL", entity.ReadingStatusConfirmed).
		Order("created_at ASC").
		Find(&readings).Error
	return readings, err
}

func (s *MeterReadingServiceImpl) getReading(db *gorm.DB, id string) (entity.MeterReadingEntity, error) {
	var reading entity.MeterReadingEntity
	if err := db.First(&reading, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.MeterReadingEntity{}, apperror.NewNotFound("meter reading", id)
		}
		return entity.MeterReadingEntity{}, err
	}
	return reading, nil
}

func (s *MeterReadingServiceImpl) checkAuthority(db *gorm.DB, actor ActorContext, roomId string) error {
	_, building, err := resolveRoomAndBuilding(db, roomId)
	if err != nil {
		return err
	}
	if !actor.CanManage(building.Id) {
		return apperror.NewState("actor has no authority over building " + building.Id)
	}
	return nil
}

// seedPreviousIndices finds the room's latest reading in a period before the
// one being created and seeds from its current indices, falling back to the
// room baselines. Readings of later periods are ignored so a backfill seeds
// from its own past, not from the future.
func (s *MeterReadingServiceImpl) seedPreviousIndices(db *gorm.DB, room entity.RoomEntity, month, year int) (float64, float64, error) {
	var latest entity.MeterReadingEntity
	err := db.Where("room_id = ?", room.Id).
		Where("year < ? OR (year = ? AND month < ?)", year, year, month).
		Order("year DESC, month DESC").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.BaselineElectricIndex, room.BaselineWaterIndex, nil
		}
		return 0, 0, err
	}
	return latest.Electric.CurrentIndex, latest.Water.CurrentIndex, nil
}

// isFirstReading reports whether no other live reading of the room precedes
// this one chronologically.
func (s *MeterReadingServiceImpl) isFirstReading(db *gorm.DB, reading entity.MeterReadingEntity) (bool, error) {
	var count int64
	err := db.Model(&entity.MeterReadingEntity{}).
		Where("room_id = ? AND id <> ?", reading.RoomId, reading.Id).
		Where("year < ? OR (year = ? AND month < ?)", reading.Year, reading.Year, reading.Month).
		Count(&count).Error
	return count == 0, err
}

func applyQuantityPatch(q *entity.MeterQuantity, prev, current, price *float64) {
	if prev != nil {
		q.PreviousIndex = *prev
	}
	if current != nil {
		q.CurrentIndex = *current
	}
	if price != nil {
		q.UnitPrice = *price
	}
	q.Recompute()
}

func validateQuantities(reading *entity.MeterReadingEntity) error {
	for _, q := range []struct {
		name     string
		quantity entity.MeterQuantity
	}{
		{"electric", reading.Electric},
		{"water", reading.Water},
	} {
		if q.quantity.CurrentIndex < 0 {
			return apperror.NewValidation(q.name+"_current_index", "must not be negative")
		}
		if q.quantity.PreviousIndex < 0 {
			return apperror.NewValidation(q.name+"_previous_index", "must not be negative")
		}
		if q.quantity.UnitPrice < 0 {
			return apperror.NewValidation(q.name+"_unit_price", "must not be negative")
		}
		if q.quantity.CurrentIndex < q.quantity.PreviousIndex {
			return apperror.NewValidation(q.name+"_current_index",
				fmt.Sprintf("%.3f is less than previous index %.3f", q.quantity.CurrentIndex, q.quantity.PreviousIndex))
		}
	}
	return nil
}

func resolveRoomAndBuilding(db *gorm.DB, roomId string) (entity.RoomEntity, entity.BuildingEntity, error) {
	var room entity.RoomEntity
	if err := db.First(&room, "id = ?", roomId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.RoomEntity{}, entity.BuildingEntity{}, apperror.NewNotFound("room", roomId)
		}
		return entity.RoomEntity{}, entity.BuildingEntity{}, err
	}
	var building entity.BuildingEntity
	if err := db.First(&building, "id = ?", room.BuildingId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.RoomEntity{}, entity.BuildingEntity{}, apperror.NewNotFound("building", room.BuildingId)
		}
		return entity.RoomEntity{}, entity.BuildingEntity{}, err
	}
	return room, building, nil
}
