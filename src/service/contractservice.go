package service

import (
	"errors"

	"rental/billing/entity"
	"rental/billing/src/apperror"

	"gorm.io/gorm"
)

type ContractServiceImpl struct{}

// FindActiveContract returns the single authoritative lease contract covering
// the room during the billing period: fully executed, started on or before the
// period end, not ended before the period start (open-ended counts). When
// contracts overlap the latest-starting one wins.
func (s *ContractServiceImpl) FindActiveContract(db *gorm.DB, roomId string, month, year int) (entity.ContractEntity, error) {
	if err := ValidatePeriod(month, year); err != nil {
		return entity.ContractEntity{}, err
	}
	periodStart, periodEnd := PeriodRange(month, year)

	var contract entity.ContractEntity
	err := db.
		Where("room_id = ? AND status = ?", roomId, entity.ContractStatusExecuted).
		Where("start_date <= ?", periodEnd).
		Where("end_date IS NULL OR end_date >= ?", periodStart).
		Order("start_date DESC").
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ContractEntity{}, apperror.NewNotFound("active contract for room", roomId)
		}
		return entity.ContractEntity{}, err
	}
	return contract, nil
}
