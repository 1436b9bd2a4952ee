package service

import (
	"encoding/json"
	"time"

	"rental/billing/config/log"
	"rental/billing/entity"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BatchRunServiceImpl struct{}

// Begin opens the audit row for one batch execution.
func (b *BatchRunServiceImpl) Begin(db *gorm.DB, kind string) (entity.BatchRunEntity, error) {
	start := time.Now().UTC()
	run := entity.BatchRunEntity{
		Kind:      kind,
		Status:    entity.BatchStatusInProgress,
		StartedAt: &start,
	}
	if err := db.Create(&run).Error; err != nil {
		log.Logger.Error("Failed to record batch run", zap.String("kind", kind), zap.Error(err))
		return entity.BatchRunEntity{}, err
	}
	return run, nil
}

// RecordError isolates one failed item without aborting the run.
func (b *BatchRunServiceImpl) RecordError(db *gorm.DB, runId int64, roomId string, payload json.RawMessage, itemErr error) {
	row := entity.BatchErrorEntity{
		RunID:  runId,
		RoomId: roomId,
		Data:   payload,
		Error:  itemErr.Error(),
	}
	if err := db.Create(&row).Error; err != nil {
		log.Logger.Error("Failed to record batch error row",
			zap.Int64("run_id", runId), zap.String("room_id", roomId), zap.Error(err))
	}
}

// Finish closes the run. The batch as a whole succeeds if at least one item
// succeeded or there was nothing to do.
func (b *BatchRunServiceImpl) Finish(db *gorm.DB, run entity.BatchRunEntity, total, succeeded, failed int) {
	finish := time.Now().UTC()
	status := entity.BatchStatusSuccess
	if total > 0 && succeeded == 0 {
		status = entity.BatchStatusFailed
	}
	updates := map[string]interface{}{
		"status":      status,
		"total":       total,
		"succeeded":   succeeded,
		"failed":      failed,
		"finished_at": &finish,
	}
	if err := db.Model(&run).Updates(updates).Error; err != nil {
		log.Logger.Error("Failed to update batch run completion",
			zap.Int64("run_id", run.ID), zap.Error(err))
	}
}
