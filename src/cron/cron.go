package cron

import (
	"time"

	breaker "rental/billing/config/circuitbreaker"
	"rental/billing/config/cronjob"
	"rental/billing/config/log"
	"rental/billing/config/mysql"
	"rental/billing/config/toml"
	"rental/billing/src/service"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateBaseCronJob registers the two time-based billing triggers: the
// monthly invoice generation sweep and the daily overdue sweep. Both funnel
// into the same service operations the HTTP layer calls, so the invariants
// hold regardless of trigger source.
func CreateBaseCronJob() {
	_cron := cronjob.GetCJ()
	cfg := toml.GetConfig().Cron

	genSpec := cfg.MonthlyGenerationSpec
	if genSpec == "" {
		genSpec = "0 2 1 * *" // 02:00 UTC on the 1st
	}
	sweepSpec := cfg.OverdueSweepSpec
	if sweepSpec == "" {
		sweepSpec = "0 1 * * *" // 01:00 UTC daily
	}

	_cron.AddFunc(genSpec, func() {
		defer func() {
			if r := recover(); r != nil {
				log.Logger.Error("Recovered from panic in monthly generation", zap.Any("panic", r))
			}
		}()
		runMonthlyGeneration()
	})

	_cron.AddFunc(sweepSpec, func() {
		defer func() {
			if r := recover(); r != nil {
				log.Logger.Error("Recovered from panic in overdue sweep", zap.Any("panic", r))
			}
		}()
		runOverdueSweep()
	})
}

// runMonthlyGeneration invoices the month that just ended for every room
// under an active lease. Rooms already invoiced are skipped by the
// uniqueness invariant, so a crashed run is safely retried next cycle.
func runMonthlyGeneration() {
	now := time.Now().UTC()
	prev := now.AddDate(0, -1, 0)
	month, year := int(prev.Month()), prev.Year()

	log.Logger.Info("Monthly invoice generation triggered",
		zap.Int("month", month), zap.Int("year", year))

	result, err := service.IInvoiceService.GenerateForAllRentedRooms(
		mysql.GetDB(), service.SystemActor(), month, year)
	if err != nil {
		log.Logger.Error("Monthly invoice generation aborted", zap.Error(err))
		return
	}
	log.Logger.Info("Monthly invoice generation finished",
		zap.Int64("run_id", result.RunId),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
}

func runOverdueSweep() {
	now := time.Now().UTC()
	maxRetries := toml.GetConfig().Process.Maxretries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var swept int64
	err := breaker.RetryWithCircuitBreaker(mysql.GetDB(), func(db *gorm.DB) error {
		var sweepErr error
		swept, sweepErr = service.IInvoiceLifecycleService.SweepOverdue(db, now)
		return sweepErr
	}, maxRetries)
	if err != nil {
		log.Logger.Error("Overdue sweep failed", zap.Error(err))
		return
	}
	log.Logger.Info("Overdue sweep finished", zap.Int64("transitioned", swept))
}
