package config

import (
	"math"
	"time"

	"rental/billing/config/log"
	"rental/billing/src/apperror"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var dbCircuitBreaker *gobreaker.CircuitBreaker

func init() {
	settings := gobreaker.Settings{
		Name:        "DBCircuitBreaker",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	}
	dbCircuitBreaker = gobreaker.NewCircuitBreaker(settings)
}

// Wrap DB calls with circuit breaker. Permanent errors are returned to the
// caller without counting against the breaker.
func DBWithCircuitBreaker(db *gorm.DB, fn func(*gorm.DB) error) error {
	var permanent error
	_, err := dbCircuitBreaker.Execute(func() (interface{}, error) {
		err := fn(db)
		if IsPermanentError(err) {
			// business-rule rejection, don't trip CB
			permanent = err
			return nil, nil
		}
		return nil, err // transient errors trip CB
	})
	if permanent != nil {
		return permanent
	}
	return err
}

func RetryWithCircuitBreaker(db *gorm.DB, fn func(*gorm.DB) error, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = DBWithCircuitBreaker(db, fn)
		if IsPermanentError(lastErr) {
			return lastErr
		}
		if lastErr == nil {
			return nil
		}
		log.Logger.Warn("DB operation failed, will retry", zap.Int("attempt", attempt+1), zap.Int("max_retries", maxRetries), zap.Error(lastErr))
		sleep := time.Duration(math.Pow(2, float64(attempt))) * time.Second
		time.Sleep(sleep)
	}
	log.Logger.Error("DB operation failed after max retry", zap.Int("max_retries", maxRetries), zap.Error(lastErr))

	return lastErr
}

// IsPermanentError reports errors that retrying cannot fix: every typed
// business-rule rejection, plus duplicate-key violations. Anything else is
// assumed transient (connection, deadlock, timeout).
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}
	return apperror.IsBusinessError(err) || apperror.IsDuplicateKey(err)
}
