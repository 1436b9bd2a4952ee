package config

import (
	"errors"
	"os"
	"testing"

	"rental/billing/config/log"
	"rental/billing/src/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	log.Logger = zap.NewNop()
	os.Exit(m.Run())
}

func TestDBWithCircuitBreakerPropagatesPermanentErrors(t *testing.T) {
	conflict := apperror.NewConflict("slot already taken", "inv-1")

	// business rejections surface to the caller on every call and never
	// count against the breaker
	for i := 0; i < 10; i++ {
		err := DBWithCircuitBreaker(nil, func(*gorm.DB) error { return conflict })
		var ce *apperror.ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "inv-1", ce.ConflictId)
	}

	// the breaker is still closed afterwards
	err := DBWithCircuitBreaker(nil, func(*gorm.DB) error { return nil })
	assert.NoError(t, err)
}

func TestRetryWithCircuitBreakerDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	err := RetryWithCircuitBreaker(nil, func(*gorm.DB) error {
		calls++
		return apperror.NewNotFound("room", "r-1")
	}, 3)

	var nf *apperror.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 1, calls)
}

func TestIsPermanentError(t *testing.T) {
	assert.False(t, IsPermanentError(nil))
	assert.False(t, IsPermanentError(errors.New("connection reset")))
	assert.True(t, IsPermanentError(apperror.NewValidation("month", "must be 1-12")))
	assert.True(t, IsPermanentError(apperror.NewState("invoice is paid")))
	assert.True(t, IsPermanentError(gorm.ErrDuplicatedKey))
}
