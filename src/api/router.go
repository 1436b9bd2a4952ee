package api

import (
	"errors"
	"net/http"
	"strings"

	"rental/billing/config/log"
	"rental/billing/src/apperror"
	"rental/billing/src/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts the billing API. Handlers are thin adapters: the
// business rules live in the services, shared with the cron triggers.
func RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	readings := v1.Group("/readings")
	readings.POST("", CreateReading)
	readings.POST("/bulk", CreateReadingsBulk)
	readings.PATCH("/:id", UpdateReading)
	readings.POST("/:id/confirm", ConfirmReading)
	readings.DELETE("/:id", DeleteReading)

	invoices := v1.Group("/invoices")
	invoices.POST("/generate", GenerateInvoice)
	invoices.POST("/generate-monthly", GenerateMonthly)
	invoices.POST("/sweep-overdue", SweepOverdue)
	invoices.GET("/:id", GetInvoice)
	invoices.PATCH("/:id", UpdateInvoice)
	invoices.POST("/:id/pay", MarkInvoicePaid)
	invoices.POST("/:id/cancel", CancelInvoice)

	payments := v1.Group("/payments")
	payments.POST("/gateway/callback", GatewayCallback)
}

// actorFromHeaders builds the authorization context once at the boundary.
// Authentication itself is handled upstream; these headers carry its result.
func actorFromHeaders(c *gin.Context) service.ActorContext {
	actor := service.ActorContext{ActorId: c.GetHeader("X-Actor-Id")}
	scope := c.GetHeader("X-Building-Scope")
	if scope != "" {
		for _, b := range strings.Split(scope, ",") {
			if trimmed := strings.TrimSpace(b); trimmed != "" {
				actor.BuildingScope = append(actor.BuildingScope, trimmed)
			}
		}
	}
	return actor
}

func writeError(c *gin.Context, err error) {
	var validation *apperror.ValidationError
	var notFound *apperror.NotFoundError
	var conflict *apperror.ConflictError
	var state *apperror.StateError
	var signature *apperror.SignatureError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error(), "conflict_id": conflict.ConflictId})
	case errors.As(err, &state):
		c.JSON(http.StatusConflict, gin.H{"error": state.Error()})
	case errors.As(err, &signature):
		c.JSON(http.StatusForbidden, gin.H{"error": signature.Error()})
	default:
		log.Logger.Error("unexpected error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
