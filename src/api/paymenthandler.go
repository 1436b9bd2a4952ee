package api

import (
	"io"
	"net/http"

	"rental/billing/config/mysql"
	"rental/billing/src/service"

	"github.com/gin-gonic/gin"
)

// GatewayCallback is the payment gateway IPN endpoint. The raw body is
// handed to the service so the signature is verified against exactly what
// the gateway sent.
func GatewayCallback(c *gin.Context) {
	rawPayload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	logEntry, err := service.IPaymentService.HandleGatewayCallback(mysql.GetDB(), rawPayload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": logEntry.Status})
}
