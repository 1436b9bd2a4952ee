package api

import (
	"net/http"
	"time"

	"rental/billing/config/mysql"
	"rental/billing/src/service"

	"github.com/gin-gonic/gin"
)

func GenerateInvoice(c *gin.Context) {
	var in service.GenerateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	invoice, err := service.IInvoiceService.Generate(mysql.GetDB(), actorFromHeaders(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// GenerateMonthly triggers the all-rented-rooms sweep on demand; the cron
// trigger runs the same service call.
func GenerateMonthly(c *gin.Context) {
	var in struct {
		Month int `json:"month" binding:"required"`
		Year  int `json:"year" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := service.IInvoiceService.GenerateForAllRentedRooms(mysql.GetDB(), actorFromHeaders(c), in.Month, in.Year)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func SweepOverdue(c *gin.Context) {
	swept, err := service.IInvoiceLifecycleService.SweepOverdue(mysql.GetDB(), time.Now().UTC())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitioned": swept})
}

func GetInvoice(c *gin.Context) {
	invoice, err := service.IInvoiceService.Get(mysql.GetDB(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func UpdateInvoice(c *gin.Context) {
	var in service.UpdateInvoiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	invoice, err := service.IInvoiceLifecycleService.Update(mysql.GetDB(), actorFromHeaders(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func MarkInvoicePaid(c *gin.Context) {
	var in service.MarkPaidInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	invoice, err := service.IPaymentService.ApplyManualPayment(mysql.GetDB(), actorFromHeaders(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func CancelInvoice(c *gin.Context) {
	invoice, err := service.IInvoiceLifecycleService.Cancel(mysql.GetDB(), actorFromHeaders(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}
