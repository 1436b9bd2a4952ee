package api

import (
	"net/http"

	"rental/billing/config/mysql"
	"rental/billing/src/service"

	"github.com/gin-gonic/gin"
)

func CreateReading(c *gin.Context) {
	var in service.CreateReadingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reading, err := service.IMeterReadingService.CreateReading(mysql.GetDB(), actorFromHeaders(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reading)
}

func CreateReadingsBulk(c *gin.Context) {
	var in struct {
		Items []service.CreateReadingInput `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := service.IMeterReadingService.CreateReadingsBulk(mysql.GetDB(), actorFromHeaders(c), in.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if result.Succeeded == 0 {
		status = http.StatusUnprocessableEntity
	} else if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

func UpdateReading(c *gin.Context) {
	var in service.UpdateReadingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reading, err := service.IMeterReadingService.UpdateReading(mysql.GetDB(), actorFromHeaders(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reading)
}

func ConfirmReading(c *gin.Context) {
	reading, err := service.IMeterReadingService.Confirm(mysql.GetDB(), actorFromHeaders(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reading)
}

func DeleteReading(c *gin.Context) {
	if err := service.IMeterReadingService.SoftDelete(mysql.GetDB(), actorFromHeaders(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
