package application

import (
	"errors"
	"net/http"

	"bitwise74/pulse-api/aws"
	"bitwise74/pulse-api/internal"
	"bitwise74/pulse-api/internal/model"
	"bitwise74/pulse-api/pkg/apperr"
	"bitwise74/pulse-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func storageUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":     "Application storage is not configured",
		"requestID": c.MustGet("requestID").(string),
	})
}

func ApplicationSubmit(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data model.Application
	if err := c.ShouldBindJSON(&data); err != nil {
		status := http.StatusBadRequest
		if middleware.IsBodyTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
		}

		c.JSON(status, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	res, err := d.Applications.Submit(c.Request.Context(), data)
	if err != nil {
		if errors.Is(err, aws.ErrNotConfigured) {
			storageUnavailable(c)
			return
		}

		apperr.Respond(c, err, "Failed to submit application")
		return
	}

	c.JSON(http.StatusCreated, res)
}

// ApplicationProcessDaily runs the daily processing right away instead of
// waiting for the scheduler
func ApplicationProcessDaily(c *gin.Context, d *internal.Deps) {
	res, err := d.Applications.ProcessDaily(c.Request.Context())
	if err != nil {
		if errors.Is(err, aws.ErrNotConfigured) {
			storageUnavailable(c)
			return
		}

		apperr.Respond(c, err, "Failed to process applications")
		return
	}

	c.JSON(http.StatusOK, res)
}
