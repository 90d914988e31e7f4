package upload

import (
	"net/http"

	"bitwise74/pulse-api/internal"
	"bitwise74/pulse-api/pkg/middleware"
	"bitwise74/pulse-api/pkg/validators"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

func UploadImage(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	if !d.S3.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Uploads are not configured",
			"requestID": requestID,
		})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		status := http.StatusBadRequest
		if middleware.IsBodyTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
		}

		c.JSON(status, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return
	}

	status, f, mime, err := validators.ImageValidator(fh)
	if err != nil {
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to read uploaded image", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.JSON(status, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}
	defer f.Close()

	id, err := gonanoid.New()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate file key", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	key := "uploads/" + id + mime.Extension()

	if err := d.S3.Put(c.Request.Context(), key, f, fh.Size, mime.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to upload file",
			"requestID": requestID,
		})

		zap.L().Error("Failed to upload image", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url": d.S3.URL(key),
		"key": key,
	})
}
