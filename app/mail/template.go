package mail

import (
	"io"
	"net/http"

	"bitwise74/pulse-api/internal"
	"bitwise74/pulse-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxTemplateSize = 512 << 10

func notSupported(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"error":     "The configured mail provider doesn't store templates",
		"requestID": c.MustGet("requestID").(string),
	})
}

// MailTemplatePut creates a template or replaces an existing one with the
// same name
func MailTemplatePut(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	if d.Templates == nil {
		notSupported(c)
		return
	}

	name := c.PostForm("name")
	subject := c.PostForm("subject")

	if name == "" || subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Template name and subject are required",
			"requestID": requestID,
		})
		return
	}

	fh, err := c.FormFile("html")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No template file provided",
			"requestID": requestID,
		})
		return
	}

	if fh.Size > maxTemplateSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":     "Template file too large",
			"requestID": requestID,
		})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to open template file", zap.Error(err), zap.String("requestID", requestID))
		return
	}
	defer f.Close()

	html, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to read template file", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := validators.HTMLValidator(html); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := d.Templates.PutTemplate(c.Request.Context(), name, subject, string(html)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to save template",
			"requestID": requestID,
		})

		zap.L().Error("Failed to save mail template", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": name})
}

func MailTemplateDelete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	if d.Templates == nil {
		notSupported(c)
		return
	}

	if err := d.Templates.DeleteTemplate(c.Request.Context(), c.Param("name")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to delete template",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete mail template", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Status(http.StatusNoContent)
}
