package user

import (
	"errors"
	"net/http"

	"bitwise74/pulse-api/internal"
	"bitwise74/pulse-api/internal/model"
	usersvc "bitwise74/pulse-api/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type statusBody struct {
	Status model.ApplicationStatus `json:"status"`
}

func UserSetStatus(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data statusBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	u, err := d.Users.SetApplicationStatus(c.Request.Context(), c.Param("id"), data.Status)
	if err != nil {
		switch {
		case errors.Is(err, usersvc.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Status must be one of pending, approved or rejected",
				"requestID": requestID,
			})
		case errors.Is(err, usersvc.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "User not found",
				"requestID": requestID,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to update application status", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	zap.L().Info("Application status changed",
		zap.String("userID", u.ID),
		zap.String("status", string(u.ApplicationStatus)),
		zap.String("by", c.GetString("userID")),
	)

	c.JSON(http.StatusOK, u.Public())
}
