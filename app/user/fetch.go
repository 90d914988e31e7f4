package user

import (
	"net/http"

	"bitwise74/pulse-api/internal/model"

	"github.com/gin-gonic/gin"
)

// UserMe returns the full profile of the logged in user, application
// fields included
func UserMe(c *gin.Context) {
	u := c.MustGet("user").(*model.User)

	c.JSON(http.StatusOK, u)
}
