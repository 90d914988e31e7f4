package root

import (
	"net/http"

	"bitwise74/pulse-api/internal"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}

// HeartbeatInfo reports the environment and whether the backing services
// answer
func HeartbeatInfo(c *gin.Context, d *internal.Deps) {
	status := gin.H{
		"env":      viper.GetString("app.env"),
		"database": "ok",
		"storage":  "disabled",
		"mail":     viper.GetString("mail.provider"),
	}

	if db, err := d.DB.DB(); err != nil || db.PingContext(c.Request.Context()) != nil {
		status["database"] = "unreachable"
	}

	if d.S3.Configured() {
		status["storage"] = "ok"

		if err := d.S3.Ping(c.Request.Context()); err != nil {
			status["storage"] = "unreachable"
		}
	}

	c.JSON(http.StatusOK, status)
}
